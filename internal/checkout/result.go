package checkout

// Result is the outcome of a validation rule: either a success value or a
// RuleError.
type Result[T any] struct {
	value T
	err   *RuleError
}

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps an error code.
func Failure[T any](code ErrorCode) Result[T] {
	return Result[T]{err: &RuleError{Code: code}}
}

func (r Result[T]) OK() bool { return r.err == nil }

// Value is the success value; the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Err is nil on success.
func (r Result[T]) Err() *RuleError { return r.err }

// Rule is one check of the validation chain.
type Rule func(TransactionRequest) Result[TransactionRequest]

// Chain runs rules in order and stops at the first failure.
func Chain(req TransactionRequest, rules ...Rule) Result[TransactionRequest] {
	res := Success(req)
	for _, rule := range rules {
		res = rule(res.Value())
		if !res.OK() {
			return res
		}
	}
	return res
}
