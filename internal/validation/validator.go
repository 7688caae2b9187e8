package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
)

// New returns a validator with the checkout field validations registered.
// Field errors are keyed by form name.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("delivery_method", deliveryMethod)

	return v
}

// deliveryMethod accepts the delivery values a buyer can submit.
func deliveryMethod(fl validatorv10.FieldLevel) bool {
	_, err := checkout.ParseDeliveryMethod(fl.Field().String())
	return err == nil
}
