package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
)

var (
	// ErrStatusMismatch is returned when a conditional status transition fails.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrProcessExists is returned when the process token was already used.
	ErrProcessExists = errors.New("process token already exists")
)

// Store encapsulates operations on the transactions table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new transactions Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreateWithProcessTransaction atomically creates:
//   - the process record in processTable, conditional on the token being new
//   - the transaction record in the transactions table
//
// processItem must marshal to a map holding process_token.
func (s *Store) CreateWithProcessTransaction(ctx context.Context, processTable string, processItem interface{}, tx Transaction) error {
	processMap, err := attributevalue.MarshalMap(processItem)
	if err != nil {
		return fmt.Errorf("marshal process item: %w", err)
	}

	now := s.nowFunc().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	if tx.Status == "" {
		tx.Status = StatusInitiated
	}

	txMap, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction item: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &processTable,
					Item:                processMap,
					ConditionExpression: awsString("attribute_not_exists(process_token)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                txMap,
					ConditionExpression: awsString("attribute_not_exists(transaction_id)"),
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && processConflict(tce) {
			return ErrProcessExists
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// processConflict reports whether the process put was the one that failed.
func processConflict(tce *types.TransactionCanceledException) bool {
	if len(tce.CancellationReasons) == 0 {
		return true
	}
	code := tce.CancellationReasons[0].Code
	return code != nil && *code == "ConditionalCheckFailed"
}

// Get fetches a transaction by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, transactionID string) (*Transaction, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key(transactionID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var tx Transaction
	if err := attributevalue.UnmarshalMap(out.Item, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// UpdateStatus conditionally moves the transaction from expected to newStatus.
// Returns ErrStatusMismatch if the condition failed.
func (s *Store) UpdateStatus(ctx context.Context, transactionID, expectedStatus, newStatus string) error {
	return s.update(ctx, transactionID, expectedStatus, "SET #s = :new, updated_at = :ua", map[string]types.AttributeValue{
		":new": &types.AttributeValueMemberS{Value: newStatus},
	})
}

// MarkPreauthorized moves a processing transaction to preauthorized and
// stores the gateway redirect URL.
func (s *Store) MarkPreauthorized(ctx context.Context, transactionID, redirectURL string) error {
	return s.update(ctx, transactionID, StatusProcessing, "SET #s = :new, redirect_url = :r, updated_at = :ua", map[string]types.AttributeValue{
		":new": &types.AttributeValueMemberS{Value: StatusPreauthorized},
		":r":   &types.AttributeValueMemberS{Value: redirectURL},
	})
}

// MarkFailed moves the transaction from expected to failed with a reason.
func (s *Store) MarkFailed(ctx context.Context, transactionID, expectedStatus, reason string) error {
	return s.update(ctx, transactionID, expectedStatus, "SET #s = :new, failure_reason = :fr, updated_at = :ua", map[string]types.AttributeValue{
		":new": &types.AttributeValueMemberS{Value: StatusFailed},
		":fr":  &types.AttributeValueMemberS{Value: reason},
	})
}

// Reclaim restamps a processing transaction last touched at prev so a new
// worker can finish it. It fails with ErrStatusMismatch when the status
// changed or another worker reclaimed it first.
func (s *Store) Reclaim(ctx context.Context, transactionID string, prev time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      key(transactionID),
		UpdateExpression:         awsString("SET updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ua":       &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
			":expected": &types.AttributeValueMemberS{Value: StatusProcessing},
			":prev":     &types.AttributeValueMemberS{Value: prev.UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("#s = :expected AND updated_at = :prev"),
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, transactionID, expectedStatus, expr string, values map[string]types.AttributeValue) error {
	values[":ua"] = &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)}
	values[":expected"] = &types.AttributeValueMemberS{Value: expectedStatus}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       key(transactionID),
		UpdateExpression:          &expr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func key(transactionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"transaction_id": &types.AttributeValueMemberS{Value: transactionID},
	}
}

func awsString(s string) *string { return &s }
