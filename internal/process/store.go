package process

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/segmentio/ksuid"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
)

// ErrNotFound is returned when a token has no process record.
var ErrNotFound = errors.New("process not found")

// Store encapsulates process record operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // how long finished records stay pollable
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: TTL of new records (e.g., 48*time.Hour)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Table is the name of the process table.
func (s *Store) Table() string { return s.tableName }

// NewToken returns a fresh, time-sortable process token.
func NewToken() string {
	return ksuid.New().String()
}

// ScopedToken derives the process token for a client idempotency key.
// The same key sent by different buyers or communities maps to different
// tokens. An empty key gets a fresh token.
func ScopedToken(communityID, starterID, key string) string {
	if key == "" {
		return NewToken()
	}
	sum := sha256.Sum256([]byte(communityID + "\x00" + starterID + "\x00" + key))
	return hex.EncodeToString(sum[:])
}

// NewRecord builds an IN_PROGRESS record for a transaction. It is written
// together with the transaction in one TransactWriteItems call.
func (s *Store) NewRecord(token, transactionID string, async bool) Record {
	now := s.nowFunc().UTC()
	return Record{
		ProcessToken:  token,
		Status:        StatusInProgress,
		TransactionID: transactionID,
		Async:         async,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.ttlWindow).Unix(),
	}
}

// Get retrieves a record by token. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, token string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key(token),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone completes the process with the gateway redirect URL.
func (s *Store) MarkDone(ctx context.Context, token, redirectURL string) error {
	now := s.nowFunc().UTC()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      key(token),
		UpdateExpression:         awsString("SET #s = :done, redirect_url = :r, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(process_token)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done": &types.AttributeValueMemberS{Value: StatusDone},
			":r":    &types.AttributeValueMemberS{Value: redirectURL},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("update item (mark done): %w", notFound(err))
	}
	return nil
}

// MarkFailed marks the process FAILED and stores a note.
func (s *Store) MarkFailed(ctx context.Context, token, note string) error {
	now := s.nowFunc().UTC()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      key(token),
		UpdateExpression:         awsString("SET #s = :failed, note = :n, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(process_token)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("update item (mark failed): %w", notFound(err))
	}
	return nil
}

func notFound(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
		return ErrNotFound
	}
	return err
}

func key(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"process_token": &types.AttributeValueMemberS{Value: token},
	}
}

func awsString(s string) *string { return &s }
