package payment

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-listing-checkout/internal/aws"
)

// AccountVerified is the only account status that can receive payments.
const AccountVerified = "verified"

// Account is a seller's payment account in the payment_accounts table.
type Account struct {
	AccountID   string `dynamodbav:"account_id"` // PK: community_id#person_id
	CommunityID string `dynamodbav:"community_id"`
	PersonID    string `dynamodbav:"person_id"`
	Status      string `dynamodbav:"status"`
	GatewayRef  string `dynamodbav:"gateway_ref,omitempty"`
}

// AccountID builds the partition key of a payment account.
func AccountID(communityID, personID string) string {
	return communityID + "#" + personID
}

// Accounts reads payment accounts from DynamoDB.
type Accounts struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewAccounts returns an Accounts reader for tableName.
func NewAccounts(client aws.DynamoDBAPI, tableName string) *Accounts {
	return &Accounts{client: client, tableName: tableName}
}

// Get returns the account, or (nil, nil) if the person has none.
func (a *Accounts) Get(ctx context.Context, communityID, personID string) (*Account, error) {
	out, err := a.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &a.tableName,
		Key: map[string]types.AttributeValue{
			"account_id": &types.AttributeValueMemberS{Value: AccountID(communityID, personID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get payment account: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var acc Account
	if err := attributevalue.UnmarshalMap(out.Item, &acc); err != nil {
		return nil, fmt.Errorf("unmarshal payment account: %w", err)
	}
	return &acc, nil
}
