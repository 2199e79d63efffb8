package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/ugram-notify/internal/domain"
)

// AccountRepo reads accounts from the accounts table, keyed by user_id.
type AccountRepo struct {
	client    API
	tableName string
}

func NewAccountRepo(client API, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

// FindByID returns the account for userID, or an error wrapping
// domain.ErrNotFound when the table has no such item.
func (r *AccountRepo) FindByID(ctx context.Context, userID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  strKey("user_id", userID),
		ProjectionExpression: aws.String("user_id, #n, email, created_at"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", userID, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account %s: %w", userID, domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account %s: %w", userID, err)
	}
	return &a, nil
}
