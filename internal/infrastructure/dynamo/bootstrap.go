package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/ugram-notify/internal/config"
)

// Bootstrap creates the accounts table if it does not already exist. It is
// meant for LocalStack development; in production the REST API owns the table.
func Bootstrap(ctx context.Context, client API, tables config.DynamoTables, log logrus.FieldLogger) {
	createTable(ctx, client, log, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Accounts),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
		},
	})
}

func createTable(ctx context.Context, client API, log logrus.FieldLogger, input *dynamodb.CreateTableInput) {
	entry := log.WithField("table", aws.ToString(input.TableName))
	if _, err := client.CreateTable(ctx, input); err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			entry.WithError(err).Warn("Could not create table")
		}
		return
	}
	entry.Info("Created table")
}
