package mongoinfra

import (
	"context"
	"errors"
	"fmt"

	"github.com/ugram-notify/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountsCollection is the collection the Ugram API stores accounts in.
const AccountsCollection = "accounts"

// AccountRepo reads accounts by their userId field.
type AccountRepo struct {
	coll *mongo.Collection
}

func NewAccountRepo(coll *mongo.Collection) *AccountRepo {
	return &AccountRepo{coll: coll}
}

// FindByID returns the account for userID, or an error wrapping
// domain.ErrNotFound when no document matches.
func (r *AccountRepo) FindByID(ctx context.Context, userID string) (*domain.Account, error) {
	opts := options.FindOne().SetProjection(bson.D{
		{Key: "userId", Value: 1},
		{Key: "name", Value: 1},
		{Key: "email", Value: 1},
		{Key: "createdAt", Value: 1},
	})
	var a domain.Account
	err := r.coll.FindOne(ctx, bson.D{{Key: "userId", Value: userID}}, opts).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("account %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", userID, err)
	}
	return &a, nil
}
