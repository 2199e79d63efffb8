package domain

import "time"

// Account is the subset of a Ugram account the notification service reads.
// The account store itself is owned by the REST API.
type Account struct {
	UserID    string    `json:"userId" dynamodbav:"user_id" bson:"userId"`
	Name      string    `json:"name" dynamodbav:"name" bson:"name"`
	Email     string    `json:"email" dynamodbav:"email" bson:"email"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at" bson:"createdAt"`
}
