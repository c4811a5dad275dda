package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"          json:"id"`
	Email        string             `bson:"email"                  json:"email"`
	PasswordHash string             `bson:"password_hash"          json:"-"`
	Provider     string             `bson:"provider"               json:"provider"` // "otp" | "google"
	ExternalID   string             `bson:"external_id,omitempty"  json:"external_id,omitempty"`
	Verified     bool               `bson:"verified"               json:"verified"`
	CreatedAt    time.Time          `bson:"created_at"             json:"created_at"`
}
