package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account that can log in and place orders.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PhoneNumber  string             `bson:"phoneNumber" json:"phoneNumber"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsVerified   bool               `bson:"isVerified" json:"isVerified"`
	OTP          string             `bson:"otp,omitempty" json:"-"`
	OTPExpiresAt *time.Time         `bson:"otpExpiresAt,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
