package models

import "time"

// User is a platform account. An organizer ("admin") is just a user
// who owns matches.
type User struct {
	ID             string           `bson:"id" json:"id"`
	FirstName      string           `bson:"first_name" json:"firstName"`
	LastName       string           `bson:"last_name" json:"lastName"`
	Email          string           `bson:"email" json:"email"`
	PasswordHash   string           `bson:"password_hash" json:"-"`
	Country        string           `bson:"country,omitempty" json:"country,omitempty"`
	RefreshToken   string           `bson:"refresh_token,omitempty" json:"-"`
	AccountDetails []AccountDetails `bson:"account_details,omitempty" json:"accountDetails,omitempty"`
	CreatedAt      time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `bson:"updated_at" json:"updatedAt"`
}
