package ports

import "context"

// RegisterInput is the raw registration payload passed from the transport layer.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	FirstName   string
	PhoneNumber string // optional
	Birthdate   string // optional, date string
}

// AccountRegistrar validates and creates accounts.
type AccountRegistrar interface {
	Register(ctx context.Context, input *RegisterInput) error
}
