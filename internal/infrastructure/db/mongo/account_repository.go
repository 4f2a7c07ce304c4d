package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

const (
	accountCollection = "users"
	emailIndex        = "uniq_email"
	phoneIndex        = "uniq_phone_number"
)

// emailCollation makes email comparisons case-insensitive. Queries must pass
// the same collation to be served by the unique index.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	PhoneNumber  *string    `bson:"phone_number,omitempty"`
	Name         string     `bson:"name"`
	FirstName    string     `bson:"first_name"`
	Birthdate    *time.Time `bson:"birthdate,omitempty"`
	PasswordHash string     `bson:"password"`
	Roles        []string   `bson:"roles,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toMongoAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		ID:           a.ID,
		Email:        a.Email,
		PhoneNumber:  a.PhoneNumber,
		Name:         a.Name,
		FirstName:    a.FirstName,
		Birthdate:    a.Birthdate,
		PasswordHash: a.PasswordHash,
		Roles:        a.ExtraRoles,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func (m mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:           m.ID,
		Email:        m.Email,
		PhoneNumber:  m.PhoneNumber,
		Name:         m.Name,
		FirstName:    m.FirstName,
		Birthdate:    m.Birthdate,
		PasswordHash: m.PasswordHash,
		ExtraRoles:   m.Roles,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Create inserts the account. Unique index violations on email or phone
// number are reported as domain.ErrAccountExists.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toMongoAccount(account)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conflictFromDuplicate(err, account)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	opts := options.FindOne().SetCollation(emailCollation)
	if err := r.coll.FindOne(ctx, bson.M{"email": domain.NormalizeEmail(email)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// conflictFromDuplicate tells which unique index rejected the insert. The
// server names the index in the duplicate key message.
func conflictFromDuplicate(err error, account *domain.Account) error {
	if strings.Contains(err.Error(), phoneIndex) && account.PhoneNumber != nil {
		return &domain.AccountConflictError{Field: domain.FieldPhoneNumber, Value: *account.PhoneNumber}
	}
	return &domain.AccountConflictError{Field: domain.FieldEmail, Value: account.Email}
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}}
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// EnsureIndexes creates the case-insensitive unique email index and a partial
// unique index on phone_number, so accounts without a phone do not collide.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex).SetCollation(emailCollation),
		},
		{
			Keys: bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(phoneIndex).
				SetPartialFilterExpression(bson.M{"phone_number": bson.M{"$type": "string"}}),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
