// Package account provisions users and validates their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// Outcome is the result of a credential check. A mismatch is an outcome,
// not an error. Unknown users and wrong passwords share one outcome so a
// caller cannot tell which user ids exist.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeInvalidCredentials
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Store reads and writes user documents. FindOne returns domain.ErrNotFound
// when nothing matches.
type Store interface {
	InsertOne(ctx context.Context, collection string, doc any) (any, error)
	FindOne(ctx context.Context, collection string, filter, sort, out any) error
}

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(plaintext, hash string) (bool, error)
}

// Validation is the result of Validate. User is set only for OutcomeValid,
// with personal fields decrypted.
type Validation struct {
	Outcome Outcome
	User    domain.User
}

// Service manages user accounts.
type Service struct {
	store    Store
	verifier Verifier
	cipher   domain.FieldCipher
	logger   *slog.Logger
}

// NewService creates an account Service.
func NewService(store Store, verifier Verifier, cipher domain.FieldCipher, logger *slog.Logger) *Service {
	return &Service{store: store, verifier: verifier, cipher: cipher, logger: logger}
}

// Provision stores the user's storage projection. The user must already carry
// a password hash.
func (s *Service) Provision(ctx context.Context, u domain.User) error {
	doc, err := domain.UserStorageDoc(u, s.cipher)
	if err != nil {
		return err
	}
	if doc.Password == "" {
		return fmt.Errorf("%w: user %s has no password hash", domain.ErrInvalidArgument, doc.ID)
	}
	if _, err := s.store.InsertOne(ctx, domain.CollectionUsers, doc); err != nil {
		return fmt.Errorf("provision user %s: %w", doc.ID, err)
	}
	s.logger.Debug("user provisioned", "user_id", doc.ID, "user_type", doc.UserType)
	return nil
}

// Validate checks userID's password. Unknown users and wrong passwords both
// return OutcomeInvalidCredentials; only the log says which. Store and
// decryption failures are errors.
func (s *Service) Validate(ctx context.Context, userID, password string) (Validation, error) {
	var doc domain.UserDoc
	err := s.store.FindOne(ctx, domain.CollectionUsers, bson.D{{Key: "_id", Value: userID}}, nil, &doc)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("user not found", "user_id", userID)
		return Validation{Outcome: OutcomeInvalidCredentials}, nil
	}
	if err != nil {
		return Validation{}, fmt.Errorf("validate %s: %w", userID, err)
	}

	ok, err := s.verifier.Verify(password, doc.Password)
	if err != nil {
		return Validation{}, fmt.Errorf("validate %s: %w", userID, err)
	}
	if !ok {
		s.logger.Info("invalid password", "user_id", userID)
		return Validation{Outcome: OutcomeInvalidCredentials}, nil
	}

	user, err := domain.UserFromDoc(doc, s.cipher)
	if err != nil {
		return Validation{}, fmt.Errorf("validate %s: %w", userID, err)
	}
	return Validation{Outcome: OutcomeValid, User: user}, nil
}
