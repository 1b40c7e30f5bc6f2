// Package services contains server-side business logic. This file implements
// AuthService, which verifies username/password pairs against the stored
// salted digests, issues session tokens, and manages user credentials.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkovs/cookiegate/internal/common"
	"github.com/avolkovs/cookiegate/internal/dbx"
	"github.com/avolkovs/cookiegate/internal/logging"
	"github.com/avolkovs/cookiegate/internal/server/credential"
	"github.com/avolkovs/cookiegate/internal/server/models"
	"github.com/avolkovs/cookiegate/internal/server/repositories/repomanager"
	"github.com/avolkovs/cookiegate/internal/server/session"
)

// AuthService provides authentication-related operations:
// - Authenticate: verify credentials against the store
// - Login: verify credentials and mint a session token
// - Register / ChangePassword: manage stored credentials
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *session.Issuer
	policy      session.Policy
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, issuer *session.Issuer, policy session.Policy, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		sessions:    issuer,
		policy:      policy,
		logger:      logger.With("module", "auth_service"),
	}
}

// Authenticate verifies a username/password pair. The username is matched
// exactly, case-sensitively. An unknown username and a wrong password both
// come back as common.ErrInvalidCredentials: callers (and end users) must
// not be able to tell them apart. The internal reason is logged for
// operators only. The stored record is never modified.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	if username == "" || password == "" {
		return nil, common.ErrInvalidInput
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info(ctx, "authentication failed", "reason", "user not found", "username", username)
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "credential store lookup failed", "error", err.Error())
		return nil, common.ErrInternal
	}

	ok, err := credential.Check(user.PasswordHash, password, user.Salt)
	if err != nil {
		return nil, common.ErrInternal
	}
	if !ok {
		s.logger.Info(ctx, "authentication failed", "reason", "wrong password", "username", username)
		return nil, common.ErrInvalidCredentials
	}

	return &models.Identity{Username: user.Username, Role: user.Role}, nil
}

// Login authenticates and, on success, issues a session token under the
// service's policy.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	identity, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	token, err := s.sessions.Issue(*identity, s.policy)
	if err != nil {
		s.logger.Error(ctx, "session issue failed", "error", err.Error())
		return "", common.ErrInternal
	}

	s.logger.Info(ctx, "session issued", "username", identity.Username, "role", identity.Role)
	return token, nil
}

// Register creates a user record with a fresh salt. The salt is generated
// exactly once here; password checks never regenerate it.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*models.User, error) {
	if username == "" || password == "" || role == "" {
		return nil, common.ErrInvalidInput
	}

	salt, err := credential.NewSalt()
	if err != nil {
		return nil, err
	}
	digest, err := credential.Hash(password, salt)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Role: role, Salt: salt, PasswordHash: digest}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// ChangePassword re-verifies the current password, then swaps salt and
// digest together inside a transaction, so a stored salt can never end up
// paired with a digest computed from a different salt.
func (s *AuthService) ChangePassword(ctx context.Context, username, current, next string) error {
	if next == "" {
		return common.ErrInvalidInput
	}
	if _, err := s.Authenticate(ctx, username, current); err != nil {
		return err
	}

	salt, err := credential.NewSalt()
	if err != nil {
		return err
	}
	digest, err := credential.Hash(next, salt)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).UpdatePassword(ctx, username, salt, digest)
	})
}

// Profile returns the public part of a stored user record.
func (s *AuthService) Profile(ctx context.Context, username string) (*models.Profile, error) {
	if username == "" {
		return nil, common.ErrInvalidInput
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	return &models.Profile{Username: user.Username, Role: user.Role, CreatedAt: user.CreatedAt}, nil
}
