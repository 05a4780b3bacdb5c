package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bybo/bybo-be/internal/auth"
	"github.com/bybo/bybo-be/internal/database"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/rs/zerolog/log"
)

// AuthServiceProvider defines the interface for session token handling.
type AuthServiceProvider interface {
	Login(ctx context.Context, username, password string) (string, models.User, error)
	IssueToken(user models.User) (string, error)
	VerifyToken(ctx context.Context, token string) (*auth.Identity, error)
	Logout(ctx context.Context, token string) error
	PruneRevokedTokens(ctx context.Context) (int64, error)
}

// AuthService issues, verifies and revokes session tokens.
type AuthService struct {
	db     *sql.DB
	users  UserServiceProvider
	tokens *auth.TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(db *sql.DB, users UserServiceProvider, tokens *auth.TokenManager) *AuthService {
	return &AuthService{db: db, users: users, tokens: tokens}
}

// Login authenticates a user and issues a token for them.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, models.User, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return "", models.User{}, err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

// IssueToken signs a token embedding the user's id and username.
func (s *AuthService) IssueToken(user models.User) (string, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", apperrors.Internal("failed to issue token", err)
	}
	return token, nil
}

// VerifyToken validates a token and checks it has not been revoked.
// Every failure is reported as ErrUnauthorized.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*auth.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithCause(err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE jti = ?`, id.TokenID).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return id, nil
	case err != nil:
		return nil, fmt.Errorf("check revocation: %w", err)
	default:
		return nil, apperrors.Unauthorized("token has been revoked")
	}
}

// Logout revokes a token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	id, err := s.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
		id.TokenID, database.FormatTime(id.ExpiresAt))
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	log.Info().Str("user_id", id.UserID).Msg("Token revoked")
	return nil
}

// PruneRevokedTokens drops revocations whose tokens have expired.
func (s *AuthService) PruneRevokedTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, database.FormatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("prune revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
