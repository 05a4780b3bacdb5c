package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bybo/bybo-be/internal/auth"
	"github.com/bybo/bybo-be/internal/database"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/google/uuid"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Bio       *string
}

// UserService persists user credentials and profiles.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, bio, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var (
		user      models.User
		bio       sql.NullString
		createdAt database.Timestamp
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &bio, &createdAt)
	if err != nil {
		return models.User{}, err
	}
	if bio.Valid {
		user.Bio = &bio.String
	}
	user.CreatedAt = createdAt.Time
	return user, nil
}

// Register creates a new user, hashing their password.
// Username or email collisions are reported as ErrDuplicateIdentity.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	hashedPassword, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return models.User{}, apperrors.Validation("password is too long")
		}
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bio:          in.Bio,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Bio, database.FormatTime(user.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, apperrors.ErrDuplicateIdentity
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies a user's credentials.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	// user.PasswordHash is empty for unknown users; CheckPassword still burns a comparison.
	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperrors.NotFound("user not found")
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}
