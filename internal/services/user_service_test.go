package services

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	bio := "Gardener"

	user, err := env.users.Register(ctx, RegisterInput{
		Username:  "ann",
		Email:     "ann@example.com",
		Password:  "hunter22",
		FirstName: "Ann",
		LastName:  "Lee",
		Bio:       &bio,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Empty(t, user.PasswordHash)

	var stored string
	require.NoError(t, env.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, user.ID).Scan(&stored))
	assert.NotEqual(t, "hunter22", stored)
	assert.True(t, strings.HasPrefix(stored, "$2"))

	got, err := env.users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Username)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "Gardener", *got.Bio)
	assert.Empty(t, got.PasswordHash)
}

func TestUserService_Register_DuplicateIdentity(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	first := env.register(t, "ann")

	t.Run("same email, different username", func(t *testing.T) {
		_, err := env.users.Register(ctx, RegisterInput{
			Username: "annie", Email: "ann@example.com", Password: "other-pass", FirstName: "A", LastName: "B",
		})
		assert.ErrorIs(t, err, apperrors.ErrDuplicateIdentity)
	})

	t.Run("same username, different email", func(t *testing.T) {
		_, err := env.users.Register(ctx, RegisterInput{
			Username: "ann", Email: "other@example.com", Password: "other-pass", FirstName: "A", LastName: "B",
		})
		assert.ErrorIs(t, err, apperrors.ErrDuplicateIdentity)
	})

	// The pre-existing user is unaffected and can still log in with the old password.
	got, err := env.users.Authenticate(ctx, "ann", "password-ann")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "ann@example.com", got.Email)
}

func TestUserService_Authenticate(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	ann := env.register(t, "ann")

	user, err := env.users.Authenticate(ctx, "ann", "password-ann")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, wrongPassword := env.users.Authenticate(ctx, "ann", "wrong")
	_, unknownUser := env.users.Authenticate(ctx, "nobody", "password-ann")

	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, apperrors.ErrInvalidCredentials)
	// No distinguishable difference between the two failures.
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	env := setupTest(t)

	_, err := env.users.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
