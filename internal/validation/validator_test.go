package validation_test

import (
	"net/http"
	"testing"

	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Email string `json:"email" validate:"required,email"`
	Days  []int  `json:"days" validate:"required,min=1,max=7,dive,gte=0,lte=6"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(testRequest{Email: "a@example.com", Days: []int{0, 6}}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       testRequest
		wantField string
	}{
		{"missing email", testRequest{Days: []int{1}}, "email"},
		{"bad email", testRequest{Email: "nope", Days: []int{1}}, "email"},
		{"no days", testRequest{Email: "a@example.com"}, "days"},
		{"weekday out of range", testRequest{Email: "a@example.com", Days: []int{1, 7}}, "days[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))

			var domainErr *apperrors.Error
			require.ErrorAs(t, err, &domainErr)
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}
