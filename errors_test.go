package exocore_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exograph/exo-core"
)

func TestValidationError(t *testing.T) {
	err := exocore.NewValidationError("SelectionSetTooDeep", "depth 12 exceeds limit 10")
	assert.Equal(t, `exocore: SelectionSetTooDeep: depth 12 exceeds limit 10`, err.Error())
	assert.True(t, errors.Is(err, exocore.ErrValidation))
	assert.True(t, exocore.IsValidation(err))
	assert.True(t, exocore.IsValidation(fmt.Errorf("wrap: %w", err)))
	assert.False(t, exocore.IsValidation(errors.New("other")))
}

func TestAuthorizationError(t *testing.T) {
	t.Run("entity", func(t *testing.T) {
		err := exocore.NewAuthorizationError("User")
		assert.Contains(t, err.Error(), "User")
		assert.True(t, errors.Is(err, exocore.ErrAuthorization))
	})

	t.Run("field", func(t *testing.T) {
		err := exocore.NewFieldAuthorizationError("Post", "author")
		assert.Contains(t, err.Error(), "author")
		assert.Contains(t, err.Error(), "Post")
		assert.True(t, errors.Is(err, exocore.ErrAuthorization))
	})

	t.Run("precheck maps to both kinds", func(t *testing.T) {
		err := exocore.NewPrecheckError("Order")
		assert.True(t, errors.Is(err, exocore.ErrAuthorization))
		assert.True(t, errors.Is(err, exocore.ErrPrecheck))
	})
}

func TestPostgresError(t *testing.T) {
	underlying := errors.New("duplicate key value violates unique constraint")
	err := exocore.NewPostgresError("23505", "users", "email", "users_email_key", underlying)
	assert.Contains(t, err.Error(), "23505")
	assert.Contains(t, err.Error(), "users")
	assert.Contains(t, err.Error(), "users_email_key")
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, exocore.IsPostgres(err))
}

func TestNonUniqueResultError(t *testing.T) {
	err := exocore.NewNonUniqueResultError(3)
	assert.Equal(t, "exocore: expected at most one result, got 3", err.Error())
	assert.True(t, errors.Is(err, exocore.ErrNonUniqueResult))
	assert.True(t, exocore.IsNonUniqueResult(err))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, exocore.Wrap("ctx", nil))

	underlying := errors.New("boom")
	err := exocore.Wrap("planning select", underlying)
	assert.True(t, errors.Is(err, underlying))
	assert.Contains(t, err.Error(), "planning select")
}
