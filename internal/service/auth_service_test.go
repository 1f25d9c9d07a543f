package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            4,
		},
	}
}

func TestRegisterDefaultsToCustomerRole(t *testing.T) {
	svc := NewAuthService(testConfig(), newMemUserRepo())

	user, token, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "dana",
		Email:    "Dana@Example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "hunter2", user.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewAuthService(testConfig(), newMemUserRepo())

	input := RegisterInput{Username: "dana", Email: "dana@example.com", Password: "hunter2"}
	_, _, _, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), input)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(testConfig(), newMemUserRepo())

	_, _, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "dana@example.com", "wrong")
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)

	// Unknown account fails the same way, without leaking which part
	// was wrong.
	_, _, _, err = svc.Login(context.Background(), "ghost@example.com", "hunter2")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}

func TestUpdateProfileCannotChangeRole(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewAuthService(testConfig(), repo)

	user, _, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)

	newName := "dana2"
	updated, err := svc.UpdateProfile(context.Background(), user, ProfileUpdateInput{Username: &newName})
	require.NoError(t, err)
	assert.Equal(t, "dana2", updated.Username)
	assert.Equal(t, domain.RoleCustomer, updated.Role)
}
