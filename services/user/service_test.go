package user

import (
	"context"
	"testing"

	"footyreserve/database/repository/memory"
	"footyreserve/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserService() (*DefaultUserService, *memory.UserRepo) {
	repo := memory.NewUserRepo()
	return &DefaultUserService{Users: repo, Logger: zap.NewNop()}, repo
}

func signupInput() SignupInput {
	return SignupInput{
		FirstName: "Jess",
		LastName:  "Okafor",
		Email:     "jess@example.com",
		Password:  "long-enough-password",
	}
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, "long-enough-password", res.User.PasswordHash)

	login, err := svc.Login(ctx, "jess@example.com", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestSignupNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	in := signupInput()
	in.Email = "  JESS@Example.com "
	_, err = svc.Signup(ctx, in)
	assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newUserService()
	in := signupInput()
	in.Password = "short"
	_, err := svc.Signup(context.Background(), in)
	assert.Equal(t, utils.CodeValidation, utils.CodeOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "jess@example.com", "not-it")
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))

	// Unknown accounts fail the same way; no account enumeration.
	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)

	// A garbage token is rejected outright.
	_, err = svc.Refresh(ctx, "not-a-jwt")
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
}

func TestRefreshRevokedToken(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	u, err := repo.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	u.RefreshToken = ""
	require.NoError(t, repo.Update(ctx, u))

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))
}
