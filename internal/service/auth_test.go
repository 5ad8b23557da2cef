package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/auth"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0, auth.Verified)
	require.NoError(t, err)

	// Cost 4 is the bcrypt minimum and keeps tests fast.
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, testValidator(t), testLogger()), ts
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "A",
		Email:    "  A@X.com ",
		Password: "abcdef",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, auth.AvatarURL("a@x.com"), user.AvatarURL)
	assert.NotEqual(t, "abcdef", user.PasswordHash)
	assert.NoError(t, auth.NewPasswordServiceForTest(4).Verify(user.PasswordHash, "abcdef"))
	assert.Len(t, repo.users, 1)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	in := RegisterInput{Name: "A", Email: "a@x.com", Password: "abcdef"}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	in.Email = "A@x.com"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "User already registered", err.Error())
	assert.Len(t, repo.users, 1, "a duplicate registration must never create a second user")
}

func TestRegister_ValidationListsEveryViolation(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "nope", Password: "123"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Fields, 3)
	assert.Equal(t, "name", appErr.Fields[0].Field)
	assert.Equal(t, "Please include a valid email", appErr.Fields[1].Message)
	assert.Equal(t, "password", appErr.Fields[2].Field)
	assert.Empty(t, repo.users)
}

func TestRegister_PasswordLongerThanBcryptAllows(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "A",
		Email:    "a@x.com",
		Password: strings.Repeat("p", 80),
	})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "password", appErr.Fields[0].Field)
	assert.Equal(t, "Please enter a password of 72 bytes or fewer", appErr.Fields[0].Message)
	assert.Empty(t, repo.users)
}

func TestRegister_StoreFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errDatabaseDown
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "abcdef"})
	assert.ErrorIs(t, err, errDatabaseDown)
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)

	user, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), LoginInput{Email: "A@X.COM", Password: "abcdef"})
	require.NoError(t, err)

	id, err := ts.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLogin_UniformFailure(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "wrong-one"})
	_, unknownEmail := svc.Login(context.Background(), LoginInput{Email: "b@x.com", Password: "abcdef"})

	require.ErrorIs(t, wrongPassword, apperror.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, apperror.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestMe(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	seeded := repo.seed("Ada", "ada@example.com")

	user, err := svc.Me(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	delete(repo.users, seeded.ID)
	_, err = svc.Me(context.Background(), seeded.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Me(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
