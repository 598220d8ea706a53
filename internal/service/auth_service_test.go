package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/claim-service/internal/config"
	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/repository"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

type fakeAccountRepo struct {
	accounts map[string]*domain.Account
	nextID   int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*domain.Account{}}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.nextID++
	account.ID = fmt.Sprintf("acct-%d", r.nextID)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if _, ok := r.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) List(_ context.Context, _ repository.AccountFilter) ([]domain.Account, error) {
	var result []domain.Account
	for _, account := range r.accounts {
		result = append(result, *account)
	}
	return result, nil
}

type fakeResetRepo struct {
	tokens map[string]*repository.PasswordResetToken
	nextID int
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]*repository.PasswordResetToken{}}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.nextID++
	token.ID = fmt.Sprintf("reset-%d", r.nextID)
	token.CreatedAt = time.Now()
	stored := *token
	r.tokens[token.Token] = &stored
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	for _, token := range r.tokens {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newAuthFixture() (*AuthService, *fakeAccountRepo, *fakeResetRepo) {
	accounts := newFakeAccountRepo()
	resets := newFakeResetRepo()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{AccountRepo: accounts, PasswordResetRepo: resets})
	return svc, accounts, resets
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()

	account, token, exp, err := svc.Register(ctx, RegisterInput{
		Name:     "Pat Coordinator",
		Email:    "Pat@Example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleCoordinator,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))
	assert.Equal(t, "pat@example.com", account.Email)
	assert.Equal(t, domain.RoleCoordinator, account.Role)

	loggedIn, token2, _, err := svc.Login(ctx, "pat@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, account.ID, loggedIn.ID)
	assert.NotEmpty(t, token2)

	claims, err := svc.TokenManager().ParseToken(token2)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, domain.RoleCoordinator, claims.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, RegisterInput{
		Name: "One", Email: "a@b.co", Password: "password1", Role: domain.RoleHR,
	})
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, RegisterInput{
		Name: "Two", Email: "a@b.co", Password: "password2", Role: domain.RoleHR,
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, _, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "X", Email: "x@y.co", Password: "password1", Role: domain.Role("ADMIN"),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()
	_, _, _, err := svc.Register(ctx, RegisterInput{
		Name: "One", Email: "a@b.co", Password: "password1", Role: domain.RoleManager,
	})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "a@b.co", "wrong")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, accounts, _ := newAuthFixture()
	ctx := context.Background()
	account, _, _, err := svc.Register(ctx, RegisterInput{
		Name: "One", Email: "a@b.co", Password: "password1", Role: domain.RoleLecturer,
	})
	require.NoError(t, err)

	accounts.accounts[account.ID].Active = false
	_, _, _, err = svc.Login(ctx, "a@b.co", "password1")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()
	_, _, _, err := svc.Register(ctx, RegisterInput{
		Name: "One", Email: "a@b.co", Password: "password1", Role: domain.RoleHR,
	})
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, "a@b.co")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "brand-new-pass"))

	_, _, _, err = svc.Login(ctx, "a@b.co", "password1")
	require.Error(t, err)
	_, _, _, err = svc.Login(ctx, "a@b.co", "brand-new-pass")
	require.NoError(t, err)

	// A used token cannot be replayed.
	err = svc.ConfirmPasswordReset(ctx, token.Token, "another-pass")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()
	account, _, _, err := svc.Register(ctx, RegisterInput{
		Name: "One", Email: "a@b.co", Password: "password1", Role: domain.RoleHR,
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, account.ID, "wrong", "new-password")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	require.NoError(t, svc.ChangePassword(ctx, account.ID, "password1", "new-password"))
	_, _, _, err = svc.Login(ctx, "a@b.co", "new-password")
	require.NoError(t, err)
}
