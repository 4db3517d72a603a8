package user

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"localcity/config"
	"localcity/database"
	userRepo "localcity/database/repository/user"
	"localcity/models"
	"localcity/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	userRepo.UserRepository
	mu   sync.Mutex
	byID map[string]models.User
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, database.ErrNotFound)
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, database.ErrNotFound)
}

func (r *memUsers) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = *u
	return nil
}

func (r *memUsers) UpdateFields(ctx context.Context, id string, fields bson.M) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, database.ErrNotFound)
	}
	for k, v := range fields {
		switch k {
		case "role":
			u.Role = v.(models.Role)
		case "status":
			u.Status = v.(models.UserStatus)
		case "lastLoginAt":
			at := v.(time.Time)
			u.LastLoginAt = &at
		}
	}
	r.byID[id] = u
	return &u, nil
}

func (r *memUsers) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newUserService(t *testing.T) (*DefaultUserService, *memUsers) {
	t.Helper()
	config.AppConfig.JWTSecret = "test-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	repo := &memUsers{byID: map[string]models.User{
		"admin-1": {ID: "admin-1", Email: "ops@localcity.test", Role: models.RoleAdmin, Status: models.UserActive, PasswordHash: hash(t, "Sup3r$ecret")},
		"admin-2": {ID: "admin-2", Email: "gone@localcity.test", Role: models.RoleAdmin, Status: models.UserSuspended, PasswordHash: hash(t, "Sup3r$ecret")},
		"cust-1":  {ID: "cust-1", Email: "ana@example.com", Role: models.RoleCustomer, Status: models.UserActive, PasswordHash: hash(t, "Sup3r$ecret")},
	}}
	svc, err := NewDefaultUserService(repo, time.Hour)
	require.NoError(t, err)
	svc.Now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestLoginIssuesAdminToken(t *testing.T) {
	svc, repo := newUserService(t)

	res, err := svc.Login(context.Background(), "  OPS@localcity.test ", "Sup3r$ecret")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", res.ID)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), res.ExpiresAt)

	claims, err := utils.ParseAdminToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.AdminClaims{UserID: "admin-1", Email: "ops@localcity.test", Role: models.RoleAdmin}, claims)
	require.NotNil(t, repo.byID["admin-1"].LastLoginAt)
}

func TestLoginRejections(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "ops@localcity.test", "wrong")
	require.ErrorIs(t, err, utils.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@localcity.test", "Sup3r$ecret")
	require.ErrorIs(t, err, utils.ErrUnauthorized)

	_, err = svc.Login(ctx, "ana@example.com", "Sup3r$ecret")
	require.ErrorIs(t, err, utils.ErrForbidden)

	_, err = svc.Login(ctx, "gone@localcity.test", "Sup3r$ecret")
	require.ErrorIs(t, err, utils.ErrForbidden)

	_, err = svc.Login(ctx, "", "")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestBootstrapAdmin(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.BootstrapAdmin(ctx, "", ""))
	require.Len(t, repo.byID, 3)

	err := svc.BootstrapAdmin(ctx, "first@localcity.test", "short")
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	require.NoError(t, svc.BootstrapAdmin(ctx, "First@localcity.test", "B00tstrap!pw"))
	u, err := repo.GetByEmail(ctx, "first@localcity.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, models.UserActive, u.Status)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("B00tstrap!pw")))

	// Second start finds the account and leaves it alone.
	require.NoError(t, svc.BootstrapAdmin(ctx, "first@localcity.test", "B00tstrap!pw"))
	require.Len(t, repo.byID, 4)
}

func TestAdminCannotLockThemselvesOut(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Suspend(ctx, "admin-1", "admin-1")
	require.ErrorIs(t, err, utils.ErrForbidden)
	_, err = svc.UpdateRole(ctx, "admin-1", models.RoleCustomer, "admin-1")
	require.ErrorIs(t, err, utils.ErrForbidden)
	require.ErrorIs(t, svc.DeleteUser(ctx, "admin-1", "admin-1"), utils.ErrForbidden)
}

func TestUserManagement(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	u, err := svc.Suspend(ctx, "cust-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserSuspended, u.Status)

	u, err = svc.Reactivate(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, u.Status)

	u, err = svc.UpdateRole(ctx, "cust-1", models.RoleMerchant, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMerchant, u.Role)

	_, err = svc.UpdateRole(ctx, "cust-1", "owner", "admin-1")
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	require.NoError(t, svc.DeleteUser(ctx, "cust-1", "admin-1"))
	_, ok := repo.byID["cust-1"]
	assert.False(t, ok)
	require.ErrorIs(t, svc.DeleteUser(ctx, "cust-1", "admin-1"), database.ErrNotFound)
}
