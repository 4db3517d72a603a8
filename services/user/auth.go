package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"localcity/database"
	"localcity/models"
	"localcity/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", utils.ErrUnauthorized)

// verifyPasswordComplexity checks that the password contains at least one lowercase letter,
// one uppercase letter, one digit, and one symbol.
func verifyPasswordComplexity(pw string) error {
	var (
		hasMinLen = len(pw) >= 8
		hasUpper  = regexp.MustCompile(`[A-Z]`).MatchString(pw)
		hasLower  = regexp.MustCompile(`[a-z]`).MatchString(pw)
		hasNumber = regexp.MustCompile(`[0-9]`).MatchString(pw)
		hasSymbol = regexp.MustCompile(`[\W_]`).MatchString(pw) // non-alphanumeric
	)
	if !hasMinLen {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if !hasUpper {
		return fmt.Errorf("password must include at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must include at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must include at least one number")
	}
	if !hasSymbol {
		return fmt.Errorf("password must include at least one symbol")
	}
	return nil
}

// Login checks an admin's credentials and issues a session token.
func (s *DefaultUserService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	logger := utils.GetLogger()
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", utils.ErrInvalidInput)
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		logger.Info("login for unknown email", zap.String("email", email))
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		logger.Info("login with wrong password", zap.String("userID", u.ID))
		return nil, errBadCredentials
	}
	if u.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: back-office access requires an admin account", utils.ErrForbidden)
	}
	if u.Status != models.UserActive {
		return nil, fmt.Errorf("%w: account is suspended", utils.ErrForbidden)
	}

	now := s.Now().UTC()
	token, err := utils.GenerateToken(models.AdminClaims{UserID: u.ID, Email: u.Email, Role: u.Role}, s.TokenTTL)
	if err != nil {
		logger.Error("Failed to generate admin token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	if _, err := s.Repo.UpdateFields(ctx, u.ID, bson.M{"lastLoginAt": now}); err != nil {
		logger.Warn("failed to record last login", zap.String("userID", u.ID), zap.Error(err))
	}
	logger.Info("admin logged in", zap.String("userID", u.ID))

	return &AuthResponse{
		ID:        u.ID,
		Token:     token,
		ExpiresAt: now.Add(s.TokenTTL),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
	}, nil
}

// BootstrapAdmin creates the first admin account on an empty install. It is a
// no-op when email is empty or an account with that email already exists.
func (s *DefaultUserService) BootstrapAdmin(ctx context.Context, email, password string) error {
	logger := utils.GetLogger()
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	existing, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			logger.Warn("bootstrap admin email belongs to a non-admin account", zap.String("userID", existing.ID))
		}
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	if err := verifyPasswordComplexity(password); err != nil {
		return fmt.Errorf("%w: bootstrap admin: %v", utils.ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	u := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         "Administrator",
		Role:         models.RoleAdmin,
		Status:       models.UserActive,
		PasswordHash: string(hash),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", zap.String("userID", u.ID), zap.String("email", email))
	return nil
}
