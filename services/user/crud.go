package user

import (
	"context"
	"fmt"

	"localcity/models"
	"localcity/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func (s *DefaultUserService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	return s.Repo.List(ctx, filter)
}

func (s *DefaultUserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.Repo.GetByID(ctx, id)
}

func validRole(r models.Role) bool {
	switch r {
	case models.RoleCustomer, models.RoleMerchant, models.RoleAdmin:
		return true
	}
	return false
}

// notSelf stops an admin from locking themselves out.
func notSelf(id, actorID, action string) error {
	if id == actorID {
		return fmt.Errorf("%w: you cannot %s your own account", utils.ErrForbidden, action)
	}
	return nil
}

func (s *DefaultUserService) UpdateRole(ctx context.Context, id string, role models.Role, actorID string) (*models.User, error) {
	if !validRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", utils.ErrInvalidInput, role)
	}
	if role != models.RoleAdmin {
		if err := notSelf(id, actorID, "demote"); err != nil {
			return nil, err
		}
	}
	u, err := s.Repo.UpdateFields(ctx, id, bson.M{"role": role})
	if err != nil {
		return nil, err
	}
	utils.GetLogger().Info("user role changed", zap.String("userID", id), zap.String("role", string(role)), zap.String("adminID", actorID))
	return u, nil
}

func (s *DefaultUserService) Suspend(ctx context.Context, id, actorID string) (*models.User, error) {
	if err := notSelf(id, actorID, "suspend"); err != nil {
		return nil, err
	}
	u, err := s.Repo.UpdateFields(ctx, id, bson.M{"status": models.UserSuspended})
	if err != nil {
		return nil, err
	}
	utils.GetLogger().Info("user suspended", zap.String("userID", id), zap.String("adminID", actorID))
	return u, nil
}

func (s *DefaultUserService) Reactivate(ctx context.Context, id string) (*models.User, error) {
	return s.Repo.UpdateFields(ctx, id, bson.M{"status": models.UserActive})
}

func (s *DefaultUserService) DeleteUser(ctx context.Context, id, actorID string) error {
	if err := notSelf(id, actorID, "delete"); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	utils.GetLogger().Info("user deleted", zap.String("userID", id), zap.String("adminID", actorID))
	return nil
}
