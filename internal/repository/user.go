// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"beam/internal/cache"
	"beam/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetCaller(ctx context.Context, id uint) (*models.Caller, error)
	Create(ctx context.Context, user *models.User) error
	ListForMention(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCaller reads the identity and admin flag straight from the database. It never goes through
// the cache, so a demotion applies to the next request whether or not the writer could reach Redis.
func (r *userRepository) GetCaller(ctx context.Context, id uint) (*models.Caller, error) {
	var row struct {
		ID      uint
		IsAdmin bool
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).Select("id, is_admin").Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &models.Caller{ID: row.ID, IsAdmin: row.IsAdmin}, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if IsDuplicateKey(err) {
			return models.NewConflictError("User already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// ListForMention returns users whose name starts with prefix, case-insensitively, ordered by name.
func (r *userRepository) ListForMention(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	q := r.db.WithContext(ctx).Model(&models.User{}).Select("id, name, image")
	if prefix != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, prefixPattern(prefix))
	}
	if err := q.Order("LOWER(name) ASC").Order("id ASC").Limit(limit).Scan(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
