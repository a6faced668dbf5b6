package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hazard-map/internal/model"
)

// UserRepository is the identity and role store. Users are created lazily
// on first contact and never deleted.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate finds a user by Telegram id, creating an empty record on
// first contact. The second return value reports whether a row was created.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64) (*model.User, bool, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		return &user, false, nil
	case err == gorm.ErrRecordNotFound:
		user = model.User{TelegramID: telegramID}
		if err := db.Create(&user).Error; err != nil {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		return &user, true, nil
	default:
		return nil, false, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetMapCenter overwrites the stored map center. Idempotent.
func (r *UserRepository) SetMapCenter(ctx context.Context, telegramID int64, lat, lon float64) error {
	user, _, err := r.GetOrCreate(ctx, telegramID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"map_center_lat": lat,
		"map_center_lon": lon,
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("set map center: %w", err)
	}
	return nil
}

// PromoteToAdmin grants admin rights, creating the user record if absent.
// Authorization is the caller's job.
func (r *UserRepository) PromoteToAdmin(ctx context.Context, telegramID int64) error {
	user, _, err := r.GetOrCreate(ctx, telegramID)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(user).Update("is_admin", true).Error; err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	return nil
}

func (r *UserRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		return user.IsAdmin, nil
	case err == gorm.ErrRecordNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("find user: %w", err)
	}
}
