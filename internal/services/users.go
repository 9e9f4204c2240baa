package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"todo-app/backend/internal/config"
	"todo-app/backend/internal/models"

	"gorm.io/gorm"
)

type UserService interface {
	SeedUsers(ctx context.Context, db *gorm.DB, credentials []config.Credential) (int, error)
	DeleteUser(ctx context.Context, db *gorm.DB, id uint) (int64, error)
}

type UserServiceImpl struct {
	bcryptCost int
}

func NewUserService(bcryptCost int) *UserServiceImpl {
	return &UserServiceImpl{bcryptCost: bcryptCost}
}

// SeedUsers creates the users that do not exist yet and returns how many were
// created. Existing users keep their stored password hash.
func (s *UserServiceImpl) SeedUsers(ctx context.Context, db *gorm.DB, credentials []config.Credential) (int, error) {
	created := 0

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cred := range credentials {
			if cred.Username == "" || cred.Password == "" {
				return newValidationError("credentials", "must have a username and a password")
			}

			var existing models.User
			err := tx.Where("username = ?", cred.Username).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up user %s: %w", cred.Username, err)
			}

			hash, err := HashPassword(cred.Password, s.bcryptCost)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", cred.Username, err)
			}

			user := models.User{Username: cred.Username, PasswordHash: hash}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user %s: %w", cred.Username, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("✅ Seeded users: %d created, %d already present", created, len(credentials)-created)
	return created, nil
}

// DeleteUser removes the user and every personal task it owns. Shared tasks
// are kept. It returns the number of personal tasks removed.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, db *gorm.DB, id uint) (int64, error) {
	var removed int64

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user %d: %w", id, err)
		}

		result := tx.Where("owner_id = ? AND is_shared = ?", id, false).Delete(&models.Task{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete personal tasks of user %d: %w", id, result.Error)
		}
		removed = result.RowsAffected

		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
