package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"todo-app/backend/internal/models"

	"gorm.io/gorm"
)

// CreateTaskInput is the create payload. Text is required; a nil IsShared
// means a personal task.
type CreateTaskInput struct {
	Text     *string `json:"text"`
	IsShared *bool   `json:"is_shared"`
}

type TaskService interface {
	ListPersonal(ctx context.Context, db *gorm.DB, caller *models.User) ([]models.Task, error)
	ListShared(ctx context.Context, db *gorm.DB, caller *models.User) ([]models.Task, error)
	CreateTask(ctx context.Context, db *gorm.DB, caller *models.User, input CreateTaskInput) (*models.Task, error)
	GetTask(ctx context.Context, db *gorm.DB, id uint) (*models.Task, error)
	UpdateTask(ctx context.Context, db *gorm.DB, caller *models.User, id uint, completed bool) (*models.Task, error)
	DeleteTask(ctx context.Context, db *gorm.DB, caller *models.User, id uint) error
}

type TaskServiceImpl struct{}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

func requireCaller(caller *models.User) error {
	if caller == nil || caller.ID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func (s *TaskServiceImpl) ListPersonal(ctx context.Context, db *gorm.DB, caller *models.User) ([]models.Task, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	err := db.WithContext(ctx).
		Where("owner_id = ? AND is_shared = ?", caller.ID, false).
		Order("created_at, id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list personal tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskServiceImpl) ListShared(ctx context.Context, db *gorm.DB, caller *models.User) ([]models.Task, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	err := db.WithContext(ctx).
		Where("is_shared = ?", true).
		Order("created_at, id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shared tasks: %w", err)
	}
	return tasks, nil
}

func validateText(text *string) (string, error) {
	if text == nil {
		return "", newValidationError("text", "is required")
	}
	trimmed := strings.TrimSpace(*text)
	if trimmed == "" {
		return "", newValidationError("text", "must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > models.MaxTaskTextLength {
		return "", newValidationError("text", fmt.Sprintf("must be at most %d characters", models.MaxTaskTextLength))
	}
	return trimmed, nil
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, db *gorm.DB, caller *models.User, input CreateTaskInput) (*models.Task, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	text, err := validateText(input.Text)
	if err != nil {
		return nil, err
	}

	isShared := false
	if input.IsShared != nil {
		isShared = *input.IsShared
	}

	task := models.Task{
		Text:      text,
		IsShared:  isShared,
		CreatedBy: caller.Username,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if !isShared {
		ownerID := caller.ID
		task.OwnerID = &ownerID
	}

	if err := db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, db *gorm.DB, id uint) (*models.Task, error) {
	var task models.Task
	if err := db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task %d: %w", id, err)
	}
	return &task, nil
}

// authorizedTask loads the task and applies the access check inside tx.
func (s *TaskServiceImpl) authorizedTask(ctx context.Context, tx *gorm.DB, caller *models.User, id uint) (*models.Task, error) {
	task, err := s.GetTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !task.CanAccess(caller.ID) {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, db *gorm.DB, caller *models.User, id uint, completed bool) (*models.Task, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var updated *models.Task
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.authorizedTask(ctx, tx, caller, id)
		if err != nil {
			return err
		}

		if err := tx.Model(task).Update("completed", completed).Error; err != nil {
			return fmt.Errorf("failed to update task %d: %w", id, err)
		}
		task.Completed = completed
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, db *gorm.DB, caller *models.User, id uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.authorizedTask(ctx, tx, caller, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(task).Error; err != nil {
			return fmt.Errorf("failed to delete task %d: %w", id, err)
		}
		return nil
	})
}
