package models

import "time"

const MaxTaskTextLength = 500

// Task is a to-do item. A shared task has no owner; a personal task always has
// one. Both IsShared and OwnerID are fixed at creation.
type Task struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"size:500;not null"`
	Completed bool      `json:"completed" gorm:"not null;default:false"`
	IsShared  bool      `json:"is_shared" gorm:"not null;default:false;index"`
	CreatedBy string    `json:"created_by" gorm:"size:80;not null"`
	CreatedAt time.Time `json:"created_at"`

	OwnerID *uint `json:"-" gorm:"index"`
}

// CanAccess reports whether the user may mutate the task.
func (t *Task) CanAccess(userID uint) bool {
	if t.IsShared {
		return true
	}
	return t.OwnerID != nil && *t.OwnerID == userID
}

// IsPersonalOf reports whether the task is a personal task owned by userID.
func (t *Task) IsPersonalOf(userID uint) bool {
	return !t.IsShared && t.OwnerID != nil && *t.OwnerID == userID
}
