package models

import "time"

// User is a login identity. Users are created by the startup seed and are
// never updated through the API.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:80;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:120;not null"`
	CreatedAt    time.Time `json:"-"`

	// Personal tasks only; shared tasks carry no owner.
	Tasks []Task `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}
