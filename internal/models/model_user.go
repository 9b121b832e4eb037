package models

import (
	"time"

	"github.com/fatflowers/lifecycle/pkg/types"
)

// User is owned by the main backend; the orchestrator only reads it and
// resets Plan when a subscription ends.
type User struct {
	ID        string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email     string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName  string         `gorm:"column:full_name;type:varchar(255)" json:"full_name"`
	UserType  types.UserType `gorm:"column:user_type;type:varchar(16);not null" json:"user_type"`
	Plan      string         `gorm:"column:plan;type:varchar(64);not null" json:"plan"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
