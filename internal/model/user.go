package model

import (
	"fmt"
	"strings"
	"time"
)

// User is a patient or therapist. Accounts are owned by the user subsystem;
// plans only reference them by ID.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TelegramID *int64    `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u User) String() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("User %d", u.ID)
}
