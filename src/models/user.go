package models

import "cwms/src/types"

// User is a guest account with no membership attached. Guests can book
// resources but never consume credits or plan discounts.
type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Email string `gorm:"uniqueIndex" json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `gorm:"default:'guest'" json:"role,omitempty"`

	types.Timestamps
}
