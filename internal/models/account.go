package models

import (
	"time"
)

// User roles inside a company account
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Account is a company; every record belongs to exactly one account
type Account struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CompanyName string    `gorm:"not null" json:"company_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User represents a login under a company account
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	AccountID uint      `gorm:"index;not null" json:"account_id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"` // Username
	Password  string    `gorm:"not null" json:"-"`                    // Hashed password (excluded from JSON)
	Email     string    `json:"email"`                                // Email
	Role      string    `gorm:"default:member" json:"role"`           // owner/member
	IsActive  bool      `gorm:"default:true" json:"is_active"`        // Account status
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting is a per-account key/value configuration entry
type Setting struct {
	AccountID uint   `gorm:"primarykey" json:"-"`
	Key       string `gorm:"primarykey" json:"key"`
	Value     string `json:"value"`
}

// Notification represents a reminder that was sent (or attempted)
type Notification struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	AccountID     uint      `gorm:"index" json:"-"`
	WarrantyID    string    `gorm:"index" json:"warranty_id"` // Associated warranty
	Channel       string    `json:"channel"`                  // email/webhook/telegram/dingding/whatsapp
	Recipient     string    `json:"recipient"`                // operator or customer
	Content       string    `json:"content"`                  // Notification content
	DaysRemaining int       `json:"days_remaining"`
	Status        string    `json:"status"` // Send status (success/failed)
	SentAt        time.Time `json:"sent_at"`
}

// PendingSubmission parks a warranty submission while the user decides which
// newly detected catalog entities to keep.
type PendingSubmission struct {
	ID        string    `gorm:"primarykey;size:32" json:"id"`
	AccountID uint      `gorm:"index;not null" json:"-"`
	UserID    uint      `json:"user_id"`
	State     string    `json:"state"`
	Warranty  Warranty  `gorm:"type:text;serializer:json" json:"warranty"`
	Proposal  Proposal  `gorm:"type:text;serializer:json" json:"proposal"`
	CreatedAt time.Time `json:"created_at"`
}

// Proposal lists catalog entities named by a warranty that are not yet saved
type Proposal struct {
	Customer *Customer      `json:"customer"`
	Products []SavedProduct `json:"products"`
	Service  *SavedService  `json:"service"`
}

// IsEmpty reports whether nothing new was detected
func (p Proposal) IsEmpty() bool {
	return p.Customer == nil && len(p.Products) == 0 && p.Service == nil
}
