package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/warranty"
)

// Setting keys
const (
	SettingExpiryReminderDays = "expiry_reminder_days"
	SettingNotifyEmail        = "notify_email"
)

// AppSettings are the per-account preferences
type AppSettings struct {
	ExpiryReminderDays int `json:"expiry_reminder_days"`

	// NotifyEmail receives the account's expiry reminders; empty means the
	// owner's email
	NotifyEmail string `json:"notify_email"`
}

// SettingsService reads and writes account settings
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the account settings, falling back to defaults for missing or
// malformed values
func (s *SettingsService) Get(accountID uint) (AppSettings, error) {
	settings := AppSettings{ExpiryReminderDays: warranty.DefaultReminderDays}

	var rows []models.Setting
	if err := s.db.Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}

	for _, row := range rows {
		switch row.Key {
		case SettingExpiryReminderDays:
			if days, err := cast.ToIntE(row.Value); err == nil && days >= 1 {
				settings.ExpiryReminderDays = days
			}
		case SettingNotifyEmail:
			settings.NotifyEmail = row.Value
		}
	}
	return settings, nil
}

// Update stores the account settings
func (s *SettingsService) Update(accountID uint, settings AppSettings) error {
	if settings.ExpiryReminderDays < 1 {
		return fmt.Errorf("%w: expiry reminder days must be at least 1", ErrInvalidInput)
	}

	email := strings.TrimSpace(settings.NotifyEmail)
	if email != "" && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid notification email", ErrInvalidInput)
	}

	rows := []models.Setting{
		{AccountID: accountID, Key: SettingExpiryReminderDays, Value: strconv.Itoa(settings.ExpiryReminderDays)},
		{AccountID: accountID, Key: SettingNotifyEmail, Value: email},
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

// ReminderDays is a shortcut for the account's default threshold
func (s *SettingsService) ReminderDays(accountID uint) int {
	settings, _ := s.Get(accountID)
	return settings.ExpiryReminderDays
}
