package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/warranty"
)

// MonitorService scans warranties and sends expiry reminders
type MonitorService struct {
	db       *gorm.DB
	settings *SettingsService
	notify   *NotifyService
	now      func() time.Time
}

// NewMonitorService creates a new monitoring service
func NewMonitorService(db *gorm.DB, settings *SettingsService, notify *NotifyService) *MonitorService {
	return &MonitorService{
		db:       db,
		settings: settings,
		notify:   notify,
		now:      time.Now,
	}
}

// dueItem is one product or installation whose reminder fires today
type dueItem struct {
	Name   string
	Expiry time.Time
	Days   int
}

// CheckAllWarranties checks the warranties of every account and returns the
// number of reminders sent
func (s *MonitorService) CheckAllWarranties() (int, error) {
	var accounts []models.Account
	if err := s.db.Find(&accounts).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	sent := 0
	for _, account := range accounts {
		n, err := s.CheckAccount(account)
		if err != nil {
			log.Error().Err(err).Uint("account_id", account.ID).Msg("reminder scan failed")
			continue
		}
		sent += n
	}
	return sent, nil
}

// CheckAccount sends the reminders due today for one account
func (s *MonitorService) CheckAccount(account models.Account) (int, error) {
	reminderDays := s.settings.ReminderDays(account.ID)

	var rows []models.Warranty
	if err := s.db.Where("account_id = ?", account.ID).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch warranties: %w", err)
	}
	log.Debug().Uint("account_id", account.ID).Int("warranties", len(rows)).Msg("checking warranties")

	today := s.now()
	email := s.operatorEmail(account.ID)
	sent := 0
	for _, w := range rows {
		due := dueReminders(w, reminderDays, today)
		if len(due) == 0 || s.notify.SentToday(w.ID, today) {
			continue
		}

		msg := s.operatorMessage(account.CompanyName, w, due)
		if err := s.notify.SendOperator(msg, email); err != nil {
			log.Error().Err(err).Str("warranty_id", w.ID).Msg("failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// dueReminders lists the items reaching their reminder threshold or their
// expiry day today
func dueReminders(w models.Warranty, defaultReminderDays int, today time.Time) []dueItem {
	var due []dueItem
	check := func(name string, expiry *time.Time, threshold int) {
		if expiry == nil {
			return
		}
		days := warranty.DaysUntil(*expiry, today)
		if days == threshold || days == 0 {
			due = append(due, dueItem{Name: name, Expiry: *expiry, Days: days})
		}
	}

	for _, p := range w.Products {
		check(p.ProductName, warranty.ProductExpiry(p), warranty.ReminderThreshold(p, defaultReminderDays))
	}
	check(serviceLabel(w), warranty.InstallationExpiry(w), defaultReminderDays)
	return due
}

func (s *MonitorService) operatorMessage(companyName string, w models.Warranty, due []dueItem) *Message {
	var body strings.Builder
	fmt.Fprintf(&body, "Customer: %s\n", w.CustomerName)
	if w.PhoneNumber != "" {
		fmt.Fprintf(&body, "Phone: %s\n", w.PhoneNumber)
	}
	for _, item := range due {
		fmt.Fprintf(&body, "- %s expires %s (%s)\n", item.Name, item.Expiry.Format(dateLayout), daysText(item.Days))
	}
	if companyName != "" {
		fmt.Fprintf(&body, "\n%s", companyName)
	}

	return &Message{
		AccountID:     w.AccountID,
		WarrantyID:    w.ID,
		Subject:       fmt.Sprintf("Warranty expiring: %s", w.CustomerName),
		Body:          body.String(),
		DaysRemaining: due[0].Days,
		ExpiryDate:    due[0].Expiry.Format(dateLayout),
	}
}

// NotifyCustomer sends the customer a reminder by email or WhatsApp
func (s *MonitorService) NotifyCustomer(accountID uint, warrantyID, channel string) error {
	var w models.Warranty
	if err := first(s.db, accountID, warrantyID, &w); err != nil {
		return err
	}

	var recipient string
	switch channel {
	case ChannelEmail:
		recipient = w.Email
	case ChannelWhatsApp:
		recipient = w.PhoneNumber
	default:
		return fmt.Errorf("%w: unsupported channel %q", ErrInvalidInput, channel)
	}

	msg := s.CustomerMessage(s.companyName(accountID), w, s.settings.ReminderDays(accountID))
	return s.notify.SendToCustomer(channel, recipient, msg)
}

// CustomerMessage renders the reminder addressed to the customer
func (s *MonitorService) CustomerMessage(companyName string, w models.Warranty, reminderDays int) *Message {
	today := s.now()
	info := warranty.StatusInfoAt(w, reminderDays, today)

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", w.CustomerName)
	body.WriteString("This is a reminder about your warranty coverage:\n")
	for _, p := range w.Products {
		fmt.Fprintf(&body, "- %s", p.ProductName)
		if p.SerialNumber != "" {
			fmt.Fprintf(&body, " (S/N %s)", p.SerialNumber)
		}
		fmt.Fprintf(&body, ": warranty until %s\n", formatDate(warranty.ProductExpiry(p)))
	}
	if expiry := warranty.InstallationExpiry(w); expiry != nil {
		fmt.Fprintf(&body, "- %s: warranty until %s\n", serviceLabel(w), formatDate(expiry))
	}
	if info.DaysRemaining != nil {
		fmt.Fprintf(&body, "\nStatus: %s (%s)\n", info.Status, daysText(*info.DaysRemaining))
	}
	body.WriteString("\nPlease contact us if you need any service before your warranty ends.\n")
	if companyName != "" {
		fmt.Fprintf(&body, "\n%s\n", companyName)
	}

	msg := &Message{
		AccountID:  w.AccountID,
		WarrantyID: w.ID,
		Subject:    "Warranty Expiry Reminder - " + reminderTarget(w, today),
		Body:       body.String(),
	}
	if info.DaysRemaining != nil {
		msg.DaysRemaining = *info.DaysRemaining
		msg.ExpiryDate = formatDate(info.ExpiryDate)
	}
	return msg
}

// reminderTarget names the first product still covered, else the
// installation service when still covered. An install date with a period
// counts as installation coverage even without the install flag.
func reminderTarget(w models.Warranty, today time.Time) string {
	for _, p := range w.Products {
		if p.WarrantyPeriod <= 0 {
			continue
		}
		if expiry := warranty.ProductExpiry(p); expiry != nil && warranty.DaysUntil(*expiry, today) >= 0 {
			return p.ProductName
		}
	}
	installExpiry := warranty.CalculateExpiryDate(w.InstallDate, w.InstallationWarrantyPeriod, w.InstallationWarrantyUnit)
	if installExpiry != nil && w.InstallationWarrantyPeriod > 0 && warranty.DaysUntil(*installExpiry, today) >= 0 {
		if w.ServiceName != "" {
			return w.ServiceName
		}
		return "Installation Service"
	}
	return "Your Product/Service"
}

// TriggerNotification manually sends the operator reminder for a warranty
func (s *MonitorService) TriggerNotification(accountID uint, warrantyID string) error {
	var w models.Warranty
	if err := first(s.db, accountID, warrantyID, &w); err != nil {
		return err
	}

	today := s.now()
	info := warranty.StatusInfoAt(w, s.settings.ReminderDays(accountID), today)
	if info.ExpiryDate == nil {
		return fmt.Errorf("%w: warranty has no expiry date", ErrInvalidInput)
	}

	item := dueItem{Name: w.CustomerName, Expiry: *info.ExpiryDate, Days: *info.DaysRemaining}
	if t := reminderTarget(w, today); t != "Your Product/Service" {
		item.Name = t
	}
	log.Info().Str("warranty_id", w.ID).Int("days_remaining", item.Days).Msg("triggering test notification")
	msg := s.operatorMessage(s.companyName(accountID), w, []dueItem{item})
	return s.notify.SendOperator(msg, s.operatorEmail(accountID))
}

// operatorEmail is where an account's own reminders go: the notification
// email from its settings, else the owner's email
func (s *MonitorService) operatorEmail(accountID uint) string {
	if settings, err := s.settings.Get(accountID); err == nil && settings.NotifyEmail != "" {
		return settings.NotifyEmail
	}

	var owner models.User
	err := s.db.Where("account_id = ? AND role = ?", accountID, models.RoleOwner).Order("id asc").First(&owner).Error
	if err != nil {
		log.Warn().Err(err).Uint("account_id", accountID).Msg("account has no owner")
		return ""
	}
	return owner.Email
}

func (s *MonitorService) companyName(accountID uint) string {
	var account models.Account
	if err := s.db.First(&account, accountID).Error; err != nil {
		log.Warn().Err(err).Uint("account_id", accountID).Msg("failed to load account")
		return ""
	}
	return account.CompanyName
}

func daysText(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("expired %d days ago", -days)
	case days == 0:
		return "expires today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}
