// Package warranty holds the pure warranty computations: expiry dates,
// status classification, new catalog entity detection and the submission
// flow. Nothing here touches storage or the clock unless asked to.
package warranty

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"warranty-tracker/internal/models"
)

// DefaultReminderDays is used when an account has not configured a threshold
const DefaultReminderDays = 30

// Status is the overall classification of a warranty
type Status string

const (
	StatusActive   Status = "Active"
	StatusExpiring Status = "Expiring"
	StatusExpired  Status = "Expired"
)

// urgency orders statuses; higher wins
func (s Status) urgency() int {
	switch s {
	case StatusExpired:
		return 2
	case StatusExpiring:
		return 1
	}
	return 0
}

// Color is the presentation tag for the status
func (s Status) Color() string {
	switch s {
	case StatusExpired:
		return "red"
	case StatusExpiring:
		return "yellow"
	}
	return "green"
}

// ParseStatus accepts the status names case-insensitively
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, true
	case "expiring", "expiringsoon", "expiring_soon":
		return StatusExpiring, true
	case "expired":
		return StatusExpired, true
	}
	return "", false
}

// StatusInfo is the result of classifying a warranty
type StatusInfo struct {
	Status        Status     `json:"status"`
	Color         string     `json:"color"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
}

// ParseDate turns a form date into a local calendar date (midnight).
// Empty or unparseable input yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseIn(s, time.Local)
	if err != nil {
		return nil
	}
	d := midnight(t)
	return &d
}

// CalculateExpiryDate adds period units to startDate. Month and year
// arithmetic clamps to the last day of the resulting month, so Jan 31 plus
// one month is the last day of February. Unknown units count as days.
func CalculateExpiryDate(startDate string, period int, unit models.DurationUnit) *time.Time {
	start := ParseDate(startDate)
	if start == nil {
		return nil
	}

	var expiry time.Time
	switch unit {
	case models.UnitWeeks:
		expiry = start.AddDate(0, 0, 7*period)
	case models.UnitMonths:
		expiry = addMonths(*start, period)
	case models.UnitYears:
		expiry = addMonths(*start, 12*period)
	default:
		expiry = start.AddDate(0, 0, period)
	}
	return &expiry
}

// ProductExpiry is the expiry of one product line
func ProductExpiry(p models.Product) *time.Time {
	return CalculateExpiryDate(p.PurchaseDate, p.WarrantyPeriod, p.WarrantyUnit)
}

// EarliestProductExpiry returns the minimum expiry across products, or nil
func EarliestProductExpiry(products []models.Product) *time.Time {
	var earliest *time.Time
	for _, p := range products {
		expiry := ProductExpiry(p)
		if expiry == nil {
			continue
		}
		if earliest == nil || expiry.Before(*earliest) {
			earliest = expiry
		}
	}
	return earliest
}

// InstallationExpiry returns the installation coverage expiry. Warranties
// without the install flag have none.
func InstallationExpiry(w models.Warranty) *time.Time {
	if !w.ServicesProvided.Install {
		return nil
	}
	return CalculateExpiryDate(w.InstallDate, w.InstallationWarrantyPeriod, w.InstallationWarrantyUnit)
}

// DaysUntil counts whole calendar days from today to expiry, ignoring the
// time of day. Negative once expiry has passed.
func DaysUntil(expiry, today time.Time) int {
	return int(civilDay(expiry) - civilDay(today))
}

// Classify maps a single expiry date onto a status. The threshold is inclusive.
func Classify(expiry, today time.Time, threshold int) Status {
	diff := DaysUntil(expiry, today)
	switch {
	case diff < 0:
		return StatusExpired
	case diff <= threshold:
		return StatusExpiring
	default:
		return StatusActive
	}
}

// GetStatusInfo classifies w relative to the current local day
func GetStatusInfo(w models.Warranty, defaultReminderDays int) StatusInfo {
	return StatusInfoAt(w, defaultReminderDays, time.Now())
}

// StatusInfoAt classifies w relative to today. Every product expiry (with
// its own reminder override) and the installation expiry are considered and
// the most urgent status wins. A warranty with no expiry dates is Active.
func StatusInfoAt(w models.Warranty, defaultReminderDays int, today time.Time) StatusInfo {
	info := StatusInfo{Status: StatusActive}

	consider := func(expiry *time.Time, threshold int) {
		if expiry == nil {
			return
		}
		status := Classify(*expiry, today, threshold)
		switch {
		case info.ExpiryDate == nil,
			status.urgency() > info.Status.urgency(),
			status == info.Status && expiry.Before(*info.ExpiryDate):
		default:
			return
		}
		days := DaysUntil(*expiry, today)
		info.Status = status
		info.ExpiryDate = expiry
		info.DaysRemaining = &days
	}

	for _, p := range w.Products {
		consider(ProductExpiry(p), ReminderThreshold(p, defaultReminderDays))
	}
	consider(InstallationExpiry(w), defaultReminderDays)

	info.Color = info.Status.Color()
	return info
}

// ReminderThreshold is the product's own override when set
func ReminderThreshold(p models.Product, defaultReminderDays int) int {
	if p.ExpiryReminderDays != nil {
		return *p.ExpiryReminderDays
	}
	return defaultReminderDays
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	year := y + total/12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	if last := daysIn(year, time.Month(month+1)); d > last {
		d = last
	}
	return time.Date(year, time.Month(month+1), d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
