package warranty

import (
	"testing"
	"time"

	"warranty-tracker/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		t.Fatalf("failed to parse date %s: %v", s, err)
	}
	return d
}

func intPtr(v int) *int {
	return &v
}

func TestCalculateExpiryDate(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		period int
		unit   models.DurationUnit
		want   string // empty means no expiry
	}{
		{"days", "2024-01-15", 10, models.UnitDays, "2024-01-25"},
		{"weeks", "2024-01-15", 2, models.UnitWeeks, "2024-01-29"},
		{"months", "2024-01-15", 12, models.UnitMonths, "2025-01-15"},
		{"years", "2024-01-15", 2, models.UnitYears, "2026-01-15"},
		{"month end clamps in leap year", "2024-01-31", 1, models.UnitMonths, "2024-02-29"},
		{"month end clamps in common year", "2023-01-31", 1, models.UnitMonths, "2023-02-28"},
		{"month end over several months", "2024-01-31", 3, models.UnitMonths, "2024-04-30"},
		{"leap day plus a year", "2024-02-29", 1, models.UnitYears, "2025-02-28"},
		{"leap day plus four years", "2024-02-29", 4, models.UnitYears, "2028-02-29"},
		{"december rolls into next year", "2024-12-15", 1, models.UnitMonths, "2025-01-15"},
		{"negative months", "2024-03-31", -1, models.UnitMonths, "2024-02-29"},
		{"unknown unit counts days", "2024-01-15", 3, models.DurationUnit("fortnights"), "2024-01-18"},
		{"empty start", "", 12, models.UnitMonths, ""},
		{"blank start", "   ", 12, models.UnitMonths, ""},
		{"garbage start", "not a date", 12, models.UnitMonths, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateExpiryDate(tt.start, tt.period, tt.unit)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("expected no expiry, got %s", got.Format("2006-01-02"))
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got no expiry", tt.want)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("CalculateExpiryDate(%q, %d, %s) = %s, want %s",
					tt.start, tt.period, tt.unit, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestCalculateExpiryDateZeroPeriod(t *testing.T) {
	units := []models.DurationUnit{models.UnitDays, models.UnitWeeks, models.UnitMonths, models.UnitYears}
	for _, unit := range units {
		got := CalculateExpiryDate("2024-01-31", 0, unit)
		if got == nil || !got.Equal(day(t, "2024-01-31")) {
			t.Errorf("unit %s: zero period should return the start date, got %v", unit, got)
		}
	}
}

func TestCalculateExpiryDateMonotonic(t *testing.T) {
	units := []models.DurationUnit{models.UnitDays, models.UnitWeeks, models.UnitMonths, models.UnitYears}
	starts := []string{"2024-01-31", "2023-08-31", "2024-02-29"}

	for _, unit := range units {
		for _, start := range starts {
			prev := CalculateExpiryDate(start, 0, unit)
			for period := 1; period <= 60; period++ {
				next := CalculateExpiryDate(start, period, unit)
				if next.Before(*prev) {
					t.Fatalf("%s +%d %s = %s is before +%d = %s",
						start, period, unit, next.Format("2006-01-02"), period-1, prev.Format("2006-01-02"))
				}
				prev = next
			}
		}
	}
}

func TestEarliestProductExpiry(t *testing.T) {
	if got := EarliestProductExpiry(nil); got != nil {
		t.Errorf("empty list should have no expiry, got %v", got)
	}

	products := []models.Product{
		{ProductName: "no date", WarrantyPeriod: 1, WarrantyUnit: models.UnitYears},
		{ProductName: "late", PurchaseDate: "2024-01-01", WarrantyPeriod: 2, WarrantyUnit: models.UnitYears},
		{ProductName: "early", PurchaseDate: "2024-06-01", WarrantyPeriod: 6, WarrantyUnit: models.UnitMonths},
	}
	got := EarliestProductExpiry(products)
	if got == nil || got.Format("2006-01-02") != "2024-12-01" {
		t.Errorf("expected 2024-12-01, got %v", got)
	}

	if got := EarliestProductExpiry(products[:1]); got != nil {
		t.Errorf("products without dates should have no expiry, got %v", got)
	}
}

func TestDaysUntilIgnoresTimeOfDay(t *testing.T) {
	expiry := day(t, "2024-03-10")
	lateToday := time.Date(2024, time.March, 9, 23, 59, 0, 0, time.Local)
	if got := DaysUntil(expiry, lateToday); got != 1 {
		t.Errorf("expected 1 day, got %d", got)
	}
	if got := DaysUntil(expiry, expiry.Add(13*time.Hour)); got != 0 {
		t.Errorf("expected 0 days on the expiry date, got %d", got)
	}
}

func TestStatusInfoAtBoundaries(t *testing.T) {
	today := day(t, "2026-03-10")
	threshold := 30

	tests := []struct {
		name     string
		purchase string
		period   int
		want     Status
	}{
		{"expires today plus threshold", "2026-03-10", threshold, StatusExpiring},
		{"expires today plus threshold plus one", "2026-03-10", threshold + 1, StatusActive},
		{"expires today", "2026-03-10", 0, StatusExpiring},
		{"expired yesterday", "2026-03-09", 0, StatusExpired},
		{"expired long ago", "2020-01-01", 30, StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := models.Warranty{Products: []models.Product{{
				ProductName:    "Widget",
				PurchaseDate:   tt.purchase,
				WarrantyPeriod: tt.period,
				WarrantyUnit:   models.UnitDays,
			}}}
			got := StatusInfoAt(w, threshold, today)
			if got.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Status)
			}
			if got.Color != tt.want.Color() {
				t.Errorf("expected color %s, got %s", tt.want.Color(), got.Color)
			}
		})
	}
}

func TestStatusInfoAtProductOverride(t *testing.T) {
	today := day(t, "2026-03-10")
	w := models.Warranty{Products: []models.Product{{
		ProductName:        "Aircond",
		PurchaseDate:       "2026-03-10",
		WarrantyPeriod:     10,
		WarrantyUnit:       models.UnitDays,
		ExpiryReminderDays: intPtr(5),
	}}}

	if got := StatusInfoAt(w, 30, today).Status; got != StatusActive {
		t.Errorf("override of 5 days should keep a 10 day expiry active, got %s", got)
	}

	w.Products[0].ExpiryReminderDays = intPtr(10)
	if got := StatusInfoAt(w, 3, today).Status; got != StatusExpiring {
		t.Errorf("override of 10 days should mark a 10 day expiry expiring, got %s", got)
	}
}

func TestStatusInfoAtMostUrgentWins(t *testing.T) {
	today := day(t, "2026-03-10")
	w := models.Warranty{Products: []models.Product{
		{ProductName: "Active", PurchaseDate: "2026-01-01", WarrantyPeriod: 2, WarrantyUnit: models.UnitYears},
		{ProductName: "Expired", PurchaseDate: "2024-01-01", WarrantyPeriod: 1, WarrantyUnit: models.UnitYears},
	}}

	info := StatusInfoAt(w, 30, today)
	if info.Status != StatusExpired {
		t.Fatalf("expected Expired, got %s", info.Status)
	}
	if info.ExpiryDate == nil || info.ExpiryDate.Format("2006-01-02") != "2025-01-01" {
		t.Errorf("expected the expired product's date, got %v", info.ExpiryDate)
	}
	if info.DaysRemaining == nil || *info.DaysRemaining >= 0 {
		t.Errorf("expected negative days remaining, got %v", info.DaysRemaining)
	}
}

func TestStatusInfoAtInstallation(t *testing.T) {
	today := day(t, "2026-03-10")
	w := models.Warranty{
		Products: []models.Product{
			{ProductName: "Heater", PurchaseDate: "2026-01-01", WarrantyPeriod: 5, WarrantyUnit: models.UnitYears},
		},
		ServicesProvided:           models.ServicesProvided{Supply: true, Install: true},
		ServiceName:                "Installation",
		InstallDate:                "2026-01-01",
		InstallationWarrantyPeriod: 2,
		InstallationWarrantyUnit:   models.UnitMonths,
	}

	if got := StatusInfoAt(w, 30, today).Status; got != StatusExpired {
		t.Errorf("installation expired on 2026-03-01, expected Expired, got %s", got)
	}

	w.ServicesProvided.Install = false
	if got := StatusInfoAt(w, 30, today).Status; got != StatusActive {
		t.Errorf("installation expiry should be ignored without the install flag, got %s", got)
	}
}

func TestStatusInfoAtNoExpiryIsActive(t *testing.T) {
	today := day(t, "2026-03-10")
	info := StatusInfoAt(models.Warranty{CustomerName: "Nobody"}, 30, today)
	if info.Status != StatusActive {
		t.Errorf("expected Active, got %s", info.Status)
	}
	if info.ExpiryDate != nil || info.DaysRemaining != nil {
		t.Errorf("expected no expiry details, got %+v", info)
	}

	w := models.Warranty{Products: []models.Product{{ProductName: "Undated", WarrantyPeriod: 1, WarrantyUnit: models.UnitYears}}}
	if got := StatusInfoAt(w, 30, today).Status; got != StatusActive {
		t.Errorf("undated product should classify Active, got %s", got)
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"active":   StatusActive,
		"Expiring": StatusExpiring,
		" EXPIRED": StatusExpired,
	} {
		got, ok := ParseStatus(in)
		if !ok || got != want {
			t.Errorf("ParseStatus(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseStatus("all"); ok {
		t.Error("all should not parse as a status")
	}
}
