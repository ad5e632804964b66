package services

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/emersion/go-ical"
	"github.com/gocarina/gocsv"
	"gorm.io/gorm"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/warranty"
)

const dateLayout = "2006-01-02"

// ExportRow is one product line of a warranty in tabular exports
type ExportRow struct {
	WarrantyID         string `csv:"Warranty ID"`
	CustomerName       string `csv:"Customer Name"`
	PhoneNumber        string `csv:"Phone Number"`
	Email              string `csv:"Email"`
	ProductName        string `csv:"Product Name"`
	SerialNumber       string `csv:"Serial Number"`
	PurchaseDate       string `csv:"Purchase Date"`
	ProductWarranty    string `csv:"Product Warranty"`
	ProductExpiry      string `csv:"Product Expiry"`
	Service            string `csv:"Service"`
	InstallDate        string `csv:"Install Date"`
	InstallWarranty    string `csv:"Installation Warranty"`
	InstallationExpiry string `csv:"Installation Expiry"`
	Status             string `csv:"Status"`
	State              string `csv:"State"`
	District           string `csv:"District"`
	Postcode           string `csv:"Postcode"`
	BuildingType       string `csv:"Building Type"`
}

var exportHeaders = []string{
	"Warranty ID", "Customer Name", "Phone Number", "Email", "Product Name", "Serial Number",
	"Purchase Date", "Product Warranty", "Product Expiry", "Service", "Install Date",
	"Installation Warranty", "Installation Expiry", "Status", "State", "District", "Postcode", "Building Type",
}

func (r ExportRow) values() []string {
	return []string{
		r.WarrantyID, r.CustomerName, r.PhoneNumber, r.Email, r.ProductName, r.SerialNumber,
		r.PurchaseDate, r.ProductWarranty, r.ProductExpiry, r.Service, r.InstallDate,
		r.InstallWarranty, r.InstallationExpiry, r.Status, r.State, r.District, r.Postcode, r.BuildingType,
	}
}

// Backup is a full snapshot of an account's data
type Backup struct {
	Version     int                   `json:"version"`
	ExportedAt  time.Time             `json:"exported_at"`
	CompanyName string                `json:"company_name"`
	Settings    AppSettings           `json:"settings"`
	Warranties  []models.Warranty     `json:"warranties"`
	Customers   []models.Customer     `json:"customers"`
	Products    []models.SavedProduct `json:"products"`
	Services    []models.SavedService `json:"services"`
}

// ExportService renders warranties into files and handles backup/restore
type ExportService struct {
	db       *gorm.DB
	settings *SettingsService
	now      func() time.Time
}

// NewExportService creates a new export service
func NewExportService(db *gorm.DB, settings *SettingsService) *ExportService {
	return &ExportService{db: db, settings: settings, now: time.Now}
}

// Rows flattens warranties into one row per product line. Warranties
// without products still get a row.
func (s *ExportService) Rows(warranties []models.Warranty, reminderDays int) []ExportRow {
	today := s.now()
	rows := make([]ExportRow, 0, len(warranties))
	for _, w := range warranties {
		base := ExportRow{
			WarrantyID:   w.ID,
			CustomerName: w.CustomerName,
			PhoneNumber:  w.PhoneNumber,
			Email:        w.Email,
			Status:       string(warranty.StatusInfoAt(w, reminderDays, today).Status),
			State:        w.State,
			District:     w.District,
			Postcode:     w.Postcode,
			BuildingType: buildingLabel(w),
		}
		if w.ServicesProvided.Install {
			base.Service = serviceLabel(w)
			base.InstallDate = w.InstallDate
			base.InstallWarranty = periodLabel(w.InstallationWarrantyPeriod, w.InstallationWarrantyUnit)
			base.InstallationExpiry = formatDate(warranty.InstallationExpiry(w))
		} else if w.ServicesProvided.Supply {
			base.Service = "Supply Only"
		}

		if len(w.Products) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, p := range w.Products {
			row := base
			row.ProductName = p.ProductName
			row.SerialNumber = p.SerialNumber
			row.PurchaseDate = p.PurchaseDate
			row.ProductWarranty = periodLabel(p.WarrantyPeriod, p.WarrantyUnit)
			row.ProductExpiry = formatDate(warranty.ProductExpiry(p))
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes warranties as CSV
func (s *ExportService) WriteCSV(out io.Writer, warranties []models.Warranty, reminderDays int) error {
	rows := s.Rows(warranties, reminderDays)
	if err := gocsv.Marshal(&rows, out); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes warranties as an Excel workbook
func (s *ExportService) WriteXLSX(out io.Writer, warranties []models.Warranty, reminderDays int) error {
	const sheet = "Sheet1"
	xlsx := excelize.NewFile()

	for col, header := range exportHeaders {
		xlsx.SetCellValue(sheet, cellName(col, 1), header)
	}
	for i, row := range s.Rows(warranties, reminderDays) {
		for col, value := range row.values() {
			xlsx.SetCellValue(sheet, cellName(col, i+2), value)
		}
	}

	if err := xlsx.Write(out); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// WriteICS writes one all-day event per product and installation expiry
func (s *ExportService) WriteICS(out io.Writer, warranties []models.Warranty) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Warranty Tracker//Expiry Calendar//EN")

	stamp := s.now().UTC()
	addEvent := func(uid, summary, description string, expiry *time.Time) {
		if expiry == nil {
			return
		}
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, uid)
		event.Props.SetText(ical.PropSummary, summary)
		if description != "" {
			event.Props.SetText(ical.PropDescription, description)
		}
		event.Props.SetDate(ical.PropDateTimeStart, *expiry)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		cal.Children = append(cal.Children, event.Component)
	}

	for _, w := range warranties {
		for i, p := range w.Products {
			addEvent(
				fmt.Sprintf("%s-p%d@warranty-tracker", w.ID, i),
				fmt.Sprintf("Warranty expires: %s (%s)", p.ProductName, w.CustomerName),
				fmt.Sprintf("Serial number: %s\nPhone: %s", p.SerialNumber, w.PhoneNumber),
				warranty.ProductExpiry(p),
			)
		}
		addEvent(
			fmt.Sprintf("%s-install@warranty-tracker", w.ID),
			fmt.Sprintf("Installation warranty expires: %s (%s)", serviceLabel(w), w.CustomerName),
			"",
			warranty.InstallationExpiry(w),
		)
	}

	if len(cal.Children) == 0 {
		return fmt.Errorf("%w: no expiry dates to export", ErrInvalidInput)
	}
	if err := ical.NewEncoder(out).Encode(cal); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

// Backup collects all data of an account
func (s *ExportService) Backup(accountID uint) (*Backup, error) {
	b := &Backup{Version: 1, ExportedAt: s.now().UTC()}

	var account models.Account
	if err := s.db.First(&account, accountID).Error; err != nil {
		return nil, ErrNotFound
	}
	b.CompanyName = account.CompanyName

	settings, err := s.settings.Get(accountID)
	if err != nil {
		return nil, err
	}
	b.Settings = settings

	for _, load := range []struct {
		dest interface{}
		name string
	}{
		{&b.Warranties, "warranties"},
		{&b.Customers, "customers"},
		{&b.Products, "products"},
		{&b.Services, "services"},
	} {
		if err := s.db.Where("account_id = ?", accountID).Order("id asc").Find(load.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", load.name, err)
		}
	}
	return b, nil
}

// Restore replaces all account data with the backup contents. Record ids
// are kept unless another account already uses them.
func (s *ExportService) Restore(accountID uint, b *Backup) error {
	if b == nil || b.Version != 1 {
		return fmt.Errorf("%w: unsupported backup version", ErrInvalidInput)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := clearAccount(tx, accountID); err != nil {
			return err
		}

		for i := range b.Warranties {
			w := &b.Warranties[i]
			w.AccountID = accountID
			w.ID = freeID(tx, &models.Warranty{}, w.ID)
			if err := tx.Create(w).Error; err != nil {
				return fmt.Errorf("failed to restore warranty: %w", err)
			}
		}
		for i := range b.Customers {
			c := &b.Customers[i]
			c.AccountID = accountID
			c.ID = freeID(tx, &models.Customer{}, c.ID)
			if err := tx.Create(c).Error; err != nil {
				return fmt.Errorf("failed to restore customer: %w", err)
			}
		}
		for i := range b.Products {
			p := &b.Products[i]
			p.AccountID = accountID
			p.ID = freeID(tx, &models.SavedProduct{}, p.ID)
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to restore product: %w", err)
			}
		}
		for i := range b.Services {
			svc := &b.Services[i]
			svc.AccountID = accountID
			svc.ID = freeID(tx, &models.SavedService{}, svc.ID)
			if err := tx.Create(svc).Error; err != nil {
				return fmt.Errorf("failed to restore service: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if b.Settings.ExpiryReminderDays >= 1 {
		return s.settings.Update(accountID, b.Settings)
	}
	return nil
}

// ClearAll performs a factory reset of an account's records
func (s *ExportService) ClearAll(accountID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return clearAccount(tx, accountID)
	})
}

func clearAccount(tx *gorm.DB, accountID uint) error {
	for _, model := range []interface{}{
		&models.Warranty{}, &models.Customer{}, &models.SavedProduct{},
		&models.SavedService{}, &models.PendingSubmission{},
	} {
		if err := tx.Where("account_id = ?", accountID).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear account data: %w", err)
		}
	}
	return nil
}

func freeID(tx *gorm.DB, model interface{}, id string) string {
	if id == "" {
		return NewID()
	}
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil || count > 0 {
		return NewID()
	}
	return id
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(dateLayout)
}

func periodLabel(period int, unit models.DurationUnit) string {
	if unit == "" {
		unit = models.UnitDays
	}
	return strconv.Itoa(period) + " " + string(unit)
}

func serviceLabel(w models.Warranty) string {
	if w.ServiceName != "" {
		return w.ServiceName
	}
	return "Installation"
}

func buildingLabel(w models.Warranty) string {
	if w.BuildingType == models.BuildingOthers && w.OtherBuildingType != "" {
		return w.OtherBuildingType
	}
	return w.BuildingType
}

// cellName converts a zero based column and one based row into an A1 reference
func cellName(col, row int) string {
	return excelize.ToAlphaString(col) + strconv.Itoa(row)
}
