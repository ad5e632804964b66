package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/warranty"
)

// WarrantyView is a warranty together with its computed expiry details
type WarrantyView struct {
	models.Warranty
	StatusInfo             warranty.StatusInfo `json:"status_info"`
	ProductExpiryDate      *time.Time          `json:"product_expiry_date"`
	InstallationExpiryDate *time.Time          `json:"installation_expiry_date"`
}

// ListFilter narrows a warranty listing
type ListFilter struct {
	Query  string
	Status warranty.Status // empty means all
}

// SubmitResult tells the caller where a submission ended up
type SubmitResult struct {
	State        string           `json:"state"`
	SubmissionID string           `json:"submission_id,omitempty"`
	Proposal     *models.Proposal `json:"proposal,omitempty"`
	Warranty     *WarrantyView    `json:"warranty,omitempty"`
}

// Stats summarises an account's warranties by status
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
}

// WarrantyService handles warranty records and the submission flow
type WarrantyService struct {
	db       *gorm.DB
	catalog  *CatalogService
	settings *SettingsService
	now      func() time.Time
}

// NewWarrantyService creates a new warranty service
func NewWarrantyService(db *gorm.DB, catalog *CatalogService, settings *SettingsService) *WarrantyService {
	return &WarrantyService{db: db, catalog: catalog, settings: settings, now: time.Now}
}

// View computes the status details of w for the account's threshold
func (s *WarrantyService) View(w models.Warranty, reminderDays int) WarrantyView {
	return WarrantyView{
		Warranty:               w,
		StatusInfo:             warranty.StatusInfoAt(w, reminderDays, s.now()),
		ProductExpiryDate:      warranty.EarliestProductExpiry(w.Products),
		InstallationExpiryDate: warranty.InstallationExpiry(w),
	}
}

// List returns the account's warranties, newest first, matching the filter
func (s *WarrantyService) List(accountID uint, filter ListFilter) ([]WarrantyView, error) {
	var rows []models.Warranty
	if err := s.db.Where("account_id = ?", accountID).Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch warranties: %w", err)
	}

	reminderDays := s.settings.ReminderDays(accountID)
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	views := make([]WarrantyView, 0, len(rows))
	for _, w := range rows {
		if q != "" && !matches(w, q) {
			continue
		}
		view := s.View(w, reminderDays)
		if filter.Status != "" && view.StatusInfo.Status != filter.Status {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// matches applies the free text search over customer, products, service and location
func matches(w models.Warranty, q string) bool {
	fields := []string{w.CustomerName, w.ServiceName, w.Postcode, w.District, w.State}
	for _, p := range w.Products {
		fields = append(fields, p.ProductName, p.SerialNumber)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Get retrieves a single warranty
func (s *WarrantyService) Get(accountID uint, id string) (*WarrantyView, error) {
	var w models.Warranty
	if err := first(s.db, accountID, id, &w); err != nil {
		return nil, err
	}
	view := s.View(w, s.settings.ReminderDays(accountID))
	return &view, nil
}

// ByIDs loads the given warranties; an empty list loads all of them
func (s *WarrantyService) ByIDs(accountID uint, ids []string) ([]models.Warranty, error) {
	tx := s.db.Where("account_id = ?", accountID)
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	var rows []models.Warranty
	err := tx.Order("id asc").Find(&rows).Error
	return rows, err
}

// ForCustomer lists warranties whose customer name matches the saved customer
func (s *WarrantyService) ForCustomer(accountID uint, customerID string) ([]WarrantyView, error) {
	customer, err := s.catalog.GetCustomer(accountID, customerID)
	if err != nil {
		return nil, err
	}
	all, err := s.List(accountID, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]WarrantyView, 0)
	for _, v := range all {
		if warranty.SameName(v.CustomerName, customer.Name) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Create stores a new warranty without the reconciliation step
func (s *WarrantyService) Create(accountID uint, w *models.Warranty) error {
	if err := Validate(w); err != nil {
		return err
	}
	w.ID = NewID()
	w.AccountID = accountID
	return s.db.Create(w).Error
}

// Update replaces an existing warranty
func (s *WarrantyService) Update(accountID uint, id string, w *models.Warranty) error {
	var existing models.Warranty
	if err := first(s.db, accountID, id, &existing); err != nil {
		return err
	}
	if err := Validate(w); err != nil {
		return err
	}
	w.ID = id
	w.AccountID = accountID
	w.CreatedAt = existing.CreatedAt
	return s.db.Save(w).Error
}

// Delete removes one warranty
func (s *WarrantyService) Delete(accountID uint, id string) error {
	return remove[models.Warranty](s.db, accountID, id)
}

// BulkDelete removes the given warranties in one statement
func (s *WarrantyService) BulkDelete(accountID uint, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no ids given", ErrInvalidInput)
	}
	res := s.db.Where("account_id = ? AND id IN ?", accountID, ids).Delete(&models.Warranty{})
	return res.RowsAffected, res.Error
}

// Clear deletes every warranty of the account
func (s *WarrantyService) Clear(accountID uint) (int64, error) {
	res := s.db.Where("account_id = ?", accountID).Delete(&models.Warranty{})
	return res.RowsAffected, res.Error
}

// Preview computes expiry and status for an unsaved warranty
func (s *WarrantyService) Preview(accountID uint, w models.Warranty) (*WarrantyView, error) {
	if err := Validate(&w); err != nil {
		return nil, err
	}
	view := s.View(w, s.settings.ReminderDays(accountID))
	return &view, nil
}

// Submit runs the confirmed preview through reconciliation. When nothing new
// is detected the warranty is saved at once; otherwise the submission is
// parked until Resolve or Skip is called.
func (s *WarrantyService) Submit(accountID, userID uint, w models.Warranty) (*SubmitResult, error) {
	if err := Validate(&w); err != nil {
		return nil, err
	}

	sub := warranty.NewSubmission(w)
	if err := sub.Preview(); err != nil {
		return nil, err
	}

	catalogs, err := s.catalog.Snapshot(s.db, accountID)
	if err != nil {
		return nil, err
	}
	proposal := warranty.DetectNewEntities(w, catalogs.Customers, catalogs.Products, catalogs.Services)
	if err := sub.Confirm(proposal); err != nil {
		return nil, err
	}

	if sub.State == warranty.StateReconciling {
		pending := models.PendingSubmission{
			ID:        NewID(),
			AccountID: accountID,
			UserID:    userID,
			State:     sub.State.String(),
			Warranty:  sub.Warranty,
			Proposal:  sub.Proposal,
		}
		if err := s.db.Create(&pending).Error; err != nil {
			return nil, fmt.Errorf("failed to store pending submission: %w", err)
		}
		log.Info().Str("submission_id", pending.ID).Uint("account_id", accountID).Msg("new catalog entities detected")
		return &SubmitResult{State: pending.State, SubmissionID: pending.ID, Proposal: &pending.Proposal}, nil
	}

	return s.persist(accountID, sub, "")
}

// Resolve saves the selected entities of a pending submission and then the warranty
func (s *WarrantyService) Resolve(accountID uint, submissionID string, sel warranty.Selection) (*SubmitResult, error) {
	sub, err := s.loadPending(accountID, submissionID)
	if err != nil {
		return nil, err
	}
	if err := sub.Resolve(sel); err != nil {
		return nil, err
	}
	return s.persist(accountID, sub, submissionID)
}

// Skip saves a pending submission's warranty without any new entities
func (s *WarrantyService) Skip(accountID uint, submissionID string) (*SubmitResult, error) {
	sub, err := s.loadPending(accountID, submissionID)
	if err != nil {
		return nil, err
	}
	if err := sub.Skip(); err != nil {
		return nil, err
	}
	return s.persist(accountID, sub, submissionID)
}

// GetPending returns a parked submission
func (s *WarrantyService) GetPending(accountID uint, submissionID string) (*models.PendingSubmission, error) {
	var pending models.PendingSubmission
	if err := first(s.db, accountID, submissionID, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

// PurgePending drops parked submissions older than maxAge
func (s *WarrantyService) PurgePending(maxAge time.Duration) (int64, error) {
	res := s.db.Where("created_at < ?", s.now().Add(-maxAge)).Delete(&models.PendingSubmission{})
	return res.RowsAffected, res.Error
}

func (s *WarrantyService) loadPending(accountID uint, submissionID string) (*warranty.Submission, error) {
	pending, err := s.GetPending(accountID, submissionID)
	if err != nil {
		return nil, err
	}
	state, err := warranty.ParseState(pending.State)
	if err != nil {
		return nil, err
	}
	return &warranty.Submission{State: state, Warranty: pending.Warranty, Proposal: pending.Proposal}, nil
}

// persist writes the chosen entities and the warranty in one transaction.
// A warranty carrying the id of an existing record updates it.
func (s *WarrantyService) persist(accountID uint, sub *warranty.Submission, pendingID string) (*SubmitResult, error) {
	w := sub.Warranty
	w.AccountID = accountID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.catalog.SaveProposal(tx, accountID, sub.ToSave); err != nil {
			return err
		}

		var existing models.Warranty
		err := tx.Where("account_id = ? AND id = ?", accountID, w.ID).First(&existing).Error
		switch {
		case w.ID != "" && err == nil:
			w.CreatedAt = existing.CreatedAt
			if err := tx.Save(&w).Error; err != nil {
				return fmt.Errorf("failed to update warranty: %w", err)
			}
		case w.ID == "" || errors.Is(err, gorm.ErrRecordNotFound):
			w.ID = NewID()
			if err := tx.Create(&w).Error; err != nil {
				return fmt.Errorf("failed to save warranty: %w", err)
			}
		default:
			return err
		}

		if pendingID != "" {
			return tx.Where("account_id = ? AND id = ?", accountID, pendingID).Delete(&models.PendingSubmission{}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := sub.Persisted(); err != nil {
		return nil, err
	}

	view := s.View(w, s.settings.ReminderDays(accountID))
	return &SubmitResult{State: sub.State.String(), Warranty: &view}, nil
}

// Stats counts warranties by status
func (s *WarrantyService) Stats(accountID uint) (Stats, error) {
	views, err := s.List(accountID, ListFilter{})
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(views)}
	for _, v := range views {
		switch v.StatusInfo.Status {
		case warranty.StatusExpired:
			stats.Expired++
		case warranty.StatusExpiring:
			stats.Expiring++
		default:
			stats.Active++
		}
	}
	return stats, nil
}

// Expiring returns the warranties in their reminder window, soonest first
func (s *WarrantyService) Expiring(accountID uint, limit int) ([]WarrantyView, error) {
	views, err := s.List(accountID, ListFilter{Status: warranty.StatusExpiring})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(views, func(i, j int) bool {
		return *views[i].StatusInfo.DaysRemaining < *views[j].StatusInfo.DaysRemaining
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// Validate checks the fields a form would enforce and fills defaults
func Validate(w *models.Warranty) error {
	w.CustomerName = strings.TrimSpace(w.CustomerName)
	if w.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	for i, p := range w.Products {
		if err := checkPeriod(p.WarrantyPeriod, p.WarrantyUnit); err != nil {
			return fmt.Errorf("product %d: %w", i+1, err)
		}
		if p.ExpiryReminderDays != nil && *p.ExpiryReminderDays < 0 {
			return fmt.Errorf("%w: product %d reminder days cannot be negative", ErrInvalidInput, i+1)
		}
	}
	if err := checkPeriod(w.InstallationWarrantyPeriod, w.InstallationWarrantyUnit); err != nil {
		return fmt.Errorf("installation: %w", err)
	}
	switch w.BuildingType {
	case "":
		w.BuildingType = models.BuildingHome
	case models.BuildingHome, models.BuildingOffice, models.BuildingOthers:
	default:
		return fmt.Errorf("%w: unknown building type %q", ErrInvalidInput, w.BuildingType)
	}
	if w.Products == nil {
		w.Products = []models.Product{}
	}
	return nil
}
