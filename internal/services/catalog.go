package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/warranty"
)

// CatalogService manages customers, saved products and saved services
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Catalogs is a snapshot of an account's master data
type Catalogs struct {
	Customers []models.Customer
	Products  []models.SavedProduct
	Services  []models.SavedService
}

// Snapshot loads all catalogs of an account
func (s *CatalogService) Snapshot(db *gorm.DB, accountID uint) (Catalogs, error) {
	var c Catalogs
	if err := db.Where("account_id = ?", accountID).Find(&c.Customers).Error; err != nil {
		return c, fmt.Errorf("failed to load customers: %w", err)
	}
	if err := db.Where("account_id = ?", accountID).Find(&c.Products).Error; err != nil {
		return c, fmt.Errorf("failed to load products: %w", err)
	}
	if err := db.Where("account_id = ?", accountID).Find(&c.Services).Error; err != nil {
		return c, fmt.Errorf("failed to load services: %w", err)
	}
	return c, nil
}

// ListCustomers lists customers, optionally filtered by a search term
func (s *CatalogService) ListCustomers(accountID uint, q string) ([]models.Customer, error) {
	var out []models.Customer
	err := search(s.db, accountID, q, "name", "phone", "email", "district", "state", "postcode").
		Order("name asc").Find(&out).Error
	return out, err
}

// GetCustomer retrieves a single customer
func (s *CatalogService) GetCustomer(accountID uint, id string) (*models.Customer, error) {
	var c models.Customer
	return &c, first(s.db, accountID, id, &c)
}

// CreateCustomer adds a customer unless the name is already taken
func (s *CatalogService) CreateCustomer(accountID uint, c *models.Customer) error {
	if err := checkName[models.Customer](s.db, accountID, "", c.Name); err != nil {
		return err
	}
	if c.BuildingType == "" {
		c.BuildingType = models.BuildingHome
	}
	c.ID = NewID()
	c.AccountID = accountID
	return s.db.Create(c).Error
}

// UpdateCustomer replaces a customer's fields
func (s *CatalogService) UpdateCustomer(accountID uint, id string, c *models.Customer) error {
	existing, err := s.GetCustomer(accountID, id)
	if err != nil {
		return err
	}
	if err := checkName[models.Customer](s.db, accountID, id, c.Name); err != nil {
		return err
	}
	c.ID = id
	c.AccountID = accountID
	c.CreatedAt = existing.CreatedAt
	return s.db.Save(c).Error
}

// DeleteCustomer removes a customer
func (s *CatalogService) DeleteCustomer(accountID uint, id string) error {
	return remove[models.Customer](s.db, accountID, id)
}

// ListProducts lists saved products
func (s *CatalogService) ListProducts(accountID uint, q string) ([]models.SavedProduct, error) {
	var out []models.SavedProduct
	err := search(s.db, accountID, q, "name").Order("name asc").Find(&out).Error
	return out, err
}

// GetProduct retrieves a single saved product
func (s *CatalogService) GetProduct(accountID uint, id string) (*models.SavedProduct, error) {
	var p models.SavedProduct
	return &p, first(s.db, accountID, id, &p)
}

// CreateProduct adds a saved product unless the name is already taken
func (s *CatalogService) CreateProduct(accountID uint, p *models.SavedProduct) error {
	if err := checkName[models.SavedProduct](s.db, accountID, "", p.Name); err != nil {
		return err
	}
	if err := checkPeriod(p.DefaultWarrantyPeriod, p.DefaultWarrantyUnit); err != nil {
		return err
	}
	p.ID = NewID()
	p.AccountID = accountID
	return s.db.Create(p).Error
}

// UpdateProduct replaces a saved product's fields
func (s *CatalogService) UpdateProduct(accountID uint, id string, p *models.SavedProduct) error {
	existing, err := s.GetProduct(accountID, id)
	if err != nil {
		return err
	}
	if err := checkName[models.SavedProduct](s.db, accountID, id, p.Name); err != nil {
		return err
	}
	if err := checkPeriod(p.DefaultWarrantyPeriod, p.DefaultWarrantyUnit); err != nil {
		return err
	}
	p.ID = id
	p.AccountID = accountID
	p.CreatedAt = existing.CreatedAt
	return s.db.Save(p).Error
}

// DeleteProduct removes a saved product
func (s *CatalogService) DeleteProduct(accountID uint, id string) error {
	return remove[models.SavedProduct](s.db, accountID, id)
}

// ListServices lists saved services
func (s *CatalogService) ListServices(accountID uint, q string) ([]models.SavedService, error) {
	var out []models.SavedService
	err := search(s.db, accountID, q, "name").Order("name asc").Find(&out).Error
	return out, err
}

// GetService retrieves a single saved service
func (s *CatalogService) GetService(accountID uint, id string) (*models.SavedService, error) {
	var svc models.SavedService
	return &svc, first(s.db, accountID, id, &svc)
}

// CreateService adds a saved service unless the name is already taken
func (s *CatalogService) CreateService(accountID uint, svc *models.SavedService) error {
	if err := checkName[models.SavedService](s.db, accountID, "", svc.Name); err != nil {
		return err
	}
	if err := checkPeriod(svc.DefaultWarrantyPeriod, svc.DefaultWarrantyUnit); err != nil {
		return err
	}
	svc.ID = NewID()
	svc.AccountID = accountID
	return s.db.Create(svc).Error
}

// UpdateService replaces a saved service's fields
func (s *CatalogService) UpdateService(accountID uint, id string, svc *models.SavedService) error {
	existing, err := s.GetService(accountID, id)
	if err != nil {
		return err
	}
	if err := checkName[models.SavedService](s.db, accountID, id, svc.Name); err != nil {
		return err
	}
	if err := checkPeriod(svc.DefaultWarrantyPeriod, svc.DefaultWarrantyUnit); err != nil {
		return err
	}
	svc.ID = id
	svc.AccountID = accountID
	svc.CreatedAt = existing.CreatedAt
	return s.db.Save(svc).Error
}

// DeleteService removes a saved service
func (s *CatalogService) DeleteService(accountID uint, id string) error {
	return remove[models.SavedService](s.db, accountID, id)
}

// Clear deletes every record of one catalog ("customers", "products" or "services")
func (s *CatalogService) Clear(accountID uint, kind string) (int64, error) {
	var model interface{}
	switch kind {
	case "customers":
		model = &models.Customer{}
	case "products":
		model = &models.SavedProduct{}
	case "services":
		model = &models.SavedService{}
	default:
		return 0, fmt.Errorf("%w: unknown catalog %q", ErrInvalidInput, kind)
	}
	res := s.db.Where("account_id = ?", accountID).Delete(model)
	return res.RowsAffected, res.Error
}

// SaveProposal persists the selected new entities inside tx
func (s *CatalogService) SaveProposal(tx *gorm.DB, accountID uint, p models.Proposal) error {
	if p.Customer != nil {
		c := *p.Customer
		c.ID = NewID()
		c.AccountID = accountID
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to save customer: %w", err)
		}
	}
	for _, prod := range p.Products {
		prod.ID = NewID()
		prod.AccountID = accountID
		if err := tx.Create(&prod).Error; err != nil {
			return fmt.Errorf("failed to save product: %w", err)
		}
	}
	if p.Service != nil {
		svc := *p.Service
		svc.ID = NewID()
		svc.AccountID = accountID
		if err := tx.Create(&svc).Error; err != nil {
			return fmt.Errorf("failed to save service: %w", err)
		}
	}
	return nil
}

// search scopes a query to the account and a case-insensitive term
func search(db *gorm.DB, accountID uint, q string, columns ...string) *gorm.DB {
	tx := db.Where("account_id = ?", accountID)
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return tx
	}
	like := "%" + q + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = like
	}
	return tx.Where(strings.Join(conds, " OR "), args...)
}

func first(db *gorm.DB, accountID uint, id string, dest interface{}) error {
	err := db.Where("account_id = ? AND id = ?", accountID, id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func remove[T any](db *gorm.DB, accountID uint, id string) error {
	res := db.Where("account_id = ? AND id = ?", accountID, id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// checkName rejects empty names and names already used by another record
func checkName[T any](db *gorm.DB, accountID uint, selfID, name string) error {
	key := warranty.Normalize(name)
	if key == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	tx := db.Model(new(T)).Where("account_id = ? AND LOWER(TRIM(name)) = ?", accountID, key)
	if selfID != "" {
		tx = tx.Where("id <> ?", selfID)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrConflict, strings.TrimSpace(name))
	}
	return nil
}

func checkPeriod(period int, unit models.DurationUnit) error {
	if period < 0 {
		return fmt.Errorf("%w: warranty period cannot be negative", ErrInvalidInput)
	}
	if unit != "" && !unit.Valid() {
		return fmt.Errorf("%w: unknown warranty unit %q", ErrInvalidInput, unit)
	}
	return nil
}
