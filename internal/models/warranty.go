package models

import (
	"time"
)

// DurationUnit is the unit of a warranty period
type DurationUnit string

const (
	UnitDays   DurationUnit = "days"
	UnitWeeks  DurationUnit = "weeks"
	UnitMonths DurationUnit = "months"
	UnitYears  DurationUnit = "years"
)

// Valid reports whether u is one of the known units
func (u DurationUnit) Valid() bool {
	switch u {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return true
	}
	return false
}

// Building types recorded on warranties and customers
const (
	BuildingHome   = "home"
	BuildingOffice = "office"
	BuildingOthers = "others"
)

// Product is a line item of a warranty. Products have no id of their own
// and are addressed by position inside Warranty.Products.
type Product struct {
	ProductName    string       `json:"product_name"`
	SerialNumber   string       `json:"serial_number"`
	PurchaseDate   string       `json:"purchase_date"` // YYYY-MM-DD
	WarrantyPeriod int          `json:"warranty_period"`
	WarrantyUnit   DurationUnit `json:"warranty_unit"`
	// Overrides the account reminder threshold when set
	ExpiryReminderDays *int `json:"expiry_reminder_days,omitempty"`
}

// ServicesProvided flags what the business did for the customer
type ServicesProvided struct {
	Supply  bool `json:"supply"`
	Install bool `json:"install"`
}

// Warranty represents a customer's coverage record
type Warranty struct {
	ID           string    `gorm:"primarykey;size:32" json:"id"`
	AccountID    uint      `gorm:"index;not null" json:"-"`
	CustomerName string    `json:"customer_name"`
	PhoneNumber  string    `json:"phone_number"`
	Email        string    `json:"email"`
	Products     []Product `gorm:"type:text;serializer:json" json:"products"`

	ServicesProvided           ServicesProvided `gorm:"type:text;serializer:json" json:"services_provided"`
	ServiceName                string           `json:"service_name"`
	InstallDate                string           `json:"install_date"` // YYYY-MM-DD, optional
	InstallationWarrantyPeriod int              `json:"installation_warranty_period"`
	InstallationWarrantyUnit   DurationUnit     `json:"installation_warranty_unit"`

	Postcode          string `json:"postcode"`
	District          string `json:"district"`
	State             string `json:"state"`
	BuildingType      string `json:"building_type"` // home/office/others
	OtherBuildingType string `json:"other_building_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer is a reusable customer master record
type Customer struct {
	ID                string    `gorm:"primarykey;size:32" json:"id"`
	AccountID         uint      `gorm:"index;not null" json:"-"`
	Name              string    `gorm:"not null" json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	State             string    `json:"state"`
	District          string    `json:"district"`
	Postcode          string    `json:"postcode"`
	BuildingType      string    `json:"building_type"`
	OtherBuildingType string    `json:"other_building_type,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SavedProduct is a product catalog entry used to pre-fill warranty forms
type SavedProduct struct {
	ID                    string       `gorm:"primarykey;size:32" json:"id"`
	AccountID             uint         `gorm:"index;not null" json:"-"`
	Name                  string       `gorm:"not null" json:"name"`
	DefaultWarrantyPeriod int          `json:"default_warranty_period"`
	DefaultWarrantyUnit   DurationUnit `json:"default_warranty_unit"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// SavedService is a service catalog entry used to pre-fill warranty forms
type SavedService struct {
	ID                    string       `gorm:"primarykey;size:32" json:"id"`
	AccountID             uint         `gorm:"index;not null" json:"-"`
	Name                  string       `gorm:"not null" json:"name"`
	DefaultWarrantyPeriod int          `json:"default_warranty_period"`
	DefaultWarrantyUnit   DurationUnit `json:"default_warranty_unit"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}
