package warranty

import (
	"strings"

	"warranty-tracker/internal/models"
)

// Normalize is the name comparison key for catalog matching
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameName reports whether two catalog names refer to the same entity
func SameName(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// DetectNewEntities lists the customer, products and service named by w that
// are missing from the given catalogs. Proposed records carry no id; the
// caller assigns one when persisting.
func DetectNewEntities(w models.Warranty, customers []models.Customer, products []models.SavedProduct, services []models.SavedService) models.Proposal {
	var proposal models.Proposal

	if !customerExists(customers, w.CustomerName) {
		buildingType := w.BuildingType
		if buildingType == "" {
			buildingType = models.BuildingHome
		}
		proposal.Customer = &models.Customer{
			Name:              w.CustomerName,
			Phone:             w.PhoneNumber,
			Email:             w.Email,
			State:             w.State,
			District:          w.District,
			Postcode:          w.Postcode,
			BuildingType:      buildingType,
			OtherBuildingType: w.OtherBuildingType,
		}
	}

	seen := make(map[string]bool)
	for _, p := range w.Products {
		key := Normalize(p.ProductName)
		if key == "" || seen[key] || productExists(products, p.ProductName) {
			continue
		}
		seen[key] = true
		proposal.Products = append(proposal.Products, models.SavedProduct{
			Name:                  p.ProductName,
			DefaultWarrantyPeriod: p.WarrantyPeriod,
			DefaultWarrantyUnit:   p.WarrantyUnit,
		})
	}

	if w.ServicesProvided.Install && strings.TrimSpace(w.ServiceName) != "" && !serviceExists(services, w.ServiceName) {
		proposal.Service = &models.SavedService{
			Name:                  w.ServiceName,
			DefaultWarrantyPeriod: w.InstallationWarrantyPeriod,
			DefaultWarrantyUnit:   w.InstallationWarrantyUnit,
		}
	}

	return proposal
}

// Selection is the user's choice of which proposed entities to keep
type Selection struct {
	SaveCustomer bool     `json:"save_customer"`
	Products     []string `json:"products"`
	Services     []string `json:"services"`
}

// SelectAll keeps every proposed entity
func SelectAll(p models.Proposal) Selection {
	sel := Selection{SaveCustomer: p.Customer != nil}
	for _, prod := range p.Products {
		sel.Products = append(sel.Products, prod.Name)
	}
	if p.Service != nil {
		sel.Services = append(sel.Services, p.Service.Name)
	}
	return sel
}

// Select narrows a proposal down to the entities named in sel
func Select(p models.Proposal, sel Selection) models.Proposal {
	var out models.Proposal
	if sel.SaveCustomer {
		out.Customer = p.Customer
	}
	for _, prod := range p.Products {
		if containsName(sel.Products, prod.Name) {
			out.Products = append(out.Products, prod)
		}
	}
	if p.Service != nil && containsName(sel.Services, p.Service.Name) {
		out.Service = p.Service
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if SameName(n, name) {
			return true
		}
	}
	return false
}

func customerExists(customers []models.Customer, name string) bool {
	for _, c := range customers {
		if SameName(c.Name, name) {
			return true
		}
	}
	return false
}

func productExists(products []models.SavedProduct, name string) bool {
	for _, p := range products {
		if SameName(p.Name, name) {
			return true
		}
	}
	return false
}

func serviceExists(services []models.SavedService, name string) bool {
	for _, s := range services {
		if SameName(s.Name, name) {
			return true
		}
	}
	return false
}
