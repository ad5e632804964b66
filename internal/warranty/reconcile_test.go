package warranty

import (
	"testing"

	"warranty-tracker/internal/models"
)

func TestDetectNewEntitiesCustomerMatchIgnoresCaseAndSpace(t *testing.T) {
	customers := []models.Customer{{ID: "1", Name: "John Tan"}}
	w := models.Warranty{CustomerName: "  JOHN tan "}

	proposal := DetectNewEntities(w, customers, nil, nil)
	if proposal.Customer != nil {
		t.Errorf("expected no new customer, got %+v", proposal.Customer)
	}
}

func TestDetectNewEntitiesNewCustomerCopiesWarrantyFields(t *testing.T) {
	w := models.Warranty{
		CustomerName: "Siti Aminah",
		PhoneNumber:  "012-3456789",
		Email:        "siti@example.com",
		State:        "Selangor",
		District:     "Petaling",
		Postcode:     "47300",
	}

	proposal := DetectNewEntities(w, nil, nil, nil)
	c := proposal.Customer
	if c == nil {
		t.Fatal("expected a new customer")
	}
	if c.Name != w.CustomerName || c.Phone != w.PhoneNumber || c.Email != w.Email ||
		c.State != w.State || c.District != w.District || c.Postcode != w.Postcode {
		t.Errorf("customer fields not copied: %+v", c)
	}
	if c.BuildingType != models.BuildingHome {
		t.Errorf("expected building type to default to home, got %q", c.BuildingType)
	}
}

func TestDetectNewEntitiesProductsDedupWithinSubmission(t *testing.T) {
	saved := []models.SavedProduct{{ID: "p1", Name: "Water Heater"}}
	w := models.Warranty{
		CustomerName: "John Tan",
		Products: []models.Product{
			{ProductName: "Widget X", WarrantyPeriod: 12, WarrantyUnit: models.UnitMonths},
			{ProductName: "widget x ", WarrantyPeriod: 6, WarrantyUnit: models.UnitMonths},
			{ProductName: "WATER HEATER", WarrantyPeriod: 1, WarrantyUnit: models.UnitYears},
			{ProductName: "   ", WarrantyPeriod: 1, WarrantyUnit: models.UnitYears},
		},
	}

	proposal := DetectNewEntities(w, []models.Customer{{Name: "John Tan"}}, saved, nil)
	if len(proposal.Products) != 1 {
		t.Fatalf("expected exactly one new product, got %+v", proposal.Products)
	}
	p := proposal.Products[0]
	if p.Name != "Widget X" || p.DefaultWarrantyPeriod != 12 || p.DefaultWarrantyUnit != models.UnitMonths {
		t.Errorf("first occurrence should win, got %+v", p)
	}
}

func TestDetectNewEntitiesService(t *testing.T) {
	base := models.Warranty{
		CustomerName:               "John Tan",
		ServiceName:                "Aircond Installation",
		InstallationWarrantyPeriod: 3,
		InstallationWarrantyUnit:   models.UnitMonths,
	}
	customers := []models.Customer{{Name: "John Tan"}}

	tests := []struct {
		name    string
		install bool
		service string
		saved   []models.SavedService
		want    bool
	}{
		{"new service with install", true, "Aircond Installation", nil, true},
		{"install flag off", false, "Aircond Installation", nil, false},
		{"no service name", true, "", nil, false},
		{"already saved", true, "Aircond Installation", []models.SavedService{{Name: "aircond installation"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := base
			w.ServicesProvided.Install = tt.install
			w.ServiceName = tt.service
			proposal := DetectNewEntities(w, customers, nil, tt.saved)
			if got := proposal.Service != nil; got != tt.want {
				t.Fatalf("expected proposed=%v, got %+v", tt.want, proposal.Service)
			}
			if tt.want {
				if proposal.Service.DefaultWarrantyPeriod != 3 || proposal.Service.DefaultWarrantyUnit != models.UnitMonths {
					t.Errorf("service should inherit installation period, got %+v", proposal.Service)
				}
			}
		})
	}
}

func TestDetectNewEntitiesNothingNew(t *testing.T) {
	w := models.Warranty{
		CustomerName:     "John Tan",
		Products:         []models.Product{{ProductName: "Widget X"}},
		ServicesProvided: models.ServicesProvided{Install: true},
		ServiceName:      "Installation",
	}
	proposal := DetectNewEntities(w,
		[]models.Customer{{Name: "john tan"}},
		[]models.SavedProduct{{Name: "WIDGET X"}},
		[]models.SavedService{{Name: "installation"}},
	)
	if !proposal.IsEmpty() {
		t.Errorf("expected an empty proposal, got %+v", proposal)
	}
}

func TestSelect(t *testing.T) {
	proposal := models.Proposal{
		Customer: &models.Customer{Name: "Acme Ltd"},
		Products: []models.SavedProduct{{Name: "Widget X"}, {Name: "Widget Y"}},
		Service:  &models.SavedService{Name: "Installation"},
	}

	got := Select(proposal, Selection{Products: []string{"widget y"}})
	if got.Customer != nil || got.Service != nil {
		t.Errorf("only products were selected, got %+v", got)
	}
	if len(got.Products) != 1 || got.Products[0].Name != "Widget Y" {
		t.Errorf("expected Widget Y only, got %+v", got.Products)
	}

	all := Select(proposal, SelectAll(proposal))
	if all.Customer == nil || all.Service == nil || len(all.Products) != 2 {
		t.Errorf("SelectAll should keep everything, got %+v", all)
	}

	if none := Select(proposal, Selection{}); !none.IsEmpty() {
		t.Errorf("empty selection should keep nothing, got %+v", none)
	}
}

func TestNewCustomerScenario(t *testing.T) {
	w := models.Warranty{
		CustomerName: "Acme Ltd",
		Products: []models.Product{{
			ProductName:    "Widget X",
			PurchaseDate:   "2024-01-15",
			WarrantyPeriod: 12,
			WarrantyUnit:   models.UnitMonths,
		}},
	}

	proposal := DetectNewEntities(w, nil, nil, nil)
	if proposal.Customer == nil || proposal.Customer.Name != "Acme Ltd" {
		t.Fatalf("expected Acme Ltd to be proposed, got %+v", proposal.Customer)
	}
	if len(proposal.Products) != 1 || proposal.Products[0].Name != "Widget X" ||
		proposal.Products[0].DefaultWarrantyPeriod != 12 || proposal.Products[0].DefaultWarrantyUnit != models.UnitMonths {
		t.Fatalf("expected Widget X @ 12 months, got %+v", proposal.Products)
	}
	if proposal.Service != nil {
		t.Fatalf("expected no service, got %+v", proposal.Service)
	}

	expiry := EarliestProductExpiry(w.Products)
	if expiry == nil || expiry.Format("2006-01-02") != "2025-01-15" {
		t.Fatalf("expected expiry 2025-01-15, got %v", expiry)
	}

	if got := StatusInfoAt(w, 30, day(t, "2024-06-01")).Status; got != StatusActive {
		t.Errorf("well before expiry should be Active, got %s", got)
	}
	if got := StatusInfoAt(w, 30, day(t, "2024-12-20")).Status; got != StatusExpiring {
		t.Errorf("inside the reminder window should be Expiring, got %s", got)
	}
}
