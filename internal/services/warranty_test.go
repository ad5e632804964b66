package services

import (
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/warranty"
)

type warrantyFixture struct {
	db       *gorm.DB
	catalog  *CatalogService
	settings *SettingsService
	svc      *WarrantyService
	owner    *models.User
}

func newWarrantyFixture(t *testing.T, today string) *warrantyFixture {
	t.Helper()
	db := newTestDB(t)
	catalog := NewCatalogService(db)
	settings := NewSettingsService(db)
	svc := NewWarrantyService(db, catalog, settings)
	svc.now = fixedNow(t, today)
	return &warrantyFixture{
		db:       db,
		catalog:  catalog,
		settings: settings,
		svc:      svc,
		owner:    newAccount(t, db, "Acme Ltd", "alice"),
	}
}

func heaterWarranty() models.Warranty {
	return models.Warranty{
		CustomerName: "Acme Ltd",
		PhoneNumber:  "0123456789",
		Email:        "ops@acme.example",
		Products: []models.Product{
			{ProductName: "Water Heater", SerialNumber: "WH-1", PurchaseDate: "2024-01-15", WarrantyPeriod: 12, WarrantyUnit: models.UnitMonths},
		},
		ServicesProvided:           models.ServicesProvided{Supply: true, Install: true},
		ServiceName:                "Plumbing",
		InstallDate:                "2024-01-15",
		InstallationWarrantyPeriod: 6,
		InstallationWarrantyUnit:   models.UnitMonths,
		BuildingType:               models.BuildingOffice,
	}
}

func TestSubmitParksNewEntitiesAndConfirmSavesSelection(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	result, err := f.svc.Submit(acct, f.owner.ID, heaterWarranty())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.State != warranty.StateReconciling.String() || result.SubmissionID == "" {
		t.Fatalf("result = %+v, want a reconciling submission", result)
	}
	p := result.Proposal
	if p.Customer == nil || p.Customer.Name != "Acme Ltd" || len(p.Products) != 1 || p.Service == nil {
		t.Fatalf("proposal = %+v", p)
	}

	// Nothing is written before the user decides
	var count int64
	f.db.Model(&models.Warranty{}).Count(&count)
	if count != 0 {
		t.Fatalf("warranties before confirm = %d", count)
	}

	saved, err := f.svc.Resolve(acct, result.SubmissionID, warranty.Selection{Products: []string{"water heater"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if saved.State != warranty.StateIdle.String() || saved.Warranty == nil || saved.Warranty.ID == "" {
		t.Fatalf("saved = %+v", saved)
	}

	customers, _ := f.catalog.ListCustomers(acct, "")
	products, _ := f.catalog.ListProducts(acct, "")
	services, _ := f.catalog.ListServices(acct, "")
	if len(customers) != 0 || len(products) != 1 || len(services) != 0 {
		t.Errorf("catalog after confirm: customers=%d products=%d services=%d, want 0/1/0",
			len(customers), len(products), len(services))
	}
	if products[0].DefaultWarrantyPeriod != 12 || products[0].DefaultWarrantyUnit != models.UnitMonths {
		t.Errorf("saved product defaults = %+v", products[0])
	}

	// The pending row is gone
	_, err = f.svc.Resolve(acct, result.SubmissionID, warranty.Selection{})
	assertErr(t, err, ErrNotFound)
}

func TestSubmitSkipSavesOnlyTheWarranty(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	result, err := f.svc.Submit(acct, f.owner.ID, heaterWarranty())
	if err != nil {
		t.Fatal(err)
	}
	saved, err := f.svc.Skip(acct, result.SubmissionID)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if saved.Warranty == nil {
		t.Fatal("expected the warranty to be saved")
	}

	snapshot, _ := f.catalog.Snapshot(f.db, acct)
	if len(snapshot.Customers)+len(snapshot.Products)+len(snapshot.Services) != 0 {
		t.Errorf("catalog should stay empty, got %+v", snapshot)
	}
}

func TestSubmitWithKnownEntitiesPersistsDirectly(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	if err := f.catalog.CreateCustomer(acct, &models.Customer{Name: "ACME ltd "}); err != nil {
		t.Fatal(err)
	}
	if err := f.catalog.CreateProduct(acct, &models.SavedProduct{Name: "water heater"}); err != nil {
		t.Fatal(err)
	}
	if err := f.catalog.CreateService(acct, &models.SavedService{Name: "Plumbing"}); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Submit(acct, f.owner.ID, heaterWarranty())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.SubmissionID != "" || result.Warranty == nil {
		t.Fatalf("result = %+v, want a direct save", result)
	}
	if result.State != warranty.StateIdle.String() {
		t.Errorf("state = %s", result.State)
	}
}

func TestSubmitExistingIDUpdatesInPlace(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	w := heaterWarranty()
	if err := f.svc.Create(acct, &w); err != nil {
		t.Fatal(err)
	}
	w.PhoneNumber = "0111111111"

	result, err := f.svc.Submit(acct, f.owner.ID, w)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Skip(acct, result.SubmissionID); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	all, _ := f.svc.List(acct, ListFilter{})
	if len(all) != 1 || all[0].ID != w.ID || all[0].PhoneNumber != "0111111111" {
		t.Errorf("warranties after edit = %+v", all)
	}
}

func TestSubmitRejectsInvalidWarranty(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")

	tests := []struct {
		name string
		edit func(*models.Warranty)
	}{
		{"missing customer", func(w *models.Warranty) { w.CustomerName = "  " }},
		{"negative period", func(w *models.Warranty) { w.Products[0].WarrantyPeriod = -1 }},
		{"unknown unit", func(w *models.Warranty) { w.InstallationWarrantyUnit = "decades" }},
		{"unknown building", func(w *models.Warranty) { w.BuildingType = "castle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := heaterWarranty()
			tt.edit(&w)
			_, err := f.svc.Submit(f.owner.AccountID, f.owner.ID, w)
			assertErr(t, err, ErrInvalidInput)
		})
	}
}

func TestListFiltersByStatusAndQuery(t *testing.T) {
	f := newWarrantyFixture(t, "2024-12-20")
	acct := f.owner.AccountID

	mk := func(name, purchase string, months int) {
		w := models.Warranty{
			CustomerName: name,
			Products: []models.Product{
				{ProductName: "Aircond", PurchaseDate: purchase, WarrantyPeriod: months, WarrantyUnit: models.UnitMonths},
			},
		}
		if err := f.svc.Create(acct, &w); err != nil {
			t.Fatal(err)
		}
	}
	mk("Expiring Co", "2024-01-15", 12) // 2025-01-15, 26 days left
	mk("Active Co", "2024-06-01", 24)   // 2026-06-01
	mk("Expired Co", "2023-01-01", 12)  // 2024-01-01

	tests := []struct {
		filter ListFilter
		want   []string
	}{
		{ListFilter{Status: warranty.StatusExpiring}, []string{"Expiring Co"}},
		{ListFilter{Status: warranty.StatusExpired}, []string{"Expired Co"}},
		{ListFilter{Status: warranty.StatusActive}, []string{"Active Co"}},
		{ListFilter{Query: "active"}, []string{"Active Co"}},
		{ListFilter{Query: "AIRCOND", Status: warranty.StatusExpired}, []string{"Expired Co"}},
	}
	for _, tt := range tests {
		views, err := f.svc.List(acct, tt.filter)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, v := range views {
			got = append(got, v.CustomerName)
		}
		if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
			t.Errorf("List(%+v) = %v, want %v", tt.filter, got, tt.want)
		}
	}

	stats, err := f.svc.Stats(acct)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{Total: 3, Active: 1, Expiring: 1, Expired: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	expiring, _ := f.svc.Expiring(acct, 10)
	if len(expiring) != 1 || *expiring[0].StatusInfo.DaysRemaining != 26 {
		t.Errorf("expiring = %+v", expiring)
	}
}

func TestListUsesAccountReminderDays(t *testing.T) {
	f := newWarrantyFixture(t, "2024-12-20")
	acct := f.owner.AccountID

	w := models.Warranty{
		CustomerName: "Acme Ltd",
		Products: []models.Product{
			{ProductName: "Heater", PurchaseDate: "2024-01-15", WarrantyPeriod: 12, WarrantyUnit: models.UnitMonths},
		},
	}
	if err := f.svc.Create(acct, &w); err != nil {
		t.Fatal(err)
	}

	view, _ := f.svc.Get(acct, w.ID)
	if view.StatusInfo.Status != warranty.StatusExpiring {
		t.Fatalf("status with 30 day threshold = %s", view.StatusInfo.Status)
	}

	if err := f.settings.Update(acct, AppSettings{ExpiryReminderDays: 7}); err != nil {
		t.Fatal(err)
	}
	view, _ = f.svc.Get(acct, w.ID)
	if view.StatusInfo.Status != warranty.StatusActive || view.StatusInfo.Color != "green" {
		t.Errorf("status with 7 day threshold = %+v", view.StatusInfo)
	}
}

func TestBulkDeleteAndClear(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	var ids []string
	for i := 0; i < 3; i++ {
		w := heaterWarranty()
		if err := f.svc.Create(acct, &w); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, w.ID)
	}

	_, err := f.svc.BulkDelete(acct, nil)
	assertErr(t, err, ErrInvalidInput)

	n, err := f.svc.BulkDelete(acct, ids[:2])
	if err != nil || n != 2 {
		t.Fatalf("BulkDelete = %d, %v", n, err)
	}
	n, err = f.svc.Clear(acct)
	if err != nil || n != 1 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
}

func TestForCustomerMatchesNormalizedName(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	c := &models.Customer{Name: "Acme Ltd"}
	if err := f.catalog.CreateCustomer(acct, c); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ACME LTD ", "Other Co"} {
		w := heaterWarranty()
		w.CustomerName = name
		if err := f.svc.Create(acct, &w); err != nil {
			t.Fatal(err)
		}
	}

	views, err := f.svc.ForCustomer(acct, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].CustomerName != "ACME LTD" {
		t.Errorf("ForCustomer = %+v", views)
	}
}

func TestPreviewComputesExpiry(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")

	view, err := f.svc.Preview(f.owner.AccountID, heaterWarranty())
	if err != nil {
		t.Fatal(err)
	}
	if got := view.ProductExpiryDate.Format(dateLayout); got != "2025-01-15" {
		t.Errorf("product expiry = %s", got)
	}
	if got := view.InstallationExpiryDate.Format(dateLayout); got != "2024-07-15" {
		t.Errorf("installation expiry = %s", got)
	}
	if view.StatusInfo.Status != warranty.StatusActive {
		t.Errorf("status = %s", view.StatusInfo.Status)
	}
}

func TestListOrdersByCreationTime(t *testing.T) {
	f := newWarrantyFixture(t, "2024-06-01")
	acct := f.owner.AccountID

	// Restored records keep ids that do not sort by age
	rows := []models.Warranty{
		{ID: "zz-older", AccountID: acct, CustomerName: "Older", CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "aa-newer", AccountID: acct, CustomerName: "Newer", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for i := range rows {
		if err := f.db.Create(&rows[i]).Error; err != nil {
			t.Fatal(err)
		}
	}
	latest := heaterWarranty()
	if err := f.svc.Create(acct, &latest); err != nil {
		t.Fatal(err)
	}

	views, err := f.svc.List(acct, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, v := range views {
		got = append(got, v.ID)
	}
	want := []string{latest.ID, "aa-newer", "zz-older"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}
}
