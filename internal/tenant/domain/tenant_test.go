package domain

import "testing"

func TestTenant_Validate(t *testing.T) {
	if err := (&Tenant{}).Validate(); err == nil {
		t.Error("empty slug should fail validation")
	}
	brand := "Acme Co"
	if err := (&Tenant{Slug: "acme", BrandName: &brand}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (&Tenant{Slug: "acme"}).Validate(); err != nil {
		t.Errorf("brand is optional: %v", err)
	}
}
