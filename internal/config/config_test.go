package config

import "testing"

func TestParsePackagesEmptyUsesDefaults(t *testing.T) {
	packages, err := ParsePackages("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packages) != len(DefaultPackages) {
		t.Fatalf("expected %d default packages, got %d", len(DefaultPackages), len(packages))
	}
	if packages[0].ID != "pkg_10" || packages[0].Credits != 10 || packages[0].PriceCents != 100 {
		t.Fatalf("unexpected first default package %+v", packages[0])
	}
}

func TestParsePackagesCustomCatalog(t *testing.T) {
	packages, err := ParsePackages("starter:5:99, bulk:500:2500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(packages))
	}
	if packages[0].ID != "starter" || packages[0].Credits != 5 || packages[0].PriceCents != 99 {
		t.Fatalf("unexpected package %+v", packages[0])
	}
	if packages[1].ID != "bulk" || packages[1].Credits != 500 || packages[1].PriceCents != 2500 {
		t.Fatalf("unexpected package %+v", packages[1])
	}
}

func TestParsePackagesRejectsMalformedEntries(t *testing.T) {
	cases := []string{
		"starter:5",
		"starter:abc:99",
		"starter:5:free",
		"starter:0:99",
		"starter:5:-1",
		",,",
	}
	for _, raw := range cases {
		if _, err := ParsePackages(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
