package service

import (
	"fmt"

	"github.com/parrotlabs/voiceforge/internal/models"
)

// Catalog is the server-trusted mapping from package id to credit amount and
// price. It is fixed at process start; confirmation payloads only ever
// contribute a package id, never an amount.
type Catalog struct {
	packages map[string]models.Package
	order    []string
}

func NewCatalog(packages []models.Package) (*Catalog, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("catalog requires at least one package")
	}
	byID := make(map[string]models.Package, len(packages))
	order := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if pkg.ID == "" || pkg.Credits <= 0 || pkg.PriceCents <= 0 {
			return nil, fmt.Errorf("invalid package definition %+v", pkg)
		}
		if _, dup := byID[pkg.ID]; dup {
			return nil, fmt.Errorf("duplicate package id %q", pkg.ID)
		}
		byID[pkg.ID] = pkg
		order = append(order, pkg.ID)
	}
	return &Catalog{packages: byID, order: order}, nil
}

// Lookup resolves a package id to its trusted definition.
func (c *Catalog) Lookup(packageID string) (models.Package, error) {
	pkg, ok := c.packages[packageID]
	if !ok {
		return models.Package{}, fmt.Errorf("%w: %q", ErrInvalidPackage, packageID)
	}
	return pkg, nil
}

// List returns the catalog in definition order.
func (c *Catalog) List() []models.Package {
	out := make([]models.Package, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.packages[id])
	}
	return out
}
