package product

import (
	"context"
	"fmt"
	"strings"
)

// Catalog serves shopper-facing product reads.
type Catalog struct {
	products     Repository
	imageBaseURL string
}

// NewCatalog returns a Catalog. Relative image paths are joined to
// imageBaseURL; absolute URLs and empty images are left untouched.
func NewCatalog(products Repository, imageBaseURL string) *Catalog {
	return &Catalog{
		products:     products,
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
	}
}

// List returns the products of category in catalog order. An empty category
// or AllCategories returns every product.
func (c *Catalog) List(ctx context.Context, category string) ([]Product, error) {
	var (
		products []Product
		err      error
	)
	category = strings.TrimSpace(category)
	if category == "" || category == AllCategories {
		products, err = c.products.List(ctx)
	} else {
		products, err = c.products.ListByCategory(ctx, category)
	}
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		products[i].Image = c.imageURL(products[i].Image)
	}
	return products, nil
}

// Get returns a single product.
func (c *Catalog) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Image = c.imageURL(p.Image)
	return p, nil
}

// Categories returns AllCategories followed by every distinct category in
// the order it first appears in the catalog.
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	products, err := c.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	seen := make(map[string]struct{}, len(products))
	categories := []string{AllCategories}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories, nil
}

func (c *Catalog) imageURL(path string) string {
	if path == "" || c.imageBaseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}
