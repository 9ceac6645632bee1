package product

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// AllCategories is the pseudo category that selects the whole catalog.
const AllCategories = "Todos"

// Product is a catalog item. Price is kept exactly as displayed
// ("R$ 3,80"); use money.Parse to compute with it.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       string
	Weight      string
	Category    string
	Image       string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
