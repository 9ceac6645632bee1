package cart

import (
	"context"
	"fmt"

	"github.com/doce-emergencia/storefront/internal/domain/product"
)

// ProductReader resolves the product a line is created from.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// Service applies cart operations to stored carts. Every mutation of one
// cart id goes through Store.Update, so concurrent requests for the same
// cart are applied one at a time.
type Service struct {
	store    Store
	products ProductReader
}

// NewService creates a cart Service.
func NewService(store Store, products ProductReader) *Service {
	return &Service{
		store:    store,
		products: products,
	}
}

// Get returns the cart stored under id.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

// Add puts quantity units of a catalog product into the cart. The line
// captures the product's current name and price.
func (s *Service) Add(ctx context.Context, id string, productID int64, quantity int) (*Cart, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return s.update(ctx, id, func(c *Cart) {
		c.Add(Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  quantity,
		})
	})
}

// Increase adds one unit of productID.
func (s *Service) Increase(ctx context.Context, id string, productID int64) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) { c.Increase(productID) })
}

// Decrease removes one unit of productID, keeping at least one.
func (s *Service) Decrease(ctx context.Context, id string, productID int64) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) { c.Decrease(productID) })
}

// Remove drops productID from the cart.
func (s *Service) Remove(ctx context.Context, id string, productID int64) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) { c.Remove(productID) })
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Take removes the given lines' quantities from the cart in one update.
// Units added after lines were read stay in the cart.
func (s *Service) Take(ctx context.Context, id string, lines []Line) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) { c.Subtract(lines...) })
}

func (s *Service) update(ctx context.Context, id string, fn func(*Cart)) (*Cart, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, id, func(c *Cart) error {
		fn(c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return c, nil
}
