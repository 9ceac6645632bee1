// Package cart holds the shopping cart container and the stores that keep a
// cart alive between requests.
package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/doce-emergencia/storefront/internal/money"
)

// Line is one product's entry in the cart.
type Line struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal returns the parsed unit price multiplied by the quantity.
func (l Line) Subtotal() decimal.Decimal {
	return money.ParseOrZero(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered set of lines with at most one line per product.
//
// A decrement never takes a line below one unit; use Remove to drop it.
// Cart is not safe for concurrent use; Service serializes access per cart.
type Cart struct {
	lines []Line
}

// New returns a cart seeded with lines, merging duplicates.
func New(lines ...Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		c.Add(l)
	}
	return c
}

// Add merges l into the cart. An existing line for the same product gains
// l.Quantity units; otherwise l is appended. A non-positive quantity counts
// as one.
func (c *Cart) Add(l Line) {
	if l.Quantity <= 0 {
		l.Quantity = 1
	}
	if i := c.index(l.ProductID); i >= 0 {
		c.lines[i].Quantity += l.Quantity
		return
	}
	c.lines = append(c.lines, l)
}

// Increase adds one unit to the product's line. Unknown ids are ignored.
func (c *Cart) Increase(productID int64) {
	if i := c.index(productID); i >= 0 {
		c.lines[i].Quantity++
	}
}

// Decrease removes one unit from the product's line, stopping at one.
func (c *Cart) Decrease(productID int64) {
	if i := c.index(productID); i >= 0 && c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
	}
}

// Remove drops the product's line regardless of its quantity.
func (c *Cart) Remove(productID int64) {
	if i := c.index(productID); i >= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
	}
}

// Subtract takes each line's quantity off the matching product's line and
// drops lines that reach zero. Products not in the cart are ignored.
func (c *Cart) Subtract(lines ...Line) {
	for _, l := range lines {
		i := c.index(l.ProductID)
		if i < 0 {
			continue
		}
		c.lines[i].Quantity -= l.Quantity
		if c.lines[i].Quantity <= 0 {
			c.lines = slices.Delete(c.lines, i, i+1)
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Total sums every line's subtotal. Lines with an unparsable price add zero.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count returns the number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Len returns the number of distinct products.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Line returns the line for productID.
func (c *Cart) Line(productID int64) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) index(productID int64) int {
	return slices.IndexFunc(c.lines, func(l Line) bool {
		return l.ProductID == productID
	})
}
