package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode writes the cart as {"lines":[...]}.
func (c *Cart) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range c.lines {
					l.Encode(e)
				}
			})
		})
	})
}

// Decode replaces the cart contents with the encoded lines. Lines go through
// Add, so duplicated products are merged and bad quantities normalized.
func (c *Cart) Decode(d *jx.Decoder) error {
	c.lines = nil
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key != "lines" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var l Line
			if err := l.Decode(d); err != nil {
				return err
			}
			c.Add(l)
			return nil
		})
	})
}

// MarshalJSON implements json.Marshaler.
func (c *Cart) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	c.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cart) UnmarshalJSON(data []byte) error {
	if err := c.Decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(err, "decode cart")
	}
	return nil
}

// Encode writes the line as a JSON object.
func (l Line) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(l.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("unit_price", func(e *jx.Encoder) { e.Str(l.UnitPrice) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
	})
}

// Decode reads a line written by Encode. Unknown fields are skipped.
func (l *Line) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			l.ProductID, err = d.Int64()
		case "name":
			l.Name, err = d.Str()
		case "unit_price":
			l.UnitPrice, err = d.Str()
		case "quantity":
			l.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}
