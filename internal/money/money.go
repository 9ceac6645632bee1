// Package money converts between decimal amounts and Brazilian real price
// strings such as "R$ 1.234,50".
package money

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Symbol is the currency prefix used when formatting.
const Symbol = "R$"

// ErrInvalidPrice is returned when a string does not contain a price.
var ErrInvalidPrice = errors.New("invalid price")

// Parse reads a locale-formatted price. The currency symbol, whitespace and
// any other decoration are ignored; "," is the decimal separator and "." the
// thousands separator. A string without a comma whose only dot is followed by
// one or two digits ("12.90") is read with the dot as decimal point.
func Parse(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		if strings.Count(cleaned, ",") > 1 {
			return decimal.Zero, errors.Wrapf(ErrInvalidPrice, "%q", s)
		}
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case strings.Count(cleaned, ".") == 1:
		if frac := len(cleaned) - strings.IndexByte(cleaned, '.') - 1; frac > 2 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	default:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, errors.Wrapf(ErrInvalidPrice, "%q", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidPrice, "%q", s)
	}
	return d, nil
}

// ParseOrZero is Parse that maps unparsable input to zero.
func ParseOrZero(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders d as "R$ 1.234,50", rounding half away from zero to cents.
func Format(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(Symbol)
	b.WriteByte(' ')
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
