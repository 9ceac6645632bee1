// Package checkout renders a cart and delivery details into the order
// message sent to the shop and its WhatsApp deep link.
package checkout

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/doce-emergencia/storefront/internal/domain/cart"
	"github.com/doce-emergencia/storefront/internal/money"
)

// DefaultPhone is the shop's WhatsApp number in E.164 digits.
const DefaultPhone = "5511976824710"

// ErrEmptyCart is returned when checking out a cart without lines.
var ErrEmptyCart = errors.New("cart is empty")

// Payment is an accepted payment method.
type Payment string

const (
	PaymentPix  Payment = "Pix"
	PaymentCash Payment = "Dinheiro"
	PaymentCard Payment = "Cartão"
)

// Payments lists the accepted payment methods in display order.
var Payments = []Payment{PaymentPix, PaymentCash, PaymentCard}

// Valid reports whether p is an accepted payment method.
func (p Payment) Valid() bool {
	switch p {
	case PaymentPix, PaymentCash, PaymentCard:
		return true
	default:
		return false
	}
}

// Customer holds the delivery details typed at checkout.
type Customer struct {
	Name    string
	Address string
	Payment Payment
}

// Normalized returns c with surrounding whitespace trimmed from the name and
// address.
func (c Customer) Normalized() Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	return c
}

// ValidationError lists the customer fields that were rejected, keyed by
// field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "invalid customer: " + strings.Join(parts, "; ")
}

// Validate checks that the trimmed name is longer than 2 characters, the
// trimmed address longer than 8, and the payment method is accepted.
func (c Customer) Validate() error {
	fields := make(map[string]string)
	if utf8.RuneCountInString(strings.TrimSpace(c.Name)) <= 2 {
		fields["name"] = "must be longer than 2 characters"
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Address)) <= 8 {
		fields["address"] = "must be longer than 8 characters"
	}
	if !c.Payment.Valid() {
		fields["payment"] = fmt.Sprintf("must be one of %s, %s, %s", PaymentPix, PaymentCash, PaymentCard)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Message is a rendered order.
type Message struct {
	Text  string
	URL   string
	Total decimal.Decimal
}

// Formatter renders order messages addressed to Phone.
type Formatter struct {
	Phone string
}

// NewFormatter returns a Formatter for phone, falling back to DefaultPhone.
func NewFormatter(phone string) *Formatter {
	if phone == "" {
		phone = DefaultPhone
	}
	return &Formatter{Phone: phone}
}

// Format renders lines and customer into the order message. The output is a
// pure function of its input.
func (f *Formatter) Format(lines []cart.Line, c Customer) (*Message, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	c = c.Normalized()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("✨🍫 *Novo Pedido Doce Emergência!* 🍫✨\n\n")
	b.WriteString("📦 *Itens:*\n")

	total := decimal.Zero
	for _, l := range lines {
		subtotal := l.Subtotal()
		total = total.Add(subtotal)

		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteString("x ")
		b.WriteString(l.Name)
		b.WriteString(" — ")
		b.WriteString(money.Format(subtotal))
		b.WriteByte('\n')
	}

	b.WriteString("\n💰 *Total:* ")
	b.WriteString(money.Format(total))
	b.WriteString("\n\n👤 *Cliente:* ")
	b.WriteString(c.Name)
	b.WriteString("\n📍 *Endereço:* ")
	b.WriteString(c.Address)
	b.WriteString("\n💳 *Forma de Pagamento:* ")
	b.WriteString(string(c.Payment))

	text := b.String()
	return &Message{
		Text:  text,
		URL:   f.link(text),
		Total: total,
	}, nil
}

// InquiryURL returns a deep link asking the shop for a single product.
func (f *Formatter) InquiryURL(productName string) string {
	return f.link("Olá! Quero pedir o " + strings.TrimSpace(productName) + " que vi no site.")
}

// MembershipURL returns a deep link asking to join the member discount plan.
func (f *Formatter) MembershipURL() string {
	return f.link("Olá! Gostaria de assinar o plano Membro Doce Emergência e ter acesso aos descontos exclusivos!")
}

func (f *Formatter) link(text string) string {
	return "https://wa.me/" + f.Phone + "?text=" + EncodeComponent(text)
}

// componentUnescaper undoes the escapes url.QueryEscape applies to characters
// that URI components leave alone, and writes spaces as %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s as a URI component: everything except
// ASCII letters, digits and -_.!~*'() is escaped, spaces become %20.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
