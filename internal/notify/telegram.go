// Package notify tells the shop staff about new orders.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/domain/order"
	"github.com/doce-emergencia/storefront/internal/money"
)

// DefaultTimeout bounds a single notification.
const DefaultTimeout = 5 * time.Second

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ order.Notifier = (*Telegram)(nil)

// Telegram posts a summary of every order to a staff chat.
type Telegram struct {
	bot     Sender
	chatID  int64
	timeout time.Duration
}

// NewTelegram authenticates the bot with token. Every bot API call, the
// authentication included, is bounded by timeout; a non-positive timeout
// means DefaultTimeout.
func NewTelegram(token string, chatID int64, timeout time.Duration) (*Telegram, error) {
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}
	return NewTelegramWithSender(bot, chatID, timeout), nil
}

// NewTelegramWithSender returns a notifier using an existing sender.
func NewTelegramWithSender(bot Sender, chatID int64, timeout time.Duration) *Telegram {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Telegram{bot: bot, chatID: chatID, timeout: timeout}
}

// NotifyOrder sends the order summary and the customer's WhatsApp link. It
// returns once the message is sent, ctx is done, or the notifier timeout
// elapses, whichever comes first. A send still in flight then finishes in
// the background.
func (t *Telegram) NotifyOrder(ctx context.Context, o *order.Order, msg *checkout.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	m := tgbotapi.NewMessage(t.chatID, Summary(o, msg))
	m.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(m)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "send telegram message")
		}
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "send telegram message")
	}
}

// Summary renders the staff-facing text for o.
func Summary(o *order.Order, msg *checkout.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Novo pedido %s\n", shortID(o.ID))
	fmt.Fprintf(&b, "Cliente: %s\n", o.ClientName)
	fmt.Fprintf(&b, "Endereço: %s\n", o.DeliveryAddress)
	fmt.Fprintf(&b, "Pagamento: %s\n", o.PaymentMethod)
	b.WriteString("\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%dx %s (%s)\n", it.Quantity, it.Name, money.Format(it.UnitPrice))
	}
	fmt.Fprintf(&b, "\nTotal: %s", money.Format(o.Total))
	if msg != nil && msg.URL != "" {
		fmt.Fprintf(&b, "\n\nWhatsApp: %s", msg.URL)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
