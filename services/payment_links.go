package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

// AttemptedOrdersKey holds the JSON array of order ids the visitor tapped a
// payment link for. It lives in session-scoped storage.
const AttemptedOrdersKey = "attempted_orders"

// PaymentNotedMessage is shown for orders marked as attempted.
const PaymentNotedMessage = "If you've completed the transaction for this order, our team will verify it in a moment. Your order status will be updated shortly."

const maxNoteLength = 80

type UPIApp string

const (
	UPIGooglePay UPIApp = "gpay"
	UPIPhonePe   UPIApp = "phonepe"
	UPIPaytm     UPIApp = "paytm"
	UPIDefault   UPIApp = "default"
)

// UPIApps is the order the links are offered in.
var UPIApps = []UPIApp{UPIGooglePay, UPIPhonePe, UPIPaytm, UPIDefault}

func (a UPIApp) prefix() string {
	switch a {
	case UPIGooglePay:
		return "tez://upi/pay?"
	case UPIPaytm:
		return "paytmmp://pay?"
	case UPIPhonePe:
		return "phonepe://pay?"
	}
	return "upi://pay?"
}

type Merchant struct {
	VPA  string
	Name string
}

type PaymentLink struct {
	App UPIApp `json:"app"`
	URL string `json:"url"`
}

// PaymentNote summarises the order for the UPI transaction note:
// "Name(qty), Name(qty) | Order #<last 8 of id>", cut to 80 characters.
func PaymentNote(orderID string, items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s(%d)", it.Name, it.Quantity))
	}
	ref := orderID
	if len(ref) > 8 {
		ref = ref[len(ref)-8:]
	}
	note := strings.Join(parts, ", ") + " | Order #" + ref

	r := []rune(note)
	if len(r) > maxNoteLength {
		return string(r[:maxNoteLength-3]) + "..."
	}
	return note
}

// UPILink builds the deep link for one wallet app. Parameters keep the
// pa, pn, am, tn, cu order.
func UPILink(app UPIApp, m Merchant, amount decimal.Decimal, note string) string {
	pairs := [][2]string{
		{"pa", m.VPA},
		{"pn", m.Name},
		{"am", amount.StringFixed(2)},
		{"tn", note},
		{"cu", "INR"},
	}
	var b strings.Builder
	b.WriteString(app.prefix())
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(formEncode(p[0]))
		b.WriteByte('=')
		b.WriteString(formEncode(p[1]))
	}
	return b.String()
}

// PaymentLinks returns one link per app, or nil when the order can no
// longer be paid.
func PaymentLinks(m Merchant, order *models.Order) []PaymentLink {
	if order == nil || !order.Payable() {
		return nil
	}
	note := PaymentNote(order.ID, order.Items)
	amount := decimal.NewFromFloat(order.Total)
	links := make([]PaymentLink, 0, len(UPIApps))
	for _, app := range UPIApps {
		links = append(links, PaymentLink{App: app, URL: UPILink(app, m, amount, note)})
	}
	return links
}

// PaymentTracker records which orders the visitor claimed to have paid.
// It is only a display hint and never reaches the backend.
type PaymentTracker struct {
	store database.Store
}

func NewPaymentTracker(store database.Store) *PaymentTracker {
	return &PaymentTracker{store: store}
}

func (pt *PaymentTracker) load() []string {
	var ids []string
	found, err := database.GetJSON(pt.store, AttemptedOrdersKey, &ids)
	if err != nil {
		utils.ErrorLogger.Printf("Discarding corrupt %s: %v", AttemptedOrdersKey, err)
		_ = pt.store.Remove(AttemptedOrdersKey)
		return nil
	}
	if !found {
		return nil
	}
	return ids
}

func (pt *PaymentTracker) Attempted(orderID string) bool {
	for _, id := range pt.load() {
		if id == orderID {
			return true
		}
	}
	return false
}

func (pt *PaymentTracker) MarkAttempted(orderID string) error {
	ids := pt.load()
	for _, id := range ids {
		if id == orderID {
			return nil
		}
	}
	ids = append(ids, orderID)
	if err := database.SetJSON(pt.store, AttemptedOrdersKey, ids); err != nil {
		return fmt.Errorf("save attempted orders: %w", err)
	}
	utils.InfoLogger.Printf("Payment attempt noted for order %s", orderID)
	return nil
}

// queryEscape matches encodeURIComponent: unreserved marks stay literal and
// space becomes %20.
func queryEscape(s string) string {
	return escape(s, "-_.!~*'()", false)
}

// formEncode matches application/x-www-form-urlencoded serialisation:
// space becomes '+'.
func formEncode(s string) string {
	return escape(s, "-_.*", true)
}

func escape(s, keep string, spacePlus bool) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(keep, c) >= 0:
			b.WriteByte(c)
		case c == ' ' && spacePlus:
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&15])
		}
	}
	return b.String()
}
