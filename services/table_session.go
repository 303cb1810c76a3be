package services

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

func GuestTokenKey(table int) string  { return fmt.Sprintf("guestId_table_%d", table) }
func LastOrderIDKey(table int) string { return fmt.Sprintf("lastOrderId_table_%d", table) }

// NewGuestToken returns guest_<unix millis>_<9 base36 chars>.
func NewGuestToken(now time.Time) string {
	id := uuid.New()
	suffix := new(big.Int).SetBytes(id[:]).Text(36)
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return fmt.Sprintf("guest_%d_%s", now.UnixMilli(), suffix[:9])
}

// TableSession scopes the per-table keys of one browser.
type TableSession struct {
	Table int
	store database.Store
	now   func() time.Time
}

// OpenTableSession validates the raw table parameter.
func OpenTableSession(store database.Store, rawTable string) (*TableSession, error) {
	table, err := models.ParseTableNumber(rawTable)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingTable, err)
	}
	return &TableSession{Table: table, store: store, now: time.Now}, nil
}

func NewTableSession(store database.Store, table int) *TableSession {
	return &TableSession{Table: table, store: store, now: time.Now}
}

// GuestToken returns the stored token, or creates and stores a new one.
func (ts *TableSession) GuestToken() (string, error) {
	tok, ok, err := ts.store.Get(GuestTokenKey(ts.Table))
	if err != nil {
		return "", err
	}
	if ok && tok != "" {
		return tok, nil
	}
	tok = NewGuestToken(ts.now())
	if err := ts.store.Set(GuestTokenKey(ts.Table), tok); err != nil {
		return "", fmt.Errorf("save guest token: %w", err)
	}
	utils.InfoLogger.Printf("New guest token issued for table %d", ts.Table)
	return tok, nil
}

// ExistingGuestToken returns the token only if one was issued before.
func (ts *TableSession) ExistingGuestToken() string {
	tok, _, err := ts.store.Get(GuestTokenKey(ts.Table))
	if err != nil {
		utils.ErrorLogger.Printf("Error reading guest token: %v", err)
		return ""
	}
	return tok
}

func (ts *TableSession) LastOrderID() string {
	id, _, err := ts.store.Get(LastOrderIDKey(ts.Table))
	if err != nil {
		utils.ErrorLogger.Printf("Error reading last order id: %v", err)
		return ""
	}
	return id
}

func (ts *TableSession) SetLastOrderID(orderID string) error {
	return ts.store.Set(LastOrderIDKey(ts.Table), orderID)
}

// StatusURL is the canonical order-status location for this table.
func (ts *TableSession) StatusURL(orderID string) string {
	return StatusURL(orderID, ts.Table)
}

func StatusURL(orderID string, table int) string {
	if orderID == "" {
		return fmt.Sprintf("/order-status?table=%d", table)
	}
	return fmt.Sprintf("/order-status?orderId=%s&table=%d", queryEscape(orderID), table)
}
