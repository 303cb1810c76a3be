package kds

import (
	"context"
	"time"

	"github.com/yeremiapane/table-order/services"
)

// OrderFeed refreshes the order list of every watched table on a fixed
// interval and pushes it to the hub.
type OrderFeed struct {
	hub    *Hub
	admin  *services.AdminService
	poller *services.Poller
}

func NewOrderFeed(hub *Hub, admin *services.AdminService, interval time.Duration) *OrderFeed {
	f := &OrderFeed{hub: hub, admin: admin}
	f.poller = services.NewPoller("admin-orders", interval, f.refresh)
	return f
}

func (f *OrderFeed) Start(ctx context.Context) { f.poller.Start(ctx) }

func (f *OrderFeed) Stop() { f.poller.Stop() }

// RefreshTable pushes one table right away, e.g. after a staff action.
func (f *OrderFeed) RefreshTable(ctx context.Context, table int) error {
	orders, err := f.admin.Orders(ctx, table)
	if err != nil {
		f.hub.BroadcastTableError(table, services.UserMessage(err, "Failed to load orders"))
		return err
	}
	f.hub.BroadcastTableOrders(table, orders)
	return nil
}

// RefreshAll pushes every watched table.
func (f *OrderFeed) RefreshAll(ctx context.Context) error {
	return f.refresh(ctx)
}

func (f *OrderFeed) refresh(ctx context.Context) error {
	var firstErr error
	for _, table := range f.hub.Tables() {
		if err := f.RefreshTable(ctx, table); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
