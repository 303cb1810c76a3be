package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthKey is the persistent unlock flag. It has no expiry.
const AdminAuthKey = "adminAuth"

// AdminGate checks the dashboard PIN. Only a bcrypt hash of the PIN is kept.
type AdminGate struct {
	pinHash []byte
}

func NewAdminGate(pin string) (*AdminGate, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin pin: %w", err)
	}
	return &AdminGate{pinHash: hash}, nil
}

// Login unlocks the dashboard for store when pin matches.
func (g *AdminGate) Login(store database.Store, pin string) error {
	if bcrypt.CompareHashAndPassword(g.pinHash, []byte(pin)) != nil {
		utils.InfoLogger.Printf("Admin login rejected")
		return ErrInvalidPIN
	}
	if err := store.Set(AdminAuthKey, "true"); err != nil {
		return fmt.Errorf("save admin flag: %w", err)
	}
	utils.InfoLogger.Printf("Admin dashboard unlocked")
	return nil
}

func (g *AdminGate) IsUnlocked(store database.Store) bool {
	v, _, err := store.Get(AdminAuthKey)
	if err != nil {
		utils.ErrorLogger.Printf("Error reading admin flag: %v", err)
		return false
	}
	return v == "true"
}

func (g *AdminGate) Logout(store database.Store) error {
	return store.Remove(AdminAuthKey)
}

// AdminService backs the Orders and Menu tabs. Mutations never touch local
// state; callers get the refetched list back.
type AdminService struct {
	backend Backend
	menus   *MenuService
}

func NewAdminService(backend Backend, menus *MenuService) *AdminService {
	return &AdminService{backend: backend, menus: menus}
}

// Orders lists the orders of a table. A 404 means the table has none.
func (as *AdminService) Orders(ctx context.Context, table int) ([]models.OrderSummary, error) {
	orders, err := as.backend.ListTableOrders(ctx, table, "")
	if err != nil {
		if ae, ok := AsAPIError(err); ok && ae.StatusCode == http.StatusNotFound {
			return []models.OrderSummary{}, nil
		}
		return nil, err
	}
	return orders, nil
}

func (as *AdminService) Tables(ctx context.Context) ([]models.Table, error) {
	return as.backend.ListTables(ctx)
}

// TransitionOrder moves an order to status to and returns the table's
// refreshed order list. Cancelling needs confirm.
func (as *AdminService) TransitionOrder(ctx context.Context, orderID string, to models.OrderStatus, confirm bool) ([]models.OrderSummary, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	if to == models.StatusCancelled && !confirm {
		return nil, ErrConfirmationRequired
	}
	order, err := as.backend.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, order.Status, to)
	}
	if err := as.backend.UpdateOrderStatus(ctx, orderID, to); err != nil {
		utils.ErrorLogger.Printf("Update order %s to %s failed: %v", orderID, to, err)
		return nil, err
	}
	utils.InfoLogger.WithField("table", order.TableNumber).Printf("Order %s: %s -> %s", orderID, order.Status, to)
	return as.Orders(ctx, order.TableNumber)
}

// AdvanceOrder applies the single forward step from the current status.
func (as *AdminService) AdvanceOrder(ctx context.Context, orderID string) ([]models.OrderSummary, error) {
	order, err := as.backend.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := order.Status.Next()
	if !ok {
		return nil, fmt.Errorf("%w: %s is final", ErrIllegalTransition, order.Status)
	}
	return as.TransitionOrder(ctx, orderID, next, false)
}

func (as *AdminService) CancelOrder(ctx context.Context, orderID string, confirm bool) ([]models.OrderSummary, error) {
	return as.TransitionOrder(ctx, orderID, models.StatusCancelled, confirm)
}

// EndSession closes every open order of a table.
func (as *AdminService) EndSession(ctx context.Context, table int, confirm bool) (*models.EndSessionResponse, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	resp, err := as.backend.EndTableSession(ctx, table)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithField("table", table).Printf("Table session ended (%d orders closed)", resp.ClosedOrders)
	return resp, nil
}

func (as *AdminService) Categories(ctx context.Context) ([]models.Category, error) {
	return as.backend.ListCategories(ctx)
}

func (as *AdminService) CreateCategory(ctx context.Context, name string) ([]models.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if _, err := as.backend.CreateCategory(ctx, models.CategoryInput{Name: strings.TrimSpace(name)}); err != nil {
		return nil, err
	}
	return as.refetchCategories(ctx)
}

func (as *AdminService) RenameCategory(ctx context.Context, id int, name string) ([]models.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if _, err := as.backend.UpdateCategory(ctx, id, models.CategoryInput{Name: strings.TrimSpace(name)}); err != nil {
		return nil, err
	}
	return as.refetchCategories(ctx)
}

func (as *AdminService) DeleteCategory(ctx context.Context, id int, confirm bool) ([]models.Category, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	if err := as.backend.DeleteCategory(ctx, id); err != nil {
		return nil, err
	}
	return as.refetchCategories(ctx)
}

func (as *AdminService) Items(ctx context.Context) ([]models.MenuItem, error) {
	return as.backend.ListMenuItems(ctx)
}

func (as *AdminService) CreateItem(ctx context.Context, in models.MenuItemInput) ([]models.MenuItem, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Price == nil || in.CategoryID == nil {
		return nil, fmt.Errorf("%w: name, price and category are required", ErrInvalidInput)
	}
	if *in.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if _, err := as.backend.CreateMenuItem(ctx, in); err != nil {
		return nil, err
	}
	return as.refetchItems(ctx)
}

func (as *AdminService) UpdateItem(ctx context.Context, id int, in models.MenuItemInput) ([]models.MenuItem, error) {
	if in.Price != nil && *in.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if _, err := as.backend.UpdateMenuItem(ctx, id, in); err != nil {
		return nil, err
	}
	return as.refetchItems(ctx)
}

func (as *AdminService) SetAvailability(ctx context.Context, id int, available bool) ([]models.MenuItem, error) {
	return as.UpdateItem(ctx, id, models.MenuItemInput{IsAvailable: &available})
}

func (as *AdminService) DeleteItem(ctx context.Context, id int, confirm bool) ([]models.MenuItem, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	if err := as.backend.DeleteMenuItem(ctx, id); err != nil {
		return nil, err
	}
	return as.refetchItems(ctx)
}

func (as *AdminService) UploadImage(ctx context.Context, id int, filename string, image io.Reader) ([]models.MenuItem, error) {
	if _, err := as.backend.UploadMenuItemImage(ctx, id, filename, image); err != nil {
		return nil, err
	}
	return as.refetchItems(ctx)
}

func (as *AdminService) refetchCategories(ctx context.Context) ([]models.Category, error) {
	as.invalidateMenu()
	return as.backend.ListCategories(ctx)
}

func (as *AdminService) refetchItems(ctx context.Context) ([]models.MenuItem, error) {
	as.invalidateMenu()
	return as.backend.ListMenuItems(ctx)
}

func (as *AdminService) invalidateMenu() {
	if as.menus != nil {
		as.menus.Invalidate()
	}
}
