package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

// Backend is the REST API the client talks to.
type Backend interface {
	GetMenu(ctx context.Context, table int) (*models.Menu, error)
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListTableOrders(ctx context.Context, table int, guestToken string) ([]models.OrderSummary, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int, in models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int) error
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	CreateMenuItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id int, in models.MenuItemInput) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int) error
	UploadMenuItemImage(ctx context.Context, id int, filename string, image io.Reader) (*models.MenuItem, error)
	ListTables(ctx context.Context) ([]models.Table, error)
	EndTableSession(ctx context.Context, table int) (*models.EndSessionResponse, error)
}

// BackendClient is the HTTP implementation of Backend.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BackendClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewBackendClientWithHTTP lets tests inject the httptest server client.
func NewBackendClientWithHTTP(baseURL string, httpClient *http.Client) *BackendClient {
	return &BackendClient{baseURL: baseURL, httpClient: httpClient}
}

// errorMessage decides the message of a failed response from the status,
// the server's own message (if any) and whether the body was JSON at all.
type errorMessage func(status int, serverMsg string, jsonBody bool) string

func serverError(status int) string {
	return fmt.Sprintf("Server error: %d", status)
}

// statusOnly ignores whatever the server said.
func statusOnly(status int, _ string, _ bool) string {
	return serverError(status)
}

// messageOr prefers the server message; a body that is not JSON yields
// "Server error: <code>" and a JSON body without a message yields generic.
func messageOr(generic string) errorMessage {
	return func(status int, serverMsg string, jsonBody bool) string {
		if serverMsg != "" {
			return serverMsg
		}
		if !jsonBody {
			return serverError(status)
		}
		return generic
	}
}

func (bc *BackendClient) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u := bc.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (bc *BackendClient) send(req *http.Request, out interface{}, message errorMessage) error {
	start := time.Now()
	resp, err := bc.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		utils.ErrorLogger.Printf("backend %s %s unreachable: %v", req.Method, req.URL.Path, err)
		return &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectivityError{Err: fmt.Errorf("error reading response: %w", err)}
	}
	utils.InfoLogger.Debugf("backend %s %s -> %d (%v)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, body, message)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(status int, body []byte, message errorMessage) *APIError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	jsonBody := json.Unmarshal(body, &payload) == nil
	serverMsg := payload.Message
	if serverMsg == "" {
		serverMsg = payload.Error
	}
	if message == nil {
		message = messageOr("")
	}
	return &APIError{StatusCode: status, Message: message(status, serverMsg, jsonBody)}
}

func (bc *BackendClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, message errorMessage) error {
	req, err := bc.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return bc.send(req, out, message)
}

func (bc *BackendClient) GetMenu(ctx context.Context, table int) (*models.Menu, error) {
	q := url.Values{"table": {strconv.Itoa(table)}}
	var menu models.Menu
	err := bc.do(ctx, http.MethodGet, "/menu", q, nil, &menu, func(status int, serverMsg string, _ bool) string {
		if status != http.StatusBadRequest {
			return serverError(status)
		}
		if serverMsg != "" {
			return serverMsg
		}
		return "Invalid table number"
	})
	if err != nil {
		return nil, err
	}
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	return &menu, nil
}

func (bc *BackendClient) CreateOrder(ctx context.Context, in models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	var out models.CreateOrderResponse
	err := bc.do(ctx, http.MethodPost, "/orders", nil, in, &out, messageOr("Failed to place order"))
	if err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	return &out, nil
}

func (bc *BackendClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	req, err := bc.newRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, err
	}
	err = bc.send(req, &order, func(status int, _ string, _ bool) string {
		if status == http.StatusNotFound {
			return ErrOrderNotFound.Error()
		}
		return serverError(status)
	})
	if err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (bc *BackendClient) ListTableOrders(ctx context.Context, table int, guestToken string) ([]models.OrderSummary, error) {
	var q url.Values
	if guestToken != "" {
		q = url.Values{"guestToken": {guestToken}}
	}
	var orders []models.OrderSummary
	if err := bc.do(ctx, http.MethodGet, "/orders/table/"+strconv.Itoa(table), q, nil, &orders, statusOnly); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.OrderSummary{}
	}
	return orders, nil
}

func (bc *BackendClient) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	return bc.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", nil,
		models.StatusUpdateRequest{Status: status}, nil, func(code int, serverMsg string, _ bool) string {
			if serverMsg != "" {
				return serverMsg
			}
			return fmt.Sprintf("Failed to update order status (%d)", code)
		})
}

func (bc *BackendClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := bc.do(ctx, http.MethodGet, "/admin/categories", nil, nil, &out, statusOnly)
	return out, err
}

func (bc *BackendClient) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	if err := bc.do(ctx, http.MethodPost, "/admin/categories", nil, in, &out, messageOr("Failed to create category")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (bc *BackendClient) UpdateCategory(ctx context.Context, id int, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	if err := bc.do(ctx, http.MethodPatch, "/admin/categories/"+strconv.Itoa(id), nil, in, &out, messageOr("Failed to update category")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (bc *BackendClient) DeleteCategory(ctx context.Context, id int) error {
	return bc.do(ctx, http.MethodDelete, "/admin/categories/"+strconv.Itoa(id), nil, nil, nil, messageOr("Failed to delete category"))
}

func (bc *BackendClient) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	var out []models.MenuItem
	err := bc.do(ctx, http.MethodGet, "/admin/menu-items", nil, nil, &out, statusOnly)
	return out, err
}

func (bc *BackendClient) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error) {
	var out models.MenuItem
	if err := bc.do(ctx, http.MethodPost, "/admin/menu-items", nil, in, &out, messageOr("Failed to create menu item")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (bc *BackendClient) UpdateMenuItem(ctx context.Context, id int, in models.MenuItemInput) (*models.MenuItem, error) {
	var out models.MenuItem
	if err := bc.do(ctx, http.MethodPatch, "/admin/menu-items/"+strconv.Itoa(id), nil, in, &out, messageOr("Failed to update menu item")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (bc *BackendClient) DeleteMenuItem(ctx context.Context, id int) error {
	return bc.do(ctx, http.MethodDelete, "/admin/menu-items/"+strconv.Itoa(id), nil, nil, nil, messageOr("Failed to delete menu item"))
}

// UploadMenuItemImage posts the image as multipart field "image".
func (bc *BackendClient) UploadMenuItemImage(ctx context.Context, id int, filename string, image io.Reader) (*models.MenuItem, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("error reading image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		bc.baseURL+"/admin/menu-items/"+strconv.Itoa(id)+"/image", &buf)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.MenuItem
	if err := bc.send(req, &out, messageOr("Failed to upload image")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (bc *BackendClient) ListTables(ctx context.Context) ([]models.Table, error) {
	var out []models.Table
	err := bc.do(ctx, http.MethodGet, "/admin/tables", nil, nil, &out, statusOnly)
	return out, err
}

func (bc *BackendClient) EndTableSession(ctx context.Context, table int) (*models.EndSessionResponse, error) {
	var out models.EndSessionResponse
	if err := bc.do(ctx, http.MethodPost, "/admin/tables/"+strconv.Itoa(table)+"/end-session", nil, nil, &out, messageOr("Failed to end session")); err != nil {
		return nil, err
	}
	return &out, nil
}
