package services

import (
	"errors"
	"fmt"
)

// ConnectivityMessage is shown when the backend cannot be reached at all.
const ConnectivityMessage = "Cannot connect to server. Please make sure the backend server is running on port 3000."

// ConnectivityHint is the operator instruction printed with ConnectivityMessage.
const ConnectivityHint = "To start: cd backend && npm run dev"

var (
	ErrMissingTable         = errors.New("Missing Table Number")
	ErrInvalidSession       = errors.New("Invalid Session")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrSubmitInFlight       = errors.New("an order is already being placed")
	ErrOrderNotFound        = errors.New("Order not found")
	ErrMissingOrderID       = errors.New("Order Does Not Exist")
	ErrInvalidPIN           = errors.New("Invalid PIN")
	ErrAdminLocked          = errors.New("admin dashboard is locked")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrIllegalTransition    = errors.New("status change not allowed")
	ErrUnknownItem          = errors.New("menu item not found")
	ErrInvalidInput         = errors.New("invalid input")
)

// ConnectivityError wraps a transport failure: DNS, refused connection,
// timeout. No HTTP response was received.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return ConnectivityMessage
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response. Message is the server's own message when
// it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Server error: %d", e.StatusCode)
}

func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// UserMessage renders err the way the pages show it: the connectivity text,
// the server message, or fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if IsConnectivity(err) {
		return ConnectivityMessage
	}
	if ae, ok := AsAPIError(err); ok {
		return ae.Error()
	}
	msg := err.Error()
	if msg == "" {
		return fallback
	}
	return msg
}
