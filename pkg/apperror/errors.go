package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Logic (LED) ----

func ErrInvalidAmount() *AppError {
	return New("LED_001", "Invalid amount", http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("LED_002", "Currency does not match wallet currency", http.StatusBadRequest)
}

func ErrWalletNotFound() *AppError {
	return New("LED_003", "Wallet not found or inactive", http.StatusNotFound)
}

func ErrInsufficientBalance() *AppError {
	return New("LED_004", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrUnsupportedCurrency() *AppError {
	return New("LED_005", "Unsupported currency", http.StatusBadRequest)
}

func ErrUnknownTransactionType() *AppError {
	return New("LED_006", "Unknown transaction type", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_007", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrAuthenticationRequired() *AppError {
	return New("AUTH_001", "Authentication required", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
