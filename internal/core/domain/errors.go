package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrItemNotFound         = errors.New("item not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrCommitInProgress     = errors.New("order commit in progress")
	ErrPriceBelowCost       = errors.New("selling price is less than cost price")
	ErrDashboardUnavailable = errors.New("dashboard data unavailable")
	ErrInvalidCredentials   = errors.New("invalid login credentials")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrForbidden            = errors.New("permission denied")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidTransition    = errors.New("invalid sale state transition")
	ErrInvalidLineQuantity  = errors.New("cart line quantity must be positive")
)

// User-facing validation and constraint messages.
const (
	MsgPasswordMismatch = "Passwords do not match"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgEmailRequired    = "Email is required"
	MsgInvalidRole      = "Invalid role"
	MsgNameRequired     = "Name is required"
	MsgCategoryRequired = "Please select a category"
	MsgPriceNegative    = "Price cannot be negative"
	MsgCostNegative     = "Cost cannot be negative"
	MsgQuantityNegative = "Quantity cannot be negative"
	MsgMinStockNegative = "Minimum stock cannot be negative"
	MsgPermissionDenied = "Permission denied. Please check if you are logged in as an admin user."
	MsgInvalidCategory  = "Invalid category selected. Please choose a valid category."
	MsgRequiredFields   = "Please fill in all required fields."
	MsgDuplicateEntry   = "A record with the same value already exists."
)

// ValidationError is a failure detected before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

type ConstraintKind int

const (
	ConstraintPermission ConstraintKind = iota
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintDuplicate
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintPermission:
		return "PERMISSION_DENIED"
	case ConstraintForeignKey:
		return "FOREIGN_KEY"
	case ConstraintNotNull:
		return "NOT_NULL"
	case ConstraintDuplicate:
		return "DUPLICATE"
	default:
		return "UNKNOWN"
	}
}

// ConstraintError is a store-side rejection of a write, already mapped to a
// user-facing message. Cause keeps the driver error.
type ConstraintError struct {
	Kind    ConstraintKind
	Message string
	Cause   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ConstraintError) Unwrap() error {
	return e.Cause
}

// NewConstraintError builds a ConstraintError with the canonical message for kind.
func NewConstraintError(kind ConstraintKind, cause error) *ConstraintError {
	msg := ""
	switch kind {
	case ConstraintPermission:
		msg = MsgPermissionDenied
	case ConstraintForeignKey:
		msg = MsgInvalidCategory
	case ConstraintNotNull:
		msg = MsgRequiredFields
	case ConstraintDuplicate:
		msg = MsgDuplicateEntry
	}
	return &ConstraintError{Kind: kind, Message: msg, Cause: cause}
}
