package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so transports can map them without string matching.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
)

// Error is a domain failure with a human readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works
// for every conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
)

func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for
// infrastructure failures.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Error messages shared by services and tests.
const (
	MsgItemsRequired       = "order must contain at least 1 item"
	MsgQuantityPositive    = "item quantity must be positive"
	MsgProductUnknown      = "product does not exist in this venue"
	MsgProductInactive     = "product is not active"
	MsgOrderNotOpen        = "order is not open"
	MsgAmountPositive      = "payment amount must be positive"
	MsgPaymentMethod       = "payment method must be one of: cash, card, pix"
	MsgTicketDelivered     = "ticket already delivered"
	MsgTicketSkip          = "ticket can only move one step forward"
	MsgTicketStatusUnknown = "ticket status must be one of: queue, preparing, ready, delivered"
	MsgOrderStatusUnknown  = "order status must be one of: open, closed, canceled"
	MsgFieldNotPatchable   = "field cannot be changed through order update"
	MsgPatchEmpty          = "order update must set code or customer_name"
	MsgOrdersDisabled      = "orders module is disabled for this venue"
	MsgDuplicateRequest    = "a request with this idempotency key is already being processed"
	MsgKeyReused           = "idempotency key was already used for a different request"
	MsgAmountPrecision     = "amount must have at most 2 decimal places"
	MsgPricePrecision      = "product price must have at most 2 decimal places"
)
