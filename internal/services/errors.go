package services

import (
	"errors"

	"github.com/diewo77/dealership-api/internal/store"
)

// Kind classifies service failures for callers.
type Kind int

const (
	KindStoreFailure Kind = iota
	KindNotFound
	KindInvalidState
	KindConflictingDependency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflictingDependency:
		return "conflicting_dependency"
	default:
		return "store_failure"
	}
}

// Error is a precondition failure of the sale core. Code is stable and used
// as the message key for translated responses.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// Sentinel errors returned by SaleService.
var (
	ErrVehicleNotFound     = newError(KindNotFound, "vehicle_not_found", "vehicle not found")
	ErrVehicleNotAvailable = newError(KindInvalidState, "vehicle_not_available", "vehicle is not available")

	ErrSaleNotFound             = newError(KindNotFound, "sale_not_found", "sale not found")
	ErrSaleAlreadyConcluded     = newError(KindInvalidState, "sale_already_concluded", "sale is already concluded")
	ErrSaleCancelledImmutable   = newError(KindInvalidState, "sale_cancelled_immutable", "cancelled sale cannot be concluded")
	ErrSaleAlreadyCancelled     = newError(KindInvalidState, "sale_already_cancelled", "sale is already cancelled")
	ErrSaleConcludedImmutable   = newError(KindInvalidState, "sale_concluded_immutable", "concluded sale cannot be cancelled")
	ErrSaleNotNegotiating       = newError(KindInvalidState, "sale_not_negotiating", "only sales in negotiation can be amended")
	ErrSaleConcludedUndeletable = newError(KindInvalidState, "sale_concluded_undeletable", "concluded sale cannot be deleted")
	ErrSaleMustBeCancelledFirst = newError(KindInvalidState, "sale_must_be_cancelled_first", "sale must be cancelled before deletion")
	ErrSaleHasPayments          = newError(KindConflictingDependency, "sale_has_payments", "sale has payments and cannot be deleted")
)

// KindOf classifies err. Anything that is not a service Error, including
// store and context errors, is a store failure.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStoreFailure
}

// IsConstraint reports whether err is a store constraint violation, such as
// a sale referencing a missing client or user.
func IsConstraint(err error) bool {
	return errors.Is(err, store.ErrConstraint)
}
