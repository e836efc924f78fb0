package domain

import "errors"

// Recoverable lookup failures (400-class for the HTTP layer).
var (
	ErrRegionNotFound     = errors.New("region not found")
	ErrStationNotFound    = errors.New("station not found")
	ErrLineNotFound       = errors.New("line not found")
	ErrJourneyNotFound    = errors.New("journey not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrFareConfigNotFound = errors.New("fare configuration not found")
	ErrNoRouteFound       = errors.New("no route found")
)

// Lifecycle and settlement failures. All of these leave state untouched.
var (
	ErrInvalidState        = errors.New("invalid state transition")
	ErrAlreadyPaid         = errors.New("journey already paid")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotRefundable       = errors.New("payment is not refundable")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrFareNotComputed     = errors.New("journey fare has not been computed")
)

// Precondition and data-integrity failures.
var (
	// ErrNoActiveFareConfig means fare computation has no pricing snapshot to
	// work with. It is fatal for the computation; never defaulted to zero.
	ErrNoActiveFareConfig = errors.New("no active fare configuration")

	// ErrDisconnectedRoute means a reconstructed station path contains
	// consecutive stations that share no line. The graph data is corrupt;
	// surfaced as an internal error, never papered over.
	ErrDisconnectedRoute = errors.New("disconnected route: consecutive stations share no line")

	// ErrSameStation rejects a journey or route between a station and itself.
	ErrSameStation = errors.New("start and end stations must be different")
)
