package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StationStatus is the operating status of a station.
type StationStatus string

const (
	StationOpen             StationStatus = "OPEN"
	StationClosed           StationStatus = "CLOSED"
	StationUnderMaintenance StationStatus = "UNDER_MAINTENANCE"
)

// Region groups stations under a shared price multiplier
// (e.g. 1.0 for a normal zone, 1.2 for a premium zone).
type Region struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	PriceMultiplier decimal.Decimal `json:"price_multiplier"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Station is a stop on the network. Location is nil when coordinates were
// never captured; distance calculations fall back to a default in that case.
// Coordinates are treated as immutable once loaded into a network snapshot.
type Station struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Location  *GeoPoint     `json:"location,omitempty"`
	RegionID  string        `json:"region_id"`
	Status    StationStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Line is an ordered sequence of stations. The order of Stations is the
// physical traversal order; a station appears at most once per line but may
// sit on several lines.
type Line struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	FareMultiplier decimal.Decimal `json:"fare_multiplier"`
	Stations       []Station       `json:"stations"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StationIndex returns the position of a station on the line, or -1.
func (l *Line) StationIndex(stationID string) int {
	for i, s := range l.Stations {
		if s.ID == stationID {
			return i
		}
	}
	return -1
}

// JourneyStatus is the lifecycle state of a journey.
type JourneyStatus string

const (
	JourneyPlanned    JourneyStatus = "PLANNED"
	JourneyPurchased  JourneyStatus = "PURCHASED"
	JourneyInProgress JourneyStatus = "IN_PROGRESS"
	JourneyCompleted  JourneyStatus = "COMPLETED"
	JourneyCancelled  JourneyStatus = "CANCELLED"
)

// journeyTransitions lists the legal next states. COMPLETED and CANCELLED
// are terminal and absent from the map.
var journeyTransitions = map[JourneyStatus][]JourneyStatus{
	JourneyPlanned:    {JourneyPurchased, JourneyCancelled},
	JourneyPurchased:  {JourneyInProgress, JourneyCompleted, JourneyCancelled},
	JourneyInProgress: {JourneyCompleted, JourneyCancelled},
}

// CanTransition reports whether from → to is a legal journey transition.
func CanTransition(from, to JourneyStatus) bool {
	for _, next := range journeyTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Journey is a rider's trip between two stations on an assigned line.
// DistanceKm and Fare are computed fields: nil until calculated, and
// recomputed (not appended) on every calculation pass.
type Journey struct {
	ID             string           `json:"id"`
	RiderID        string           `json:"rider_id"`
	StartStationID string           `json:"start_station_id"`
	EndStationID   string           `json:"end_station_id"`
	LineID         string           `json:"line_id"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        *time.Time       `json:"end_time,omitempty"`
	Status         JourneyStatus    `json:"status"`
	DistanceKm     *float64         `json:"distance_km,omitempty"`
	Fare           *decimal.Decimal `json:"fare,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// FareConfigStatus is the lifecycle state of a pricing snapshot.
type FareConfigStatus string

const (
	FareConfigActive    FareConfigStatus = "ACTIVE"
	FareConfigInactive  FareConfigStatus = "INACTIVE"
	FareConfigScheduled FareConfigStatus = "SCHEDULED"
)

// FareConfiguration is an immutable-once-active pricing snapshot.
// At most one configuration is ACTIVE for any instant.
type FareConfiguration struct {
	ID                    string           `json:"id"`
	BasePricePerKm        decimal.Decimal  `json:"base_price_per_km"`
	MinimumFare           *decimal.Decimal `json:"minimum_fare,omitempty"`
	MaximumFare           *decimal.Decimal `json:"maximum_fare,omitempty"`
	PeakHourMultiplier    decimal.Decimal  `json:"peak_hour_multiplier"`
	OffPeakHourMultiplier decimal.Decimal  `json:"off_peak_hour_multiplier"`
	EffectiveFrom         time.Time        `json:"effective_from"`
	EffectiveTo           *time.Time       `json:"effective_to,omitempty"`
	Status                FareConfigStatus `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
}

// InEffect reports whether the config's effective window covers t.
// EffectiveTo is exclusive; an unset EffectiveTo means open-ended.
func (c *FareConfiguration) InEffect(t time.Time) bool {
	if t.Before(c.EffectiveFrom) {
		return false
	}
	return c.EffectiveTo == nil || t.Before(*c.EffectiveTo)
}

// PaymentType classifies ledger entries.
type PaymentType string

const (
	PaymentFare   PaymentType = "FARE_PAYMENT"
	PaymentTopup  PaymentType = "BALANCE_TOPUP"
	PaymentRefund PaymentType = "REFUND"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment is a ledger entry against a rider's balance. A journey has at most
// one non-refunded FARE_PAYMENT; a REFUND references the original payment's
// journey. TransactionRef is unique per payment.
type Payment struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionTime time.Time       `json:"transaction_time"`
	Type            PaymentType     `json:"type"`
	Status          PaymentStatus   `json:"status"`
	RiderID         string          `json:"rider_id"`
	JourneyID       *string         `json:"journey_id,omitempty"`
	TransactionRef  string          `json:"transaction_ref"`
}

// Rider is the balance-carrying account. Balance is non-negative and is
// mutated only by payment settlement.
type Rider struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
