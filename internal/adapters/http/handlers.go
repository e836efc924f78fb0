package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// riderID extracts the authenticated rider from the X-Rider-ID header.
// Authentication proper happens at the gateway; the service trusts the
// header it receives.
func riderID(c *fiber.Ctx) string {
	return c.Get("X-Rider-ID")
}

// ---------------------------------------------------------------------------
// Network reads
// ---------------------------------------------------------------------------

// ListRegionsHandler returns all pricing regions.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		regions, err := deps.Regions.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(regions)
	}
}

// ListStationsHandler returns all stations, paginated.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Stations.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		page, pg := paginate(c, stations)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetStationHandler returns a single station by ID.
func GetStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station, err := deps.Stations.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return errNotFound(c, "station not found")
		}
		return c.JSON(station)
	}
}

// ListLinesHandler returns all lines with their ordered stations.
func ListLinesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lines, err := deps.Lines.ListWithStations(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(lines)
	}
}

// GetLineHandler returns a line by ID.
func GetLineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		line, err := deps.Lines.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return errNotFound(c, "line not found")
		}
		return c.JSON(line)
	}
}

// ---------------------------------------------------------------------------
// Route planning
// ---------------------------------------------------------------------------

// TopologyRouteHandler answers shortest-path queries ignoring line
// membership. An unreachable destination returns an empty route with 200.
func TopologyRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from := c.Query("from")
		to := c.Query("to")
		if from == "" || to == "" {
			return errBadRequest(c, "from and to are required")
		}

		route, err := deps.Routing.FindTopologyRoute(c.UserContext(), from, to)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(route)
	}
}

// PlanRouteHandler answers line-aware queries with explicit transfers.
func PlanRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from := c.Query("from")
		to := c.Query("to")
		if from == "" || to == "" {
			return errBadRequest(c, "from and to are required")
		}

		route, err := deps.Routing.FindLineAwareRoute(c.UserContext(), from, to)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(route)
	}
}

// ---------------------------------------------------------------------------
// Journeys
// ---------------------------------------------------------------------------

type createJourneyRequest struct {
	StartStationID string `json:"start_station_id" validate:"required"`
	EndStationID   string `json:"end_station_id" validate:"required"`
	LineID         string `json:"line_id" validate:"required"`
}

// CreateJourneyHandler creates a PLANNED journey for the calling rider.
func CreateJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rider := riderID(c)
		if rider == "" {
			return errUnauthorized(c, "X-Rider-ID header is required")
		}

		var req createJourneyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Validate.Struct(req); err != nil {
			return errBadRequest(c, err.Error())
		}

		j, err := deps.Journeys.Create(c.UserContext(), rider, req.StartStationID, req.EndStationID, req.LineID)
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(201).JSON(j)
	}
}

// ListJourneysHandler returns the calling rider's journeys.
func ListJourneysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rider := riderID(c)
		if rider == "" {
			return errUnauthorized(c, "X-Rider-ID header is required")
		}

		journeys, err := deps.Journeys.ListByRider(c.UserContext(), rider)
		if err != nil {
			return errInternal(c, err.Error())
		}
		page, pg := paginate(c, journeys)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetJourneyHandler returns one journey.
func GetJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(j)
	}
}

// ComputeJourneyFareHandler recomputes and persists the journey's distance
// and fare under the active configuration.
func ComputeJourneyFareHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.ComputeFare(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(j)
	}
}

// StartJourneyHandler moves a PURCHASED journey to IN_PROGRESS.
func StartJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.Start(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(j)
	}
}

// CompleteJourneyHandler ends the ride and recomputes the authoritative fare.
func CompleteJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.Complete(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(j)
	}
}

// CancelJourneyHandler aborts a journey from any pre-COMPLETED state.
func CancelJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.Cancel(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(j)
	}
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// PayForJourneyHandler settles the journey's fare against the rider balance.
func PayForJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rider := riderID(c)
		if rider == "" {
			return errUnauthorized(c, "X-Rider-ID header is required")
		}

		p, err := deps.Payments.PayForJourney(c.UserContext(), c.Params("id"), rider)
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(201).JSON(p)
	}
}

type topUpRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// TopUpHandler credits the rider's balance.
func TopUpHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rider := riderID(c)
		if rider == "" {
			return errUnauthorized(c, "X-Rider-ID header is required")
		}

		var req topUpRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Validate.Struct(req); err != nil {
			return errBadRequest(c, err.Error())
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return errBadRequest(c, "amount must be a decimal number")
		}

		p, err := deps.Payments.TopUp(c.UserContext(), rider, amount)
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(201).JSON(p)
	}
}

// RefundPaymentHandler reverses a completed fare payment.
func RefundPaymentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		refund, err := deps.Payments.RefundPayment(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(201).JSON(refund)
	}
}

// ListPaymentsHandler returns the rider's ledger, optionally filtered by
// status (?status=COMPLETED).
func ListPaymentsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rider := riderID(c)
		if rider == "" {
			return errUnauthorized(c, "X-Rider-ID header is required")
		}

		payments, err := deps.Payments.ListByRider(c.UserContext(), rider, domain.PaymentStatus(c.Query("status")))
		if err != nil {
			return errInternal(c, err.Error())
		}
		page, pg := paginate(c, payments)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetPaymentHandler returns one ledger entry.
func GetPaymentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Payments.GetPayment(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(p)
	}
}

// ---------------------------------------------------------------------------
// Fare configuration
// ---------------------------------------------------------------------------

// ActiveFareConfigHandler returns the configuration in force right now.
func ActiveFareConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg, err := deps.FareConfigs.Active(c.UserContext())
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(cfg)
	}
}

// ListFareConfigsHandler returns all pricing configurations.
func ListFareConfigsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		configs, err := deps.FareConfigs.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(configs)
	}
}

type createFareConfigRequest struct {
	BasePricePerKm        string `json:"base_price_per_km" validate:"required"`
	MinimumFare           string `json:"minimum_fare"`
	MaximumFare           string `json:"maximum_fare"`
	PeakHourMultiplier    string `json:"peak_hour_multiplier" validate:"required"`
	OffPeakHourMultiplier string `json:"off_peak_hour_multiplier" validate:"required"`
}

// CreateFareConfigHandler stores a new pricing configuration; it arrives
// SCHEDULED and goes live only through the activate endpoint.
func CreateFareConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createFareConfigRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Validate.Struct(req); err != nil {
			return errBadRequest(c, err.Error())
		}

		cfg := &domain.FareConfiguration{Status: domain.FareConfigScheduled}

		var err error
		if cfg.BasePricePerKm, err = decimal.NewFromString(req.BasePricePerKm); err != nil {
			return errBadRequest(c, "base_price_per_km must be a decimal number")
		}
		if cfg.PeakHourMultiplier, err = decimal.NewFromString(req.PeakHourMultiplier); err != nil {
			return errBadRequest(c, "peak_hour_multiplier must be a decimal number")
		}
		if cfg.OffPeakHourMultiplier, err = decimal.NewFromString(req.OffPeakHourMultiplier); err != nil {
			return errBadRequest(c, "off_peak_hour_multiplier must be a decimal number")
		}
		if req.MinimumFare != "" {
			min, err := decimal.NewFromString(req.MinimumFare)
			if err != nil {
				return errBadRequest(c, "minimum_fare must be a decimal number")
			}
			cfg.MinimumFare = &min
		}
		if req.MaximumFare != "" {
			max, err := decimal.NewFromString(req.MaximumFare)
			if err != nil {
				return errBadRequest(c, "maximum_fare must be a decimal number")
			}
			cfg.MaximumFare = &max
		}

		if err := deps.FareConfigs.Create(c.UserContext(), cfg); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(cfg)
	}
}

// ActivateFareConfigHandler makes the given configuration the single active
// one.
func ActivateFareConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg, err := deps.FareConfigs.Activate(c.UserContext(), c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(cfg)
	}
}

// ---------------------------------------------------------------------------
// Operator surface
// ---------------------------------------------------------------------------

// RebuildNetworkHandler reloads all lines and swaps in a fresh graph
// snapshot.
func RebuildNetworkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Routing.Rebuild(c.UserContext()); err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "rebuilt"})
	}
}

// ClearDistanceCacheHandler drops memoized distances after coordinate
// changes.
func ClearDistanceCacheHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Distances.ClearCache(c.UserContext())
		return c.JSON(fiber.Map{"status": "cleared"})
	}
}
