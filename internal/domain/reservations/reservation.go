package reservations

import (
	"context"
	"errors"
	"strings"
	"time"

	"rateplans/internal/domain/properties"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

var (
	ErrReservationNotFound = errors.New("reservations: not found")
	ErrInvalidGuests       = errors.New("reservations: guests count must be positive")
	ErrRatePlanRequired    = errors.New("reservations: rate plan is required")
	ErrNegativeTotal       = errors.New("reservations: total price must be non-negative")
)

type ReservationID string

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCancelled  Status = "CANCELLED"
	StatusCheckedOut Status = "CHECKED_OUT"
)

// Reservation is the booking record the refund calculator and the smart deletion
// decision read. Every status counts as history for deletion purposes.
type Reservation struct {
	ID         ReservationID
	PropertyID properties.PropertyID
	RatePlanID string
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	TotalPrice money.Money
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	Save(ctx context.Context, reservation *Reservation) error
	CountByRatePlan(ctx context.Context, ratePlanID string) (int, error)
}

type CreateParams struct {
	ID         ReservationID
	PropertyID properties.PropertyID
	RatePlanID string
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	TotalPrice money.Money
	Status     Status
	CreatedAt  time.Time
}

func NewReservation(params CreateParams) (*Reservation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("reservations: id is required")
	}
	if strings.TrimSpace(params.RatePlanID) == "" {
		return nil, ErrRatePlanRequired
	}
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.TotalPrice.Amount.IsNegative() {
		return nil, ErrNegativeTotal
	}
	status := params.Status
	if status == "" {
		status = StatusPending
	}
	now := params.CreatedAt.UTC()
	return &Reservation{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		RatePlanID: params.RatePlanID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     params.Guests,
		TotalPrice: params.TotalPrice,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
