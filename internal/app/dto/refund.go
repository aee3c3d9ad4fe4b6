package dto

import (
	domainpricing "rateplans/internal/domain/pricing"
	"rateplans/internal/domain/shared/money"
)

type Refund struct {
	ReservationID         string `json:"reservation_id"`
	RefundAmount          string `json:"refundAmount"`
	RefundPercentage      string `json:"refundPercentage"`
	Currency              string `json:"currency"`
	Description           string `json:"description"`
	DaysUntilCheckIn      int    `json:"days_until_check_in"`
	TierDaysBeforeCheckIn *int   `json:"tier_days_before_check_in,omitempty"`
}

func MapRefund(reservationID string, r domainpricing.RefundResult) Refund {
	out := Refund{
		ReservationID:    reservationID,
		RefundAmount:     r.Amount.Display(),
		RefundPercentage: r.Percentage.StringFixed(money.DisplayPlaces),
		Currency:         r.Amount.Currency,
		Description:      r.Description,
		DaysUntilCheckIn: r.DaysUntilCheckIn,
	}
	if r.Tier != nil {
		days := r.Tier.DaysBeforeCheckIn
		out.TierDaysBeforeCheckIn = &days
	}
	return out
}
