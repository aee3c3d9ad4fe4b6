package rateplans

import (
	"errors"
	"strings"
)

var (
	ErrRatePlanNotFound = errors.New("rateplans: not found")
	ErrValidation       = errors.New("rateplans: validation failed")
	ErrConcurrentUpdate = errors.New("rateplans: concurrent update detected")

	ErrNameRequired           = errors.New("name is required")
	ErrNameTooLong            = errors.New("name must be at most 120 characters")
	ErrAdjustmentTypeInvalid  = errors.New("adjustment type must be FixedPrice, FixedDiscount or Percentage")
	ErrNegativeAdjustment     = errors.New("adjustment value must be >= 0 for FixedPrice and FixedDiscount")
	ErrPercentageRange        = errors.New("percentage must be between -100 and 100")
	ErrBaseRequired           = errors.New("FixedDiscount and Percentage rate plans require a base rate plan")
	ErrBaseNotAllowed         = errors.New("FixedPrice rate plans cannot reference a base rate plan")
	ErrPriorityRange          = errors.New("priority must be between 1 and 999")
	ErrActiveDayRange         = errors.New("active days must be weekday numbers 0-6")
	ErrRestrictionType        = errors.New("restriction type is not supported")
	ErrRestrictionValue       = errors.New("restriction value must be a non-negative integer")
	ErrRestrictionWindow      = errors.New("restriction start date must not be after end date")
	ErrTierDays               = errors.New("tier days before check-in must be >= 0")
	ErrTierPercentage         = errors.New("tier refund percentage must be between 0 and 100")
	ErrTierDuplicate          = errors.New("tiers must have distinct days before check-in")
	ErrOverrideAmount         = errors.New("price override amount must be >= 0")
	ErrOverrideDate           = errors.New("price override date is required")
	ErrBaseSelfReference      = errors.New("rate plan cannot be its own base")
	ErrBaseNotFound           = errors.New("base rate plan not found")
	ErrBaseOtherProperty      = errors.New("base rate plan belongs to another property")
	ErrPercentageBaseType     = errors.New("percentage rate plans must use a FixedPrice base rate plan")
	ErrBaseCycle              = errors.New("base rate plan chain contains a cycle")
	ErrBaseChainTooDeep       = errors.New("base rate plan chain is too deep")
	ErrBaseChainLeaf          = errors.New("base rate plan chain must end at a FixedPrice rate plan")
	ErrDependentsRequireFixed = errors.New("rate plan is the base of percentage rate plans and must stay FixedPrice")
)

// FieldError ties a validation problem to the input field it came from.
type FieldError struct {
	Field string
	Err   error
}

// ValidationError aggregates every field problem found in one pass.
// errors.Is matches ErrValidation and each individual field error.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Err.Error())
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	out := make([]error, 0, len(e.Problems)+1)
	out = append(out, ErrValidation)
	for _, p := range e.Problems {
		out = append(out, p.Err)
	}
	return out
}

// Fields renders problems as field -> message, suitable for API details.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		if _, exists := out[p.Field]; exists {
			continue
		}
		out[p.Field] = p.Err.Error()
	}
	return out
}

type problems []FieldError

func (p *problems) add(field string, err error) {
	if err != nil {
		*p = append(*p, FieldError{Field: field, Err: err})
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func invalid(field string, err error) error {
	return &ValidationError{Problems: []FieldError{{Field: field, Err: err}}}
}
