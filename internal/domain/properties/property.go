package properties

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrPropertyNotFound = errors.New("properties: not found")
	ErrNameRequired     = errors.New("properties: name is required")
	ErrHostRequired     = errors.New("properties: host is required")
	ErrInvalidCurrency  = errors.New("properties: currency must be a 3-letter code")
)

type PropertyID string
type HostID string

// Property is the slice of the property record the pricing engine needs:
// who owns it and which currency its rate plans are quoted in.
type Property struct {
	ID        PropertyID
	Host      HostID
	Name      string
	Currency  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, property *Property) error
}

type CreateParams struct {
	ID       PropertyID
	Host     HostID
	Name     string
	Currency string
	Active   bool
	Now      time.Time
}

func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("properties: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}
	now := params.Now.UTC()
	return &Property{
		ID:        params.ID,
		Host:      params.Host,
		Name:      strings.TrimSpace(params.Name),
		Currency:  currency,
		Active:    params.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OwnedBy reports whether host owns the property.
func (p *Property) OwnedBy(host HostID) bool {
	return p != nil && host != "" && p.Host == host
}
