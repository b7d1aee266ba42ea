package shipping

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoZone is returned when no zone covers the destination country.
	ErrNoZone = errors.New("shipping: no zone covers destination")
	// ErrNoMethod is returned when the resolved zone has no usable method.
	ErrNoMethod = errors.New("shipping: no enabled method in zone")
	// ErrNegativeWeight is returned for a parcel weight below zero.
	ErrNegativeWeight = errors.New("shipping: negative weight")
)

// Wildcard matches any destination country in a zone's country list.
const Wildcard = "*"

// EstimatedDays is the delivery window advertised for a method.
type EstimatedDays struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Method is a priced delivery option within a zone. FreeAbove is carried in
// the data model but not consulted by rate calculation; the global
// free-shipping threshold owned by the pricing aggregator governs free
// shipping instead.
type Method struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	FreeAbove *decimal.Decimal `json:"freeAbove,omitempty"`
	Days      EstimatedDays    `json:"estimatedDays"`
	Enabled   bool             `json:"enabled"`
}

// Zone groups destination countries sharing a set of methods.
type Zone struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Countries []string `json:"countries"`
	Methods   []Method `json:"methods"`
}

// Covers reports whether the zone lists the country explicitly.
func (z Zone) Covers(country string) bool {
	for _, c := range z.Countries {
		if c != Wildcard && strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(country)) {
			return true
		}
	}
	return false
}

// IsWildcard reports whether the zone accepts any country.
func (z Zone) IsWildcard() bool {
	for _, c := range z.Countries {
		if c == Wildcard {
			return true
		}
	}
	return false
}

// DefaultMethod picks the cheapest enabled method, breaking price ties by
// method ID so selection never depends on registration order.
func (z Zone) DefaultMethod() (Method, bool) {
	var best Method
	found := false
	for _, m := range z.Methods {
		if !m.Enabled {
			continue
		}
		if !found || m.Price.LessThan(best.Price) || (m.Price.Equal(best.Price) && m.ID < best.ID) {
			best = m
			found = true
		}
	}
	return best, found
}

// MethodByID returns the method with the given ID regardless of position.
func (z Zone) MethodByID(id string) (Method, bool) {
	for _, m := range z.Methods {
		if strings.EqualFold(m.ID, strings.TrimSpace(id)) {
			return m, true
		}
	}
	return Method{}, false
}

// Resolver resolves shipping prices from a zone table.
type Resolver struct {
	Enabled bool   `json:"enabled"`
	Zones   []Zone `json:"zones"`
}

// ResolveZone finds the zone for a destination. Zones listing the country
// explicitly always beat wildcard zones, whatever the table order.
func (r Resolver) ResolveZone(country string) (Zone, bool) {
	for _, z := range r.Zones {
		if z.Covers(country) {
			return z, true
		}
	}
	for _, z := range r.Zones {
		if z.IsWildcard() {
			return z, true
		}
	}
	return Zone{}, false
}

// Calculate returns the flat price for shipping to country. Weight is
// accepted for interface parity with carriers that rate by mass; the zone
// table prices are flat per method. When methodID is empty the zone's
// deterministic default method is used.
func (r Resolver) Calculate(country string, weight decimal.Decimal, methodID string) (decimal.Decimal, error) {
	if !r.Enabled {
		return decimal.Zero, nil
	}
	if weight.IsNegative() {
		return decimal.Zero, ErrNegativeWeight
	}
	zone, ok := r.ResolveZone(country)
	if !ok {
		return decimal.Zero, ErrNoZone
	}
	if strings.TrimSpace(methodID) != "" {
		method, ok := zone.MethodByID(methodID)
		if !ok || !method.Enabled {
			return decimal.Zero, ErrNoMethod
		}
		return method.Price, nil
	}
	method, ok := zone.DefaultMethod()
	if !ok {
		return decimal.Zero, ErrNoMethod
	}
	return method.Price, nil
}
