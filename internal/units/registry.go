package units

import (
	"fmt"
	"strings"
)

// Registry is a fixed, ordered unit table indexed by name and by symbol.
type Registry struct {
	kind     Kind
	units    []Quantity
	byName   map[string]Quantity
	bySymbol map[string]Quantity
}

var (
	// Sizes lists byte units, each 1024 times the previous one.
	Sizes = newRegistry(KindSize,
		mustQuantity(KindSize, "BYTE", "B", 1),
		mustQuantity(KindSize, "KILOBYTE", "KB", 1<<10),
		mustQuantity(KindSize, "MEGABYTE", "MB", 1<<20),
		mustQuantity(KindSize, "GIGABYTE", "GB", 1<<30),
		mustQuantity(KindSize, "TERABYTE", "TB", 1<<40),
		mustQuantity(KindSize, "PETABYTE", "PB", 1<<50),
		mustQuantity(KindSize, "EXABYTE", "EB", 1<<60),
	)

	// Times lists second units. MONTH and YEAR use the mean Gregorian length.
	Times = newRegistry(KindTime,
		mustQuantity(KindTime, "SECOND", "S", 1),
		mustQuantity(KindTime, "MINUTE", "M", 60),
		mustQuantity(KindTime, "HOUR", "H", 3600),
		mustQuantity(KindTime, "DAY", "D", 86400),
		mustQuantity(KindTime, "WEEK", "W", 604800),
		mustQuantity(KindTime, "MONTH", "MO", 2629746),
		mustQuantity(KindTime, "YEAR", "Y", 31556952),
	)
)

func newRegistry(kind Kind, units ...Quantity) *Registry {
	r := &Registry{
		kind:     kind,
		units:    units,
		byName:   make(map[string]Quantity, len(units)),
		bySymbol: make(map[string]Quantity, len(units)),
	}
	for _, unit := range units {
		r.byName[unit.name] = unit
		r.bySymbol[unit.symbol] = unit
	}
	return r
}

func registryFor(kind Kind) *Registry {
	switch kind {
	case KindSize:
		return Sizes
	case KindTime:
		return Times
	default:
		return nil
	}
}

// Kind returns the quantity kind this registry holds.
func (r *Registry) Kind() Kind { return r.kind }

// Base returns the unit with magnitude one.
func (r *Registry) Base() Quantity { return r.units[0] }

// Units returns the table in ascending order.
func (r *Registry) Units() []Quantity {
	out := make([]Quantity, len(r.units))
	copy(out, r.units)
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.units))
	for _, unit := range r.units {
		out = append(out, unit.name)
	}
	return out
}

func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.units))
	for _, unit := range r.units {
		out = append(out, unit.symbol)
	}
	return out
}

// LookupByName finds a unit by its canonical name, ignoring case.
func (r *Registry) LookupByName(name string) (Quantity, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if unit, ok := r.byName[key]; ok {
		return unit, nil
	}
	return Quantity{}, fmt.Errorf("%w: %s %q", ErrUnknownUnit, r.kind, key)
}

// LookupBySymbol finds a unit by its short code, ignoring case.
func (r *Registry) LookupBySymbol(symbol string) (Quantity, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if unit, ok := r.bySymbol[key]; ok {
		return unit, nil
	}
	return Quantity{}, fmt.Errorf("%w: %s %q", ErrUnknownUnit, r.kind, key)
}

// Lookup tries the name first, then the symbol.
func (r *Registry) Lookup(token string) (Quantity, error) {
	if unit, err := r.LookupByName(token); err == nil {
		return unit, nil
	}
	return r.LookupBySymbol(token)
}
