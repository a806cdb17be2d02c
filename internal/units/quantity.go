// 文件路径: internal/units/quantity.go
// 模块说明: Quantity 表示带名称、符号与基础单位数量的不可变值。
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind distinguishes byte quantities from second quantities.
type Kind int

const (
	KindSize Kind = iota + 1
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindSize:
		return "size"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Quantity is a named amount in the base unit of its kind (bytes or seconds).
// Equality and ordering only look at the magnitude.
type Quantity struct {
	kind      Kind
	name      string
	symbol    string
	magnitude int64
}

// NewQuantity 构造一个数量，名称与符号统一转为大写。
func NewQuantity(kind Kind, name, symbol string, magnitude int64) (Quantity, error) {
	if magnitude < 0 {
		return Quantity{}, fmt.Errorf("%w: %d", ErrNegativeMagnitude, magnitude)
	}
	return Quantity{
		kind:      kind,
		name:      strings.ToUpper(strings.TrimSpace(name)),
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		magnitude: magnitude,
	}, nil
}

func mustQuantity(kind Kind, name, symbol string, magnitude int64) Quantity {
	q, err := NewQuantity(kind, name, symbol, magnitude)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Kind() Kind       { return q.kind }
func (q Quantity) Name() string     { return q.name }
func (q Quantity) Symbol() string   { return q.symbol }
func (q Quantity) Magnitude() int64 { return q.magnitude }

// String renders the canonical form, e.g. "100GB". Magnitudes that are not a
// whole multiple of the named unit fall back to the base unit.
func (q Quantity) String() string {
	reg := registryFor(q.kind)
	if reg == nil {
		return strconv.FormatInt(q.magnitude, 10)
	}
	if unit, err := reg.LookupBySymbol(q.symbol); err == nil && unit.magnitude > 0 && q.magnitude%unit.magnitude == 0 {
		return strconv.FormatInt(q.magnitude/unit.magnitude, 10) + unit.symbol
	}
	return strconv.FormatInt(q.magnitude, 10) + reg.Base().symbol
}

// Human returns a display form: IEC sizes for bytes, the largest fitting unit for time.
func (q Quantity) Human() string {
	switch q.kind {
	case KindSize:
		return humanize.IBytes(uint64(q.magnitude))
	case KindTime:
		units := Times.Units()
		for i := len(units) - 1; i >= 0; i-- {
			unit := units[i]
			if q.magnitude < unit.magnitude {
				continue
			}
			value := float64(q.magnitude) / float64(unit.magnitude)
			label := strings.ToLower(unit.name)
			if value != 1 {
				label += "s"
			}
			return humanize.FtoaWithDigits(value, 2) + " " + label
		}
		return "0 seconds"
	default:
		return q.String()
	}
}

// CompareTo returns -1, 0 or 1. The operand may be a Quantity of the same kind
// or any integer value; everything else fails with ErrIncompatibleQuantity.
func (q Quantity) CompareTo(other any) (int, error) {
	rhs, err := q.operand(other)
	if err != nil {
		return 0, err
	}
	switch {
	case q.magnitude < rhs:
		return -1, nil
	case q.magnitude > rhs:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports whether other has the same magnitude.
func (q Quantity) Equal(other any) bool {
	cmp, err := q.CompareTo(other)
	return err == nil && cmp == 0
}

// Plus adds other to q, keeping q's name and symbol.
func (q Quantity) Plus(other any) (Quantity, error) {
	rhs, err := q.operand(other)
	if err != nil {
		return Quantity{}, err
	}
	if rhs < 0 {
		return q.Minus(-rhs)
	}
	if q.magnitude > math.MaxInt64-rhs {
		return Quantity{}, ErrOverflow
	}
	q.magnitude += rhs
	return q, nil
}

// Minus subtracts other from q; results below zero are rejected.
func (q Quantity) Minus(other any) (Quantity, error) {
	rhs, err := q.operand(other)
	if err != nil {
		return Quantity{}, err
	}
	if rhs < 0 {
		return q.Plus(-rhs)
	}
	if rhs > q.magnitude {
		return Quantity{}, fmt.Errorf("%w: %d - %d", ErrNegativeMagnitude, q.magnitude, rhs)
	}
	q.magnitude -= rhs
	return q, nil
}

// Times scales q by a non-negative factor.
func (q Quantity) Times(factor int64) (Quantity, error) {
	if factor < 0 {
		return Quantity{}, fmt.Errorf("%w: factor %d", ErrNegativeMagnitude, factor)
	}
	scaled, err := mulInt64(q.magnitude, factor)
	if err != nil {
		return Quantity{}, err
	}
	q.magnitude = scaled
	return q, nil
}

func (q Quantity) operand(other any) (int64, error) {
	if o, ok := other.(Quantity); ok {
		if o.kind != q.kind {
			return 0, fmt.Errorf("%w: %s vs %s", ErrIncompatibleQuantity, q.kind, o.kind)
		}
		return o.magnitude, nil
	}
	n, ok, err := integerValue(other)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrIncompatibleQuantity, other)
	}
	return n, nil
}

func mulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// integerValue unpacks any Go integer kind; ok is false for non-integers.
func integerValue(v any) (int64, bool, error) {
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int8:
		return int64(n), true, nil
	case int16:
		return int64(n), true, nil
	case int32:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case uint:
		return unsignedValue(uint64(n))
	case uint8:
		return int64(n), true, nil
	case uint16:
		return int64(n), true, nil
	case uint32:
		return int64(n), true, nil
	case uint64:
		return unsignedValue(n)
	default:
		return 0, false, nil
	}
}

func unsignedValue(n uint64) (int64, bool, error) {
	if n > math.MaxInt64 {
		return 0, true, ErrOverflow
	}
	return int64(n), true, nil
}
