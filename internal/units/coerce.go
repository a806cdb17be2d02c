package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SecondsThreshold separates Unix-second timestamps from millisecond ones.
const SecondsThreshold int64 = 10_000_000_000

// CoerceSize normalizes a size given as an integer, a numeric string, a unit
// string ("100GB", "gigabyte") or a size Quantity into a byte count.
func CoerceSize(value any) (int64, error) {
	switch v := value.(type) {
	case Quantity:
		if v.kind != KindSize {
			return 0, fmt.Errorf("%w: %s quantity", ErrUnsupportedSizeType, v.kind)
		}
		return v.magnitude, nil
	case string:
		return coerceSizeString(v)
	case json.Number:
		return coerceSizeString(v.String())
	}
	n, ok, err := integerValue(value)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedSizeType, value)
	}
	return n, nil
}

func coerceSizeString(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if isDecimal(trimmed) {
		return parseDecimal(trimmed)
	}
	// A bare unit name counts as one of that unit.
	if unit, err := Sizes.Lookup(trimmed); err == nil {
		return unit.magnitude, nil
	}
	q, err := ParseSize(raw)
	if err != nil {
		return 0, err
	}
	return q.magnitude, nil
}

// CoerceExpiry turns an expiry value into epoch milliseconds.
//
// Integers and numeric strings are absolute timestamps (seconds or
// milliseconds, see SecondsThreshold). time.Time is absolute. Durations, time
// quantities and unit strings such as "1MO" are offsets from now.
func CoerceExpiry(value any, now time.Time) (int64, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UnixMilli(), nil
	case *time.Time:
		if v == nil {
			return 0, fmt.Errorf("%w: nil time", ErrUnsupportedDurationType)
		}
		return v.UnixMilli(), nil
	case time.Duration:
		return relativeExpiry(now, int64(v/time.Second))
	case Quantity:
		if v.kind != KindTime {
			return 0, fmt.Errorf("%w: %s quantity", ErrUnsupportedDurationType, v.kind)
		}
		return relativeExpiry(now, v.magnitude)
	case string:
		return coerceExpiryString(v, now)
	case json.Number:
		return coerceExpiryString(v.String(), now)
	}
	n, ok, err := integerValue(value)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedDurationType, value)
	}
	return NormalizeEpoch(n)
}

func coerceExpiryString(raw string, now time.Time) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if isDecimal(trimmed) {
		n, err := parseDecimal(trimmed)
		if err != nil {
			return 0, err
		}
		return NormalizeEpoch(n)
	}
	if unit, err := Times.Lookup(trimmed); err == nil {
		return relativeExpiry(now, unit.magnitude)
	}
	q, err := ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return relativeExpiry(now, q.magnitude)
}

func relativeExpiry(now time.Time, seconds int64) (int64, error) {
	base := now.Unix()
	if seconds > 0 && base > math.MaxInt64-seconds {
		return 0, ErrOverflow
	}
	return NormalizeEpoch(base + seconds)
}

// NormalizeEpoch scales second timestamps to milliseconds and leaves
// millisecond timestamps untouched.
func NormalizeEpoch(value int64) (int64, error) {
	if value < SecondsThreshold {
		if value < math.MinInt64/1000 {
			return 0, ErrOverflow
		}
		return value * 1000, nil
	}
	return value, nil
}

func parseDecimal(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", ErrOverflow, s)
		}
		return 0, err
	}
	return n, nil
}
