package importing

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidNumber = errors.New("invalid number")
	ErrInvalidDate   = errors.New("invalid date")
	ErrNotWhole      = errors.New("not a whole number in range")
)

var (
	maxWhole = decimal.NewFromInt(math.MaxInt64)
	minWhole = decimal.NewFromInt(math.MinInt64)
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseNumber accepts plain decimals as well as values with currency symbols
// and thousands separators ("$1,250.00").
func ParseNumber(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimPrefix(cleaned, "€")
	cleaned = strings.TrimPrefix(cleaned, "£")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, ErrInvalidNumber
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// WholeNumber converts d to int64, rejecting fractions and values outside the
// int64 range instead of truncating them.
func WholeNumber(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() || d.GreaterThan(maxWhole) || d.LessThan(minWhole) {
		return 0, ErrNotWhole
	}
	return d.IntPart(), nil
}

func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// SplitFullName splits "Jane Q Smith" into "Jane" and "Q Smith".
func SplitFullName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
