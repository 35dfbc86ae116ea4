// Package validation collects field violations of request payloads.
package validation

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to a violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators. Each records at most one code per field, keeping the first.

func (v Violations) add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "required")
	}
}

// RequiredID rejects a missing (zero) identifier.
func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.add(field, "required")
	}
}

// RequiredDecimal rejects an absent amount.
func RequiredDecimal(field string, val *decimal.Decimal, v Violations) {
	if val == nil {
		v.add(field, "required")
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.add(field, "must_not_be_negative")
	}
}

func PositiveDecimal(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.add(field, "must_be_positive")
	}
}

// MaxMoney bounds amounts stored as numeric(12,2).
var MaxMoney = decimal.New(1, 10)

// Money rejects amounts whose value rounded to cents does not fit MaxMoney.
func Money(field string, val decimal.Decimal, v Violations) {
	if val.Round(2).Abs().GreaterThanOrEqual(MaxMoney) {
		v.add(field, "out_of_range")
	}
}

func NonNegativeInt(field string, val int, v Violations) {
	if val < 0 {
		v.add(field, "must_not_be_negative")
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v.add(field, "out_of_range")
	}
}

// MaxLen rejects values longer than n bytes.
func MaxLen(field, value string, n int, v Violations) {
	if len(value) > n {
		v.add(field, "out_of_range")
	}
}

// Email accepts an empty value; callers combine it with Required when needed.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.add(field, "invalid")
	}
}

// OneOf rejects values outside allowed.
func OneOf(field, value string, v Violations, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.add(field, "invalid")
}
