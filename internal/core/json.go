package core

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// MarshalJSON renders Money as a quoted decimal string ("12.30").
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number, in
// currency units. Negative values are accepted; callers validate.
func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// MarshalJSON renders a Date as "YYYY-MM-DD", or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %s: %w", b, err)
	}
	*d = parsed
	return nil
}
