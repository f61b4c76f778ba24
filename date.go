package fxlots

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the text form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date with day granularity. The zero value means "no date".
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date, so NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{y, m, d}
}

// Today returns the local calendar date.
func Today() Date {
	y, m, d := time.Now().Date()
	return Date{y, m, d}
}

// ParseDate reads "2006-01-02". A full RFC3339 timestamp is accepted too and
// reduced to its date part, since older exports stored ISO strings.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t.Date()), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewDate(t.Date()), nil
	}
	return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) IsZero() bool           { return d == Date{} }
func (d Date) Before(o Date) bool     { return d.time().Before(o.time()) }
func (d Date) After(o Date) bool      { return d.time().After(o.time()) }
func (d Date) Year() int              { return d.y }
func (d Date) Month() time.Month      { return d.m }
func (d Date) Day() int               { return d.d }
func (d Date) AddDays(n int) Date     { return NewDate(d.y, d.m, d.d+n) }
func (d Date) Compare(o Date) int     { return d.time().Compare(o.time()) }
func (d Date) Time() time.Time        { return d.time() }
func (d Date) Between(a, b Date) bool { return !d.Before(a) && !d.After(b) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
