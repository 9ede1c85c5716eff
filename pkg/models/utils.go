package models

import (
	"math"
	"strconv"
	"strings"
)

// Float decodes JSON numbers and numeric strings alike. Anything else decodes
// to zero; upstream payloads are not validated.
type Float float64

// UnmarshalJSON implements json.Unmarshaler
func (f *Float) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = Float(v)
	return nil
}

// Float64 returns the value as float64
func (f Float) Float64() float64 {
	return float64(f)
}
