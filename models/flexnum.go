package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// The upstream media backend mixes plain numbers and string-encoded numbers in
// its JSON responses. These types form the single normalization boundary:
// anything decoded through them is already a strongly-typed value, with a
// parse failure falling back to zero rather than failing the pipeline.

// FlexInt decodes a JSON number or numeric string into an int.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := flexToken(b)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Some providers send integers as "3.0".
		if v, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			*f = FlexInt(int(v))
			return nil
		}
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// FlexFloat decodes a JSON number or numeric string into a float64.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := flexToken(b)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// FlexString decodes a JSON string or scalar into its literal string form.
// Numbers keep their original decimal representation ("12.5" stays "12.5").
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

// Float parses the string form as a float64, falling back to zero.
func (f FlexString) Float() float64 {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0
	}
	return v
}

func flexToken(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return s
	}
	return string(b)
}
