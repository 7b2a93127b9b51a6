package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var null = []byte("null")

// ID is a backend identifier. The backend emits ids as JSON numbers or strings.
type ID string

func (id ID) String() string { return string(id) }
func (id ID) IsZero() bool   { return id == "" }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, null) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integers as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if isCanonicalInt(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func isCanonicalInt(s string) bool {
	if s == "" || len(s) > 18 {
		return false
	}
	if s == "0" {
		return true
	}
	if s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Coins is an integral coin amount; accepts numbers, numeric strings and null.
type Coins int

func (c *Coins) UnmarshalJSON(b []byte) error {
	f, ok, err := parseNumber(b)
	if err != nil {
		return fmt.Errorf("coins: %w", err)
	}
	if !ok {
		*c = 0
		return nil
	}
	*c = Coins(math.Round(f))
	return nil
}

// Rating is an average star rating; accepts numbers, numeric strings and null.
type Rating float64

func (r *Rating) UnmarshalJSON(b []byte) error {
	f, ok, err := parseNumber(b)
	if err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	if !ok {
		*r = 0
		return nil
	}
	*r = Rating(f)
	return nil
}

func (r Rating) String() string { return strconv.FormatFloat(float64(r), 'f', 1, 64) }

func parseNumber(b []byte) (float64, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return 0, false, nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}

// Flag is a boolean that also accepts 0/1 and "true"/"false" strings.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch strings.Trim(strings.ToLower(string(b)), `"`) {
	case "true", "1", "yes":
		*f = true
	case "false", "0", "no", "", "null":
		*f = false
	default:
		return fmt.Errorf("flag: unexpected value %s", b)
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp parses the several date layouts the backend emits. The zero value means absent.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, null) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized layout %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return null, nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
