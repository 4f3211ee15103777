package servicemodel

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// EpochTime is a timestamp carried on the wire as seconds since the Unix
// epoch. Fractional seconds are accepted on decode.
type EpochTime struct {
	time.Time
}

// NewEpochTime wraps t, truncated to whole seconds.
func NewEpochTime(t time.Time) EpochTime {
	return EpochTime{Time: t.Truncate(time.Second).UTC()}
}

func (t EpochTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, t.Unix(), 10), nil
}

func (t *EpochTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	seconds, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("epoch time %s: %w", data, err)
	}
	whole, frac := math.Modf(seconds)
	t.Time = time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
	return nil
}
