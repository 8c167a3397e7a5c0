package transformer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultTimestampFormat is the strftime format of the order timestamps.
const DefaultTimestampFormat = "%Y-%m-%d %H:%M:%S"

const secondsPerDay = 24 * 60 * 60

// ResolveLayout turns a configured timestamp format into a Go time layout.
// Formats containing '%' are read as strftime directives; anything else is
// taken to already be a Go reference layout.
func ResolveLayout(format string) (string, error) {
	if strings.TrimSpace(format) == "" {
		format = DefaultTimestampFormat
	}
	if !strings.Contains(format, "%") {
		return format, nil
	}
	layout, err := strftime.Layout(format)
	if err != nil {
		return "", fmt.Errorf("timestamp format %q: %w", format, err)
	}
	return layout, nil
}

// ParseTimestamp parses s with the strftime format, or with layout when
// format is empty. Numeric fields may omit zero padding ("2023-1-1"), but
// the whole value must be accounted for: a fractional-second tail or other
// text the layout does not produce is an error, even though time.Parse
// tolerates a fraction after the seconds field.
func ParseTimestamp(format, layout, s string) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	if format != "" {
		t, err = strftime.Parse(format, s)
	} else {
		t, err = time.Parse(layout, s)
	}
	if err != nil {
		return time.Time{}, err
	}
	if !strings.EqualFold(unpadDigits(t.Format(layout)), unpadDigits(s)) {
		return time.Time{}, fmt.Errorf("parsing time %q: unconverted data does not match layout %q", s, layout)
	}
	return t, nil
}

// unpadDigits drops leading zeros from every run of digits.
func unpadDigits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] < '0' || s[i] > '9' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		run := strings.TrimLeft(s[i:j], "0")
		if run == "" {
			run = "0"
		}
		sb.WriteString(run)
		i = j
	}
	return sb.String()
}

// DaysBetween returns the whole days from start to end, rounded toward
// negative infinity: 23h59m is 0 days, -1s is -1 day.
func DaysBetween(start, end time.Time) int64 {
	secs := end.Unix() - start.Unix()
	if end.Nanosecond() < start.Nanosecond() {
		secs--
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		days--
	}
	return days
}
