package grid

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
)

// ErrMalformedDate reports an observation that could not be parsed.
var ErrMalformedDate = apperrors.New(apperrors.CodeMalformedDate, "observation date is malformed")

const compactDateLayout = "20060102"

var observationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseObservation reads one raw observation. Accepted forms are RFC 3339
// timestamps (with or without a zone), plain dates, compact YYYYMMDD dates
// and Unix seconds. Eight digits always read as a compact date.
// The result is normalized to midnight UTC.
func ParseObservation(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, malformed(raw, "blank")
	}
	for _, layout := range observationLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Midnight(t), nil
		}
	}
	if len(value) == len(compactDateLayout) && allDigits(value) {
		t, err := time.Parse(compactDateLayout, value)
		if err != nil {
			return time.Time{}, malformed(raw, "invalid compact date")
		}
		return Midnight(t), nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return Midnight(time.Unix(secs, 0)), nil
	}
	return time.Time{}, malformed(raw, "unrecognized layout")
}

// ParseObservations parses a batch of raw observations. Malformed entries are
// skipped and reported in the second result without failing the batch; blank
// entries are skipped silently.
func ParseObservations(raw []string) ([]time.Time, []error) {
	dates := make([]time.Time, 0, len(raw))
	var errs []error
	for _, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		date, err := ParseObservation(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dates = append(dates, date)
	}
	return dates, errs
}

func allDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func malformed(raw, reason string) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeMalformedDate,
		"parse observation "+strconv.Quote(raw),
		map[string]string{"raw": raw, "reason": reason},
		ErrMalformedDate,
	)
}
