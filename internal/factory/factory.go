// Package factory builds candidate entities from raw spreadsheet rows.
// Every builder exposes one setter per column; a setter that cannot
// produce a valid value records a finding and leaves the field unset
// instead of failing the row, so a single pass reports every problem a
// row has. Store and decider failures are the only errors returned;
// those abort the batch, bad data never does.
package factory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/pkg/config"
	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
)

// Config carries the per-batch context every builder needs.
type Config struct {
	Farm         string
	DateFormats  []string
	DefaultBreed string
	Policy       config.PolicyConfig
}

var defaultDateFormats = []string{"2006-01-02", "2006/1/2", "20060102"}

// contractErr marks a builder that produced an invalid entity from a
// finding-free row. That is a caller defect, not bad data, and aborts
// the batch.
func contractErr(entity string, err error) error {
	return apperrors.Wrap(err, apperrors.ErrContract.Code, fmt.Sprintf("%s builder produced invalid entity", entity))
}

// ParseDate tries the configured layouts in order.
func (c Config) ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	formats := c.DateFormats
	if len(formats) == 0 {
		formats = defaultDateFormats
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseDateTime combines a date column with an optional clock column.
func (c Config) ParseDateTime(rawDate, rawClock string) (time.Time, error) {
	date, err := c.ParseDate(rawDate)
	if err != nil {
		return time.Time{}, err
	}
	clock := strings.TrimSpace(rawClock)
	if clock == "" {
		return date, nil
	}
	for _, layout := range []string{"15:04:05", "15:04", "1504"} {
		if t, err := time.Parse(layout, clock); err != nil {
			continue
		} else {
			return time.Date(date.Year(), date.Month(), date.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", clock)
}

// truthy interprets the check-mark columns farms use for test flags.
func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "n", "no", "-", "x":
		return false
	default:
		return true
	}
}

// numericField validates one raw count column against [0, ceiling].
// Negative values are usually transcription sign errors; the decider is
// asked whether flipping the sign is acceptable before the value is
// rejected. Returns the value and whether it was set.
func numericField(ctx context.Context, raw, field string, ceiling int, allowEmpty bool,
	decider resolver.Decider, findings *report.Findings) (int, bool, error) {

	s := strings.TrimSpace(raw)
	if s == "" {
		if !allowEmpty {
			findings.Add(field, report.KindEmpty, "must not be empty")
		}
		return 0, false, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		findings.Addf(field, report.KindFormat, "invalid format %q", s)
		return 0, false, nil
	}

	if v < 0 {
		flipped := -v
		if flipped <= ceiling {
			ok, err := decider.Confirm(ctx, fmt.Sprintf("flip sign of %s: %d -> %d", field, v, flipped))
			if err != nil {
				return 0, false, fmt.Errorf("confirm repair of %s: %w", field, err)
			}
			if ok {
				return flipped, true, nil
			}
		}
		findings.Addf(field, report.KindRange, "value %d out of [0, %d]", v, ceiling)
		return 0, false, nil
	}

	if v > ceiling {
		findings.Addf(field, report.KindRange, "value %d out of [0, %d]", v, ceiling)
		return 0, false, nil
	}

	return v, true, nil
}

// floatField validates one raw decimal column, rejecting negatives.
func floatField(raw, field string, allowEmpty bool, findings *report.Findings) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		if !allowEmpty {
			findings.Add(field, report.KindEmpty, "must not be empty")
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		findings.Addf(field, report.KindFormat, "invalid format %q", s)
		return 0, false
	}
	if v < 0 {
		findings.Addf(field, report.KindRange, "value %g must not be negative", v)
		return 0, false
	}
	return v, true
}
