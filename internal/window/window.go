// Package window computes the temporal window of a synthesis from the
// acquisition dates of its input products.
package window

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/monitoring"
	"github.com/banshee-data/wasp/internal/platform"
)

const day = 24 * time.Hour

// ErrNoValidDates is returned when no product with a usable acquisition
// date remains.
var ErrNoValidDates = fmt.Errorf("no valid acquisition dates: %w", faults.ErrInput)

// TemporalWindow holds the bounds of a synthesis window.
// MinDate <= MidDate <= MaxDate and MidDate = MinDate + (MaxDate-MinDate)/2.
type TemporalWindow struct {
	MinDate time.Time
	MidDate time.Time
	MaxDate time.Time
}

// HalfSpans returns (mid-min, max-mid) in fractional days.
func (w TemporalWindow) HalfSpans() (float64, float64) {
	return days(w.MidDate.Sub(w.MinDate)), days(w.MaxDate.Sub(w.MidDate))
}

// Options controls date filtering and the spacing advisory.
type Options struct {
	// Target, when set together with a positive ToleranceDays, keeps only
	// products acquired within ToleranceDays of Target (inclusive).
	Target        *time.Time
	ToleranceDays int
	Spacing       platform.SpacingBounds
}

// Result is the outcome of Compute.
type Result struct {
	Window TemporalWindow
	// MeanHalfSpanDays is the mean of the two half-spans.
	MeanHalfSpanDays float64
	// Dates are the kept acquisition dates, ascending.
	Dates []time.Time
	// Products are the kept products in the same order as Dates.
	Products []metadata.Product
	// Dropped lists the paths whose acquisition date could not be parsed.
	Dropped []string
	// Advisories are non-fatal warnings about the window spacing.
	Advisories []string
}

// Compute parses the acquisition dates of headers, filters them around the
// optional target date, sorts them and derives the window.
func Compute(headers []metadata.Header, opts Options) (Result, error) {
	var res Result

	products := make([]metadata.Product, 0, len(headers))
	for _, h := range headers {
		ts, err := metadata.ParseTimestamp(h.AcquisitionDate)
		if err != nil {
			monitoring.Warnf("cannot read acquisition date of %s: %v", h.Path, err)
			res.Dropped = append(res.Dropped, h.Path)
			continue
		}
		products = append(products, metadata.Product{
			Path:            h.Path,
			Platform:        h.Platform,
			Tile:            h.Tile,
			AcquisitionDate: ts,
		})
	}
	if len(products) == 0 {
		return Result{}, ErrNoValidDates
	}

	if opts.Target != nil && opts.ToleranceDays > 0 {
		tolerance := time.Duration(opts.ToleranceDays) * day
		monitoring.Opsf("filtering dates outside of target date %s +/- %d days",
			metadata.FormatShort(*opts.Target), opts.ToleranceDays)
		kept := products[:0]
		for _, p := range products {
			if absDuration(p.AcquisitionDate.Sub(*opts.Target)) <= tolerance {
				kept = append(kept, p)
			}
		}
		products = kept
		monitoring.Opsf("%d dates kept for synthesis", len(products))
		if len(products) == 0 {
			return Result{}, fmt.Errorf("no product within %d days of %s: %w",
				opts.ToleranceDays, metadata.FormatShort(*opts.Target), ErrNoValidDates)
		}
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].AcquisitionDate.Before(products[j].AcquisitionDate)
	})

	minDate := products[0].AcquisitionDate
	maxDate := products[len(products)-1].AcquisitionDate
	res.Window = TemporalWindow{
		MinDate: minDate,
		MidDate: minDate.Add(maxDate.Sub(minDate) / 2),
		MaxDate: maxDate,
	}

	lo, hi := res.Window.HalfSpans()
	res.MeanHalfSpanDays = stat.Mean([]float64{lo, hi}, nil)
	res.Advisories = SpacingAdvisories(lo, hi, opts.Spacing)
	for _, a := range res.Advisories {
		monitoring.Warnf("%s", a)
	}

	res.Products = products
	res.Dates = make([]time.Time, len(products))
	for i, p := range products {
		res.Dates[i] = p.AcquisitionDate
	}
	return res, nil
}

// SpacingAdvisories compares the two half-spans against the platform bounds.
// A half-span at or below the minimum, or above the maximum, yields one
// advisory message; the minimum check takes precedence.
func SpacingAdvisories(lo, hi float64, bounds platform.SpacingBounds) []string {
	switch {
	case lo <= bounds.MinDays || hi <= bounds.MinDays:
		return []string{fmt.Sprintf("input dates interval (%.1f, %.1f days) is smaller than %g days",
			lo, hi, bounds.MinDays*2)}
	case lo > bounds.MaxDays || hi > bounds.MaxDays:
		return []string{fmt.Sprintf("input dates interval (%.1f, %.1f days) is bigger than %g days",
			lo, hi, bounds.MaxDays*2-1)}
	}
	return nil
}

// IsNoValidDates reports whether err means no usable dates were left.
func IsNoValidDates(err error) bool {
	return errors.Is(err, ErrNoValidDates)
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
