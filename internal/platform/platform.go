// Package platform identifies the acquisition platform of a product set and
// holds the per-platform processing profile.
package platform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/metadata"
)

// Platform identifiers as found in the PROJECT metadata field.
const (
	Sentinel2 = "SENTINEL2"
	Venus     = "VENUS"
)

// SpacingBounds are the advisory lower and upper limits, in days, for the
// half-spans of a synthesis window.
type SpacingBounds struct {
	MinDays float64
	MaxDays float64
}

// Profile is the platform-specific part of a run configuration.
type Profile struct {
	Name string
	// Tiers lists the resolution tier suffixes, e.g. ["1", "2"] for Sentinel-2.
	// The first tier is the finest.
	Tiers []string
	// ReflectanceStem is the artifact stem of per-tier rasters ("R" or "XS").
	ReflectanceStem   string
	Spacing           SpacingBounds
	DefaultHalfPeriod int
	// CloudCut is passed to the cloud weighting stage.
	CloudCut bool
}

// MultiResolution reports whether the platform has more than one tier.
func (p Profile) MultiResolution() bool {
	return len(p.Tiers) > 1
}

var profiles = map[string]Profile{
	Sentinel2: {
		Name:              Sentinel2,
		Tiers:             []string{"1", "2"},
		ReflectanceStem:   "R",
		Spacing:           SpacingBounds{MinDays: 20, MaxDays: 23},
		DefaultHalfPeriod: 23,
		CloudCut:          true,
	},
	Venus: {
		Name:              Venus,
		Tiers:             []string{"1"},
		ReflectanceStem:   "XS",
		Spacing:           SpacingBounds{MinDays: 7, MaxDays: 15},
		DefaultHalfPeriod: 11,
		CloudCut:          false,
	},
}

// Lookup returns the profile for a platform identifier.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, &UnknownPlatformError{Platform: name}
	}
	return p, nil
}

// Resolve checks that every header shares one platform and one tile and
// returns the platform profile together with the tile identifier.
func Resolve(headers []metadata.Header) (Profile, string, error) {
	if len(headers) == 0 {
		return Profile{}, "", fmt.Errorf("no input products: %w", faults.ErrInput)
	}

	platforms := distinct(headers, func(h metadata.Header) string { return h.Platform })
	if len(platforms) != 1 {
		return Profile{}, "", &MultiplePlatformsError{Platforms: platforms}
	}
	tiles := distinct(headers, func(h metadata.Header) string { return h.Tile })
	if len(tiles) != 1 {
		return Profile{}, "", &MultipleTilesError{Tiles: tiles}
	}

	profile, err := Lookup(platforms[0])
	if err != nil {
		return Profile{}, "", err
	}
	return profile, tiles[0], nil
}

func distinct(headers []metadata.Header, field func(metadata.Header) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range headers {
		v := field(h)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// MultiplePlatformsError reports inputs from more than one platform.
type MultiplePlatformsError struct {
	Platforms []string
}

func (e *MultiplePlatformsError) Error() string {
	return fmt.Sprintf("multiple platforms found in inputs: %s", strings.Join(e.Platforms, ", "))
}

func (e *MultiplePlatformsError) Is(target error) bool { return target == faults.ErrConfiguration }

// MultipleTilesError reports inputs covering more than one tile.
type MultipleTilesError struct {
	Tiles []string
}

func (e *MultipleTilesError) Error() string {
	return fmt.Sprintf("synthesis runs on a single tile, found: %s", strings.Join(e.Tiles, ", "))
}

func (e *MultipleTilesError) Is(target error) bool { return target == faults.ErrConfiguration }

// UnknownPlatformError reports a platform without a profile.
type UnknownPlatformError struct {
	Platform string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q", e.Platform)
}

func (e *UnknownPlatformError) Is(target error) bool { return target == faults.ErrConfiguration }
