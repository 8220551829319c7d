// Package config turns user overrides into the immutable configuration of a
// synthesis run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/platform"
)

// Hard-coded defaults for every overridable parameter.
const (
	DefaultParameterVersion        = "1.1"
	DefaultScatteringCoeffsVersion = "1.0"
	DefaultRemoveTemp              = true
	DefaultOptimized               = false
	DefaultWeightAOTMin            = 0.33
	DefaultWeightAOTMax            = 1.0
	DefaultAOTMax                  = 0.8
	DefaultCoarseRes               = 240
	DefaultKernelWidth             = 801
	DefaultSigmaSmallCloud         = 2.0
	DefaultSigmaLargeCloud         = 10.0
	DefaultWeightDateMin           = 0.5
	DefaultThreads                 = 8
)

const maxRequestFileSize = 1 * 1024 * 1024

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)

// Request holds the user-supplied part of a run. Every field except the
// input list and output directory is optional; nil means "use the default".
type Request struct {
	Inputs  []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	OutDir  string   `json:"out,omitempty" yaml:"out,omitempty"`
	TempDir *string  `json:"tempout,omitempty" yaml:"tempout,omitempty"`

	ParameterVersion *string `json:"version,omitempty" yaml:"version,omitempty"`
	TargetDate       *string `json:"date,omitempty" yaml:"date,omitempty"`
	HalfPeriod       *int    `json:"synthalf,omitempty" yaml:"synthalf,omitempty"`
	PriorProductPath *string `json:"prev_l3a,omitempty" yaml:"prev_l3a,omitempty"`

	RemoveTemp *bool `json:"remove_temp,omitempty" yaml:"remove_temp,omitempty"`
	Optimized  *bool `json:"cog,omitempty" yaml:"cog,omitempty"`

	// Weighting and kernel parameters
	WeightAOTMin    *float64 `json:"weightaotmin,omitempty" yaml:"weightaotmin,omitempty"`
	WeightAOTMax    *float64 `json:"weightaotmax,omitempty" yaml:"weightaotmax,omitempty"`
	AOTMax          *float64 `json:"aotmax,omitempty" yaml:"aotmax,omitempty"`
	CoarseRes       *int     `json:"coarseres,omitempty" yaml:"coarseres,omitempty"`
	KernelWidth     *int     `json:"kernelwidth,omitempty" yaml:"kernelwidth,omitempty"`
	SigmaSmallCloud *float64 `json:"sigmasmallcld,omitempty" yaml:"sigmasmallcld,omitempty"`
	SigmaLargeCloud *float64 `json:"sigmalargecld,omitempty" yaml:"sigmalargecld,omitempty"`
	WeightDateMin   *float64 `json:"weightdatemin,omitempty" yaml:"weightdatemin,omitempty"`

	Threads             *int    `json:"nthreads,omitempty" yaml:"nthreads,omitempty"`
	ScatteringCoeffPath *string `json:"scatteringcoeffpath,omitempty" yaml:"scatteringcoeffpath,omitempty"`
}

// LoadRequestFile loads a Request from a JSON or YAML parameter file.
// Fields omitted from the file stay nil, so partial files are safe.
func LoadRequestFile(path string) (*Request, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, &InvalidParameterError{Field: "params", Value: path,
			Reason: fmt.Sprintf("parameter file must have .json, .yaml or .yml extension, got %q", ext)}
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat parameter file: %w", err)
	}
	if fileInfo.Size() > maxRequestFileSize {
		return nil, &InvalidParameterError{Field: "params", Value: path,
			Reason: fmt.Sprintf("file too large: %d bytes (max %d)", fileInfo.Size(), maxRequestFileSize)}
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	req := &Request{}
	if ext == ".json" {
		err = decodeJSON(data, req)
	} else {
		err = decodeYAML(data, req)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func decodeJSON(data []byte, req *Request) error {
	if err := json.Unmarshal(data, req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &InvalidParameterError{Field: typeErr.Field, Value: typeErr.Value,
				Reason: fmt.Sprintf("expected %s", typeErr.Type)}
		}
		return &InvalidParameterError{Field: "params", Reason: err.Error()}
	}
	return nil
}

func decodeYAML(data []byte, req *Request) error {
	if err := yaml.Unmarshal(data, req); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return &InvalidParameterError{Field: "params", Reason: strings.Join(typeErr.Errors, "; ")}
		}
		return &InvalidParameterError{Field: "params", Reason: err.Error()}
	}
	return nil
}

// Overlay copies every field set in o onto r. Values in o win.
func (r *Request) Overlay(o *Request) {
	if o == nil {
		return
	}
	if len(o.Inputs) > 0 {
		r.Inputs = append([]string(nil), o.Inputs...)
	}
	if o.OutDir != "" {
		r.OutDir = o.OutDir
	}
	overlay(&r.TempDir, o.TempDir)
	overlay(&r.ParameterVersion, o.ParameterVersion)
	overlay(&r.TargetDate, o.TargetDate)
	overlay(&r.HalfPeriod, o.HalfPeriod)
	overlay(&r.PriorProductPath, o.PriorProductPath)
	overlay(&r.RemoveTemp, o.RemoveTemp)
	overlay(&r.Optimized, o.Optimized)
	overlay(&r.WeightAOTMin, o.WeightAOTMin)
	overlay(&r.WeightAOTMax, o.WeightAOTMax)
	overlay(&r.AOTMax, o.AOTMax)
	overlay(&r.CoarseRes, o.CoarseRes)
	overlay(&r.KernelWidth, o.KernelWidth)
	overlay(&r.SigmaSmallCloud, o.SigmaSmallCloud)
	overlay(&r.SigmaLargeCloud, o.SigmaLargeCloud)
	overlay(&r.WeightDateMin, o.WeightDateMin)
	overlay(&r.Threads, o.Threads)
	overlay(&r.ScatteringCoeffPath, o.ScatteringCoeffPath)
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Validate checks that the set values are usable.
func (r *Request) Validate() error {
	if len(r.Inputs) == 0 {
		return &InvalidParameterError{Field: "input", Reason: "at least one input product is required"}
	}
	if r.OutDir == "" {
		return &InvalidParameterError{Field: "out", Reason: "output directory is required"}
	}
	if r.TargetDate != nil {
		if _, err := metadata.ParseShortDate(*r.TargetDate); err != nil {
			return &InvalidParameterError{Field: "date", Value: *r.TargetDate, Reason: "expected YYYYMMDD"}
		}
	}

	positiveInts := []struct {
		name string
		v    *int
	}{
		{"synthalf", r.HalfPeriod},
		{"coarseres", r.CoarseRes},
		{"kernelwidth", r.KernelWidth},
		{"nthreads", r.Threads},
	}
	for _, p := range positiveInts {
		if p.v != nil && *p.v <= 0 {
			return &InvalidParameterError{Field: p.name, Value: fmt.Sprint(*p.v), Reason: "must be positive"}
		}
	}

	positiveFloats := []struct {
		name string
		v    *float64
	}{
		{"sigmasmallcld", r.SigmaSmallCloud},
		{"sigmalargecld", r.SigmaLargeCloud},
		{"aotmax", r.AOTMax},
	}
	for _, p := range positiveFloats {
		if p.v != nil && *p.v <= 0 {
			return &InvalidParameterError{Field: p.name, Value: fmt.Sprint(*p.v), Reason: "must be positive"}
		}
	}

	unitWeights := []struct {
		name string
		v    *float64
	}{
		{"weightaotmin", r.WeightAOTMin},
		{"weightaotmax", r.WeightAOTMax},
		{"weightdatemin", r.WeightDateMin},
	}
	for _, p := range unitWeights {
		if p.v != nil && (*p.v < 0 || *p.v > 1) {
			return &InvalidParameterError{Field: p.name, Value: fmt.Sprint(*p.v), Reason: "must be between 0 and 1"}
		}
	}
	if r.GetWeightAOTMin() > r.GetWeightAOTMax() {
		return &InvalidParameterError{Field: "weightaotmin",
			Value:  fmt.Sprint(r.GetWeightAOTMin()),
			Reason: fmt.Sprintf("must not exceed weightaotmax (%g)", r.GetWeightAOTMax())}
	}
	return nil
}

// GetTempDir returns the temporary directory, defaulting to the output directory.
func (r *Request) GetTempDir() string {
	if r.TempDir == nil || *r.TempDir == "" {
		return r.OutDir
	}
	return *r.TempDir
}

// GetParameterVersion returns the parameter version. A value that is not
// of the form <digits>.<digits> is ignored in favour of the default.
func (r *Request) GetParameterVersion() string {
	if r.ParameterVersion == nil || !versionPattern.MatchString(*r.ParameterVersion) {
		return DefaultParameterVersion
	}
	return *r.ParameterVersion
}

// GetTargetDate returns the parsed target date, or nil when none was given.
func (r *Request) GetTargetDate() (*time.Time, error) {
	if r.TargetDate == nil {
		return nil, nil
	}
	t, err := metadata.ParseShortDate(*r.TargetDate)
	if err != nil {
		return nil, &InvalidParameterError{Field: "date", Value: *r.TargetDate, Reason: "expected YYYYMMDD"}
	}
	return &t, nil
}

// GetHalfPeriod returns the half synthesis period in days; the default
// depends on the platform.
func (r *Request) GetHalfPeriod(p platform.Profile) int {
	if r.HalfPeriod == nil {
		return p.DefaultHalfPeriod
	}
	return *r.HalfPeriod
}

// GetPriorProductPath returns the prior finished product path or "".
func (r *Request) GetPriorProductPath() string {
	if r.PriorProductPath == nil {
		return ""
	}
	return *r.PriorProductPath
}

// GetRemoveTemp returns whether intermediate artifacts are deleted.
func (r *Request) GetRemoveTemp() bool {
	if r.RemoveTemp == nil {
		return DefaultRemoveTemp
	}
	return *r.RemoveTemp
}

// GetOptimized returns whether the delivered product is written in the
// optimized (cloud optimized GeoTIFF) layout.
func (r *Request) GetOptimized() bool {
	if r.Optimized == nil {
		return DefaultOptimized
	}
	return *r.Optimized
}

// GetWeightAOTMin returns the weightaotmin value or the default.
func (r *Request) GetWeightAOTMin() float64 {
	if r.WeightAOTMin == nil {
		return DefaultWeightAOTMin
	}
	return *r.WeightAOTMin
}

// GetWeightAOTMax returns the weightaotmax value or the default.
func (r *Request) GetWeightAOTMax() float64 {
	if r.WeightAOTMax == nil {
		return DefaultWeightAOTMax
	}
	return *r.WeightAOTMax
}

// GetAOTMax returns the aotmax value or the default.
func (r *Request) GetAOTMax() float64 {
	if r.AOTMax == nil {
		return DefaultAOTMax
	}
	return *r.AOTMax
}

// GetCoarseRes returns the coarseres value or the default.
func (r *Request) GetCoarseRes() int {
	if r.CoarseRes == nil {
		return DefaultCoarseRes
	}
	return *r.CoarseRes
}

// GetKernelWidth returns the kernelwidth value or the default.
func (r *Request) GetKernelWidth() int {
	if r.KernelWidth == nil {
		return DefaultKernelWidth
	}
	return *r.KernelWidth
}

// GetSigmaSmallCloud returns the sigmasmallcld value or the default.
func (r *Request) GetSigmaSmallCloud() float64 {
	if r.SigmaSmallCloud == nil {
		return DefaultSigmaSmallCloud
	}
	return *r.SigmaSmallCloud
}

// GetSigmaLargeCloud returns the sigmalargecld value or the default.
func (r *Request) GetSigmaLargeCloud() float64 {
	if r.SigmaLargeCloud == nil {
		return DefaultSigmaLargeCloud
	}
	return *r.SigmaLargeCloud
}

// GetWeightDateMin returns the weightdatemin value or the default.
func (r *Request) GetWeightDateMin() float64 {
	if r.WeightDateMin == nil {
		return DefaultWeightDateMin
	}
	return *r.WeightDateMin
}

// GetThreads returns the thread-count hint or the default.
func (r *Request) GetThreads() int {
	if r.Threads == nil {
		return DefaultThreads
	}
	return *r.Threads
}
