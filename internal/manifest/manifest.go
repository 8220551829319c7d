// Package manifest writes the parameter manifest (GIPP file) that documents
// every resolved setting of a synthesis run.
package manifest

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/monitoring"
)

// Document is the XML layout of the manifest.
type Document struct {
	XMLName          xml.Name   `xml:"Weighted_Average_Synthesis_Processor"`
	ProgramVersion   string     `xml:"PROGRAM_VERSION"`
	ParameterVersion string     `xml:"PARAMETER_VERSION"`
	Parameters       Parameters `xml:"Image_Processing_Parameters"`
}

type Parameters struct {
	DirectionalCorrection struct {
		ScatteringCoefficients string `xml:"SCATTERING_COEFFICIENTS"`
	} `xml:"Directional_Correction"`
	WeightAOT struct {
		WeightAOTMin string `xml:"WEIGHT_AOT_MIN"`
		WeightAOTMax string `xml:"WEIGHT_AOT_MAX"`
		AOTMax       string `xml:"AOT_MAX"`
	} `xml:"Weight_AOT"`
	WeightOnClouds struct {
		CoarseRes     string `xml:"COARSE_RES"`
		SigmaSmallCld string `xml:"SIGMA_SMALL_CLD"`
		SigmaLargeCld string `xml:"SIGMA_LARGE_CLD"`
		KernelWidth   string `xml:"KERNEL_WIDTH"`
	} `xml:"Weight_On_Clouds"`
	WeightOnDate struct {
		WeightDateMin      string `xml:"WEIGHT_DATE_MIN"`
		SynthesisDate      string `xml:"SYNTHESIS_DATE"`
		SynthesisPeriodMin string `xml:"SYNTHESIS_PERIOD_MIN"`
		SynthesisPeriodMax string `xml:"SYNTHESIS_PERIOD_MAX"`
		HalfSynthesis      string `xml:"HALF_SYNTHESIS"`
	} `xml:"Weight_On_Date"`
	Inputs struct {
		XML []InputEntry `xml:"XML"`
	} `xml:"XML_INPUTS"`
}

// InputEntry is one indexed input identifier.
type InputEntry struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:",chardata"`
}

// FileName returns the manifest file name for a parameter version tag,
// e.g. TS_GIPP_v1-1.xml.
func FileName(versionTag string) string {
	return "TS_GIPP_v" + versionTag + ".xml"
}

// Path returns where the manifest of cfg is written.
func Path(cfg *config.RunConfiguration) string {
	return filepath.Join(cfg.TempDir, FileName(cfg.VersionTag()))
}

// Build converts cfg into a manifest document.
func Build(cfg *config.RunConfiguration) Document {
	doc := Document{
		ProgramVersion:   cfg.ProgramVersion,
		ParameterVersion: cfg.ParameterVersion,
	}
	p := &doc.Parameters
	p.DirectionalCorrection.ScatteringCoefficients = cfg.ScatteringCoeffsVersion

	p.WeightAOT.WeightAOTMin = config.FormatFloat(cfg.WeightAOTMin)
	p.WeightAOT.WeightAOTMax = config.FormatFloat(cfg.WeightAOTMax)
	p.WeightAOT.AOTMax = config.FormatFloat(cfg.AOTMax)

	p.WeightOnClouds.CoarseRes = strconv.Itoa(cfg.CoarseRes)
	p.WeightOnClouds.SigmaSmallCld = config.FormatFloat(cfg.SigmaSmallCloud)
	p.WeightOnClouds.SigmaLargeCld = config.FormatFloat(cfg.SigmaLargeCloud)
	p.WeightOnClouds.KernelWidth = strconv.Itoa(cfg.KernelWidth)

	p.WeightOnDate.WeightDateMin = config.FormatFloat(cfg.WeightDateMin)
	p.WeightOnDate.SynthesisDate = metadata.FormatLong(cfg.SynthesisDate)
	p.WeightOnDate.SynthesisPeriodMin = metadata.FormatLong(cfg.WindowMin)
	p.WeightOnDate.SynthesisPeriodMax = metadata.FormatLong(cfg.WindowMax)
	p.WeightOnDate.HalfSynthesis = strconv.Itoa(cfg.HalfPeriod)

	for i, in := range cfg.Inputs {
		p.Inputs.XML = append(p.Inputs.XML, InputEntry{ID: i, Name: filepath.Base(in.Path)})
	}
	return doc
}

// Write serializes the manifest of cfg into the temp directory and returns
// its path. The manifest is written once; an existing file is replaced.
func Write(fsys fsutil.FileSystem, cfg *config.RunConfiguration) (string, error) {
	path := Path(cfg)
	data, err := xml.MarshalIndent(Build(cfg), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	monitoring.Opsf("writing parameter manifest to %s", path)
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return path, nil
}

// Read parses a manifest previously produced by Write.
func Read(fsys fsutil.FileSystem, path string) (Document, error) {
	var doc Document
	data, err := fsys.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return doc, nil
}
