// Package metadata reads the few MUSCATE metadata fields the orchestrator
// needs: platform, tile and acquisition date.
package metadata

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/monitoring"
)

// Header is the raw content of one product's metadata file.
type Header struct {
	Path            string
	Platform        string
	Tile            string
	AcquisitionDate string
}

// Product is one acquisition with its parsed date. Immutable once built.
type Product struct {
	Path            string
	Platform        string
	Tile            string
	AcquisitionDate time.Time
}

type muscateDocument struct {
	XMLName         xml.Name `xml:"Muscate_Metadata_Document"`
	Project         string   `xml:"Dataset_Identification>PROJECT"`
	GeographicZone  string   `xml:"Dataset_Identification>GEOGRAPHICAL_ZONE"`
	AcquisitionDate string   `xml:"Product_Characteristics>ACQUISITION_DATE"`
}

// ReadHeader decodes the metadata file at path.
func ReadHeader(fsys fsutil.FileSystem, path string) (Header, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Header{}, fmt.Errorf("read metadata %s: %w", path, err)
	}
	var doc muscateDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Header{}, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return Header{
		Path:            path,
		Platform:        strings.TrimSpace(doc.Project),
		Tile:            strings.TrimSpace(doc.GeographicZone),
		AcquisitionDate: strings.TrimSpace(doc.AcquisitionDate),
	}, nil
}

// LoadHeaders reads every metadata file. Unreadable files are dropped with a
// warning; if none can be read the result is an input error.
func LoadHeaders(fsys fsutil.FileSystem, paths []string) ([]Header, error) {
	headers := make([]Header, 0, len(paths))
	for _, p := range paths {
		h, err := ReadHeader(fsys, p)
		if err != nil {
			monitoring.Warnf("dropping input: %v", err)
			continue
		}
		headers = append(headers, h)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("none of the %d input metadata files is readable: %w", len(paths), faults.ErrInput)
	}
	return headers, nil
}
