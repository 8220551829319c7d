package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/fsutil"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Muscate_Metadata_Document>
  <Dataset_Identification>
    <PROJECT>SENTINEL2</PROJECT>
    <GEOGRAPHICAL_ZONE type="MGRS">T31TGL</GEOGRAPHICAL_ZONE>
  </Dataset_Identification>
  <Product_Characteristics>
    <ACQUISITION_DATE>2018-03-21T10:33:45.708Z</ACQUISITION_DATE>
  </Product_Characteristics>
</Muscate_Metadata_Document>`

func TestReadHeader(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/in/a_MTD_ALL.xml", []byte(sampleXML), 0644))

	h, err := ReadHeader(fsys, "/in/a_MTD_ALL.xml")
	require.NoError(t, err)
	assert.Equal(t, Header{
		Path:            "/in/a_MTD_ALL.xml",
		Platform:        "SENTINEL2",
		Tile:            "T31TGL",
		AcquisitionDate: "2018-03-21T10:33:45.708Z",
	}, h)
}

func TestReadHeader_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/in/broken.xml", []byte("<Muscate_Metadata_Document>"), 0644))

	_, err := ReadHeader(fsys, "/in/missing.xml")
	assert.Error(t, err)

	_, err = ReadHeader(fsys, "/in/broken.xml")
	assert.Error(t, err)
}

func TestLoadHeaders_DropsUnreadable(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/in/a.xml", []byte(sampleXML), 0644))

	headers, err := LoadHeaders(fsys, []string{"/in/missing.xml", "/in/a.xml"})
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, "/in/a.xml", headers[0].Path)

	_, err = LoadHeaders(fsys, []string{"/in/missing.xml"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInput))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2018-03-21T10:33:45.708Z", time.Date(2018, 3, 21, 10, 33, 45, 708000000, time.UTC), false},
		{"2018-03-21T10:33:45.708", time.Date(2018, 3, 21, 10, 33, 45, 708000000, time.UTC), false},
		{"2015-07-27T10:00:00.000Z", time.Date(2015, 7, 27, 10, 0, 0, 0, time.UTC), false},
		{"21/03/2018", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimestamp(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
		})
	}
}

func TestParseShortDate(t *testing.T) {
	want := time.Date(2018, 5, 11, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"20180511", "2018-05-11"} {
		got, err := ParseShortDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), in)
	}
	_, err := ParseShortDate("2018-13-40")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	ts := time.Date(2018, 3, 21, 10, 33, 45, 708123000, time.UTC)
	assert.Equal(t, "2018-03-21T10:33:45.708Z", FormatLong(ts))
	assert.Equal(t, "20180321", FormatShort(ts))
	assert.Equal(t, "2018-03-21T00:00:00.000Z", FormatLong(time.Date(2018, 3, 21, 0, 0, 0, 0, time.UTC)))
}
