package manifest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/metadata"
)

func testConfig() *config.RunConfiguration {
	syn := time.Date(2018, 3, 15, 0, 0, 0, 0, time.UTC)
	return &config.RunConfiguration{
		ProgramVersion:          "1.0",
		ParameterVersion:        "1.1",
		ScatteringCoeffsVersion: "1.0",
		TempDir:                 "/tmp/run",
		Inputs: []metadata.Product{
			{Path: "/data/A/SENTINEL2A_20180301_MTD_ALL.xml"},
			{Path: "/data/B/SENTINEL2B_20180320_MTD_ALL.xml"},
		},
		SynthesisDate:   syn,
		WindowMin:       syn.AddDate(0, 0, -23),
		WindowMax:       syn.AddDate(0, 0, 23),
		HalfPeriod:      23,
		WeightAOTMin:    0.33,
		WeightAOTMax:    1,
		AOTMax:          0.8,
		CoarseRes:       240,
		KernelWidth:     801,
		SigmaSmallCloud: 2,
		SigmaLargeCloud: 10,
		WeightDateMin:   0.5,
	}
}

func TestWriteManifest(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	cfg := testConfig()

	path, err := Write(fsys, cfg)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/run/TS_GIPP_v1-1.xml", path)

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "<?xml"))
	for _, want := range []string{
		"<PROGRAM_VERSION>1.0</PROGRAM_VERSION>",
		"<PARAMETER_VERSION>1.1</PARAMETER_VERSION>",
		"<SCATTERING_COEFFICIENTS>1.0</SCATTERING_COEFFICIENTS>",
		"<WEIGHT_AOT_MIN>0.33</WEIGHT_AOT_MIN>",
		"<WEIGHT_AOT_MAX>1.0</WEIGHT_AOT_MAX>",
		"<COARSE_RES>240</COARSE_RES>",
		"<SIGMA_LARGE_CLD>10.0</SIGMA_LARGE_CLD>",
		"<SYNTHESIS_DATE>2018-03-15T00:00:00.000Z</SYNTHESIS_DATE>",
		"<SYNTHESIS_PERIOD_MIN>2018-02-20T00:00:00.000Z</SYNTHESIS_PERIOD_MIN>",
		"<HALF_SYNTHESIS>23</HALF_SYNTHESIS>",
		`<XML id="0">SENTINEL2A_20180301_MTD_ALL.xml</XML>`,
		`<XML id="1">SENTINEL2B_20180320_MTD_ALL.xml</XML>`,
	} {
		assert.Contains(t, text, want)
	}
}

func TestReadRoundTripKeepsInputOrder(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	path, err := Write(fsys, testConfig())
	require.NoError(t, err)

	doc, err := Read(fsys, path)
	require.NoError(t, err)
	require.Len(t, doc.Parameters.Inputs.XML, 2)
	assert.Equal(t, 1, doc.Parameters.Inputs.XML[1].ID)
	assert.Equal(t, "SENTINEL2B_20180320_MTD_ALL.xml", doc.Parameters.Inputs.XML[1].Name)
}

func TestWriteFailsWhenPathIsDirectory(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("/tmp/run/TS_GIPP_v1-1.xml", 0o755))
	_, err := Write(fsys, testConfig())
	assert.Error(t, err)
}
