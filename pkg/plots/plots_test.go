package plots

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurves(t *testing.T) {
	t.Parallel()
	filename := filepath.Join(t.TempDir(), "scan.png")
	series := []Series{
		{Label: "spm", X: []float64{2, 6, 10}, Y: []float64{250, 110, 40}},
		{Label: "csm", X: []float64{2, 6, 10}, Y: []float64{100, 98, 95}},
	}
	require.NoError(t, Curves(filename, "Threshold scan", "Threshold (keV)", "Counts", series))

	info, err := os.Stat(filename)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCurves_InvalidSeries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	err := Curves(filepath.Join(dir, "a.png"), "", "", "", []Series{{Label: "empty"}})
	assert.ErrorIs(t, err, ErrEmptySeries)

	err = Curves(filepath.Join(dir, "b.png"), "", "", "", []Series{{Label: "bad", X: []float64{1, 2}, Y: []float64{1}}})
	assert.Error(t, err)
}

func TestSpectrumAndImage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	spectrum := RadiusSeries("flux 1e6", []float64{640, 0, 17.8, 0, 0})
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, spectrum.X)
	require.NoError(t, Spectrum(filepath.Join(dir, "spectrum.png"), "Spectrum", []Series{spectrum}))

	image := make([]uint32, 8*4)
	for k := range image {
		image[k] = uint32(k % 5)
	}
	require.NoError(t, Image(filepath.Join(dir, "image.png"), "Counts", image, 8, 4))
	assert.Error(t, Image(filepath.Join(dir, "bad.png"), "Counts", image, 4, 4))
}
