package hdf5writer

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmbenlloch/go-hdf5"
	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datasetDims(t *testing.T, f *hdf5.File, name string) []uint {
	t.Helper()
	dset, err := f.OpenDataset(name)
	require.NoError(t, err)
	defer dset.Close()
	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	require.NoError(t, err)
	return dims
}

func TestWriter_Frames(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "run.h5")
	w, err := NewWriter(filename, 4, 6, 4)
	require.NoError(t, err)

	config := medipix.DefaultConfiguration()
	config.PixelsX, config.PixelsY = 4, 6
	require.NoError(t, w.WriteRunInfo("b5e7b1c4-1d3c-4a49-9cbb-5d4c1b7a2f10", config))

	for k := 0; k < 3; k++ {
		image := make([]uint32, 24)
		image[k] = uint32(k + 1)
		frame := Frame{
			Image:       image,
			Spectrum:    medipix.RadialSpectrum(image, 4, 6),
			FluxDensity: float64(k) * 1e5,
			RealPhotons: uint64(k + 1),
			TotalCounts: uint64(k + 1),
		}
		require.NoError(t, w.WriteFrame(frame))
	}
	require.NoError(t, w.WriteSignal(2, 1, 3, []float64{0, 0.5, 1, 0.25}))
	assert.Equal(t, 3, w.FrameCounter)
	require.NoError(t, w.Close())

	f, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []uint{3, 4, 6}, datasetDims(t, f, "/Frames/images"))
	assert.Equal(t, []uint{3, 3}, datasetDims(t, f, "/Frames/spectra"))
	assert.Equal(t, []uint{3}, datasetDims(t, f, "/Frames/info"))
	assert.Equal(t, []uint{1}, datasetDims(t, f, "/Run/info"))
	assert.Equal(t, []uint{4}, datasetDims(t, f, "/Signals/"+SignalName(2, 1, 3)))

	dset, err := f.OpenDataset("/Frames/images")
	require.NoError(t, err)
	defer dset.Close()
	images := make([]uint32, 3*24)
	require.NoError(t, dset.Read(&images))
	assert.Equal(t, uint32(1), images[0])
	assert.Equal(t, uint32(2), images[24+1])
	assert.Equal(t, uint32(3), images[48+2])
}

func TestWriter_RejectsShapes(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "run.h5"), 4, 4, 0)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.WriteFrame(Frame{Image: make([]uint32, 15), Spectrum: make([]float64, 3)}))
	assert.Error(t, w.WriteFrame(Frame{Image: make([]uint32, 16), Spectrum: make([]float64, 2)}))
	assert.Error(t, w.WriteSignal(0, 0, 0, nil))
	assert.Zero(t, w.FrameCounter)

	_, err = NewWriter(filepath.Join(t.TempDir(), "bad.h5"), 0, 4, 0)
	assert.Error(t, err)
}

func TestWriteSlab_FixedSize(t *testing.T) {
	f, err := openFile(filepath.Join(t.TempDir(), "fixed.h5"))
	require.NoError(t, err)
	defer f.Close()
	group, err := createGroup(f, "Data")
	require.NoError(t, err)
	defer group.Close()

	dset, err := createArray(group, "fixed", hdf5.T_NATIVE_FLOAT, []uint{2}, []uint{2}, []uint{2}, 0)
	require.NoError(t, err)
	defer dset.Close()

	data := []float32{1, 2}
	require.NoError(t, writeSlab(dset, &data, 0, []uint{2}))

	// The dataset cannot grow past its maximum size.
	extra := []float32{3}
	err = writeSlab(dset, &extra, 2, []uint{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error resizing dataset")
}

func TestConfigurationParams(t *testing.T) {
	t.Parallel()
	config := medipix.DefaultConfiguration()
	config.Timed = true
	config.IKrum = 70

	values := map[string]float64{}
	for _, p := range configurationParams(config) {
		name := strings.TrimRight(string(p.param[:]), "\x00")
		values[name] = p.value
	}
	assert.Equal(t, 1.0, values["timed"])
	assert.Equal(t, 70.0, values["i_krum"])
	assert.Equal(t, 55.0, values["pixel_pitch"])
	assert.Equal(t, 0.0, values["mode"])
	assert.NotContains(t, values, "pattern")
	assert.NotContains(t, values, "flux_densities")
}
