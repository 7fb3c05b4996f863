package medipix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cornerSensor is an 8x8 sensor with a narrow charge cloud, so a hit on the
// corner shared by pixels (3,3), (4,3), (3,4) and (4,4) leaves a quarter of
// the energy in each of them.
func cornerSensor(t *testing.T, mode Mode, th0, th1 float64) *Sensor {
	t.Helper()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8, PixelPitch: 55, Mode: mode})
	require.NoError(t, s.SetPsfSigma(1))
	require.NoError(t, s.SetTh0(th0))
	require.NoError(t, s.SetTh1(th1))
	return s
}

func countOne(t *testing.T, s *Sensor, energy, x, y float64) []uint32 {
	t.Helper()
	require.NoError(t, s.StartFrame())
	require.NoError(t, s.AddPhoton(energy, x, y, 3, 0))
	require.NoError(t, s.FinishFrame())
	image, err := s.Image()
	require.NoError(t, err)
	return image
}

func TestSinglePixel_CornerHit(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, SinglePixelMode, 2, 20)
	image := countOne(t, s, 30, 0, 0)

	for _, p := range [][2]int{{3, 3}, {4, 3}, {3, 4}, {4, 4}} {
		assert.Equal(t, uint32(1), image[s.offset(p[0], p[1])], "pixel %v", p)
	}
	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
}

func TestSinglePixel_BelowThreshold(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, SinglePixelMode, 8, 20)
	countOne(t, s, 30, 0, 0)

	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestChargeSumming_CornerHit(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, ChargeSummingMode, 2, 20)
	image := countOne(t, s, 30, 0, 0)

	// The corner belongs to (4,4), its cluster extends towards (3,3).
	assert.Equal(t, uint32(1), image[s.offset(4, 4)])
	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestChargeSumming_SumBelowTh1(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, ChargeSummingMode, 2, 35)
	countOne(t, s, 30, 0, 0)

	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestChargeSumming_MembersBelowTh0(t *testing.T) {
	t.Parallel()
	// Each quarter (7.5 keV) is below th0, nothing is summed.
	s := cornerSensor(t, ChargeSummingMode, 8, 5)
	countOne(t, s, 30, 0, 0)

	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestChargeSumming_Quadrant(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, ChargeSummingMode, 2, 20)
	cx, cy := s.PixelCenter(4, 4)

	// A hit above and right of the center clusters with (5,4), (4,5), (5,5).
	image := countOne(t, s, 30, cx+0.4*55, cy+0.3*55)
	assert.Equal(t, uint32(1), image[s.offset(4, 4)])

	hits := s.injectChargeSumming(30, cx+0.4*55, cy+0.3*55)
	assert.Equal(t, [][2]int{{4, 4}}, hits)
}

func TestChargeSumming_LowerLeftHit(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, ChargeSummingMode, 2, 20)
	cx, cy := s.PixelCenter(4, 4)

	// All the charge stays in (4,4) and is counted there.
	image := countOne(t, s, 30, cx-0.4*55, cy-0.3*55)
	assert.Equal(t, uint32(1), image[s.offset(4, 4)])
	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestChargeSumming_ClusterFollowsQuadrant(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, ChargeSummingMode, 2, 20)
	cx, cy := s.PixelCenter(4, 4)

	// Half a micron from the corner shared with (3,3): (4,4) keeps about
	// 14 keV, the full 30 keV is only recovered by the lower left cluster.
	x, y := cx-27, cy-27
	assert.Equal(t, [][2]int{{4, 4}}, s.injectChargeSumming(30, x, y))

	image := countOne(t, s, 30, x, y)
	assert.Equal(t, uint32(1), image[s.offset(4, 4)])
	assert.Zero(t, image[s.offset(3, 3)])
}

func TestChargeSumming_OutsideGrid(t *testing.T) {
	t.Parallel()
	s := cornerSensor(t, ChargeSummingMode, 2, 20)
	assert.Nil(t, s.injectChargeSumming(30, 1e4, 0))
}

func TestChargeSumming_NeverMoreThanPhotons(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 32, PixelsY: 32, Mode: ChargeSummingMode, Seed: 11})
	require.NoError(t, s.SetTh0(2))
	require.NoError(t, s.SetTh1(6))

	e := Exposure{Energy: 30, ExposureTime: 1, FluxDensity: 1000, Radius: 3}
	require.NoError(t, s.StartFrame())
	n, err := e.Run(s, s.src, 2)
	require.NoError(t, err)
	require.NoError(t, s.FinishFrame())

	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.LessOrEqual(t, total, uint64(n))
	assert.Equal(t, uint64(n), s.RealPhotons())
}
