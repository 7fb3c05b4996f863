package medipix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSensor(t *testing.T, opts SensorOptions) *Sensor {
	t.Helper()
	s, err := NewSensor(opts)
	require.NoError(t, err)
	return s
}

func TestNewSensor_Defaults(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{})

	assert.Equal(t, 256, s.PixelsX())
	assert.Equal(t, 256, s.PixelsY())
	assert.Equal(t, 55.0, s.PixelPitch())
	assert.Equal(t, DefaultSamplesPerUs, s.SamplesPerUs())
	assert.Equal(t, SinglePixelMode, s.Mode())
	assert.False(t, s.Timed())
	assert.Equal(t, DefaultIKrum, s.IKrum())
	assert.Equal(t, Closed, s.State())
}

func TestNewSensor_Rejects(t *testing.T) {
	t.Parallel()
	cases := map[string]SensorOptions{
		"negative pixels x": {PixelsX: -1},
		"negative pixels y": {PixelsY: -4},
		"negative pitch":    {PixelPitch: -55},
		"negative rate":     {SamplesPerUs: -1},
		"unknown mode":      {Mode: Mode(7)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewSensor(opts)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestFrame_Transitions(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})

	require.ErrorIs(t, s.FinishFrame(), ErrInvalidState)
	require.NoError(t, s.StartFrame())
	assert.Equal(t, Open, s.State())

	err := s.StartFrame()
	require.ErrorIs(t, err, ErrInvalidState)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, Open, stateErr.State)

	require.NoError(t, s.FinishFrame())
	assert.Equal(t, Closed, s.State())
}

func TestFrame_ReadoutWhileOpen(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})
	require.NoError(t, s.StartFrame())

	_, err := s.PixelValue(0, 0)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.TotalCounts()
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.Image()
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.Spectrum()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFrame_SettersWhileOpen(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})
	require.NoError(t, s.StartFrame())

	assert.ErrorIs(t, s.SetPsfSigma(10), ErrInvalidState)
	assert.ErrorIs(t, s.SetTh0(4), ErrInvalidState)
	assert.ErrorIs(t, s.SetTh1(4), ErrInvalidState)
	assert.ErrorIs(t, s.SetIKrum(50), ErrInvalidState)
	assert.ErrorIs(t, s.SetCalibration(DefaultCalibration()), ErrInvalidState)
	assert.ErrorIs(t, s.RandomThresholdDispersion(1), ErrInvalidState)

	assert.Equal(t, 13.0, s.PsfSigma())
	assert.Equal(t, 6.0, s.Th0())
	assert.Equal(t, DefaultIKrum, s.IKrum())
}

func TestAddPhoton_WhileClosed(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})
	x, y := s.PixelCenter(4, 4)

	err := s.AddPhoton(30, x, y, 3, 0)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Zero(t, s.RealPhotons())

	total, err := s.TotalCounts()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddPhoton_MalformedWhileClosed(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8, Timed: true})

	assert.ErrorIs(t, s.AddPhoton(30, 0, 0, -1, 0), ErrInvalidState)
	assert.ErrorIs(t, s.AddPhoton(30, 0, 0, 3, -1), ErrInvalidState)
	assert.Zero(t, s.RealPhotons())
}

func TestAddPhoton_Arguments(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8, Timed: true})
	require.NoError(t, s.StartFrame())

	assert.ErrorIs(t, s.AddPhoton(30, 0, 0, -1, 0), ErrInvalidArgument)
	assert.ErrorIs(t, s.AddPhoton(30, 0, 0, 3, -1), ErrInvalidArgument)
	assert.Zero(t, s.RealPhotons())
}

func TestStartFrame_Resets(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})
	require.NoError(t, s.SetPsfSigma(1))
	x, y := s.PixelCenter(2, 5)

	require.NoError(t, s.StartFrame())
	require.NoError(t, s.AddPhoton(30, x, y, 3, 0))
	require.NoError(t, s.AddPhoton(30, x, y, 3, 0))
	require.NoError(t, s.FinishFrame())

	v, err := s.PixelValue(2, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)
	assert.Equal(t, uint64(2), s.RealPhotons())

	require.NoError(t, s.StartFrame())
	assert.Zero(t, s.RealPhotons())
	require.NoError(t, s.FinishFrame())

	image, err := s.Image()
	require.NoError(t, err)
	for _, c := range image {
		assert.Zero(t, c)
	}
}

func TestPixelValue_OutOfRange(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 4})

	_, err := s.PixelValue(8, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.PixelValue(0, 4)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.PixelValue(-1, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSetters_Validation(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})

	assert.ErrorIs(t, s.SetPsfSigma(0), ErrInvalidArgument)
	assert.ErrorIs(t, s.SetPsfSigma(-3), ErrInvalidArgument)
	assert.Equal(t, 13.0, s.PsfSigma())

	require.NoError(t, s.SetTh0(8))
	require.NoError(t, s.SetTh1(25))
	assert.Equal(t, 8.0, s.Th0())
	assert.Equal(t, 25.0, s.Th1())
}
