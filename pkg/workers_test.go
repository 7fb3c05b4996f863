package medipix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPhotons(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})
	require.NoError(t, s.SetPsfSigma(1))
	x, y := s.PixelCenter(3, 3)

	photons := make(chan Photon)
	go func() {
		for k := 0; k < 50; k++ {
			photons <- Photon{Energy: 30, X: x, Y: y, Radius: 3}
		}
		close(photons)
	}()

	require.NoError(t, s.StartFrame())
	require.NoError(t, RunPhotons(s, photons, 3))
	require.NoError(t, s.FinishFrame())

	v, err := s.PixelValue(3, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), v)
}

func TestRunPhotons_ClosedFrameDrains(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})

	photons := make(chan Photon)
	sent := make(chan int)
	go func() {
		n := 0
		for k := 0; k < 20; k++ {
			photons <- Photon{Energy: 30}
			n++
		}
		close(photons)
		sent <- n
	}()

	err := RunPhotons(s, photons, 2)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 20, <-sent)
	assert.Zero(t, s.RealPhotons())
}
