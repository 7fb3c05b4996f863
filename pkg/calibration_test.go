package medipix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestInterpolateCalibration_Nodes(t *testing.T) {
	t.Parallel()
	for _, p := range DefaultCalibration() {
		assert.Equal(t, p.parameters(), interpolateCalibration(defaultCalibration, p.IKrum))
	}
}

func TestInterpolateCalibration_Between(t *testing.T) {
	t.Parallel()
	p := interpolateCalibration(defaultCalibration, 15)
	assert.InDelta(t, 3.0, p.NaturalFrequency, 1e-12)
	assert.InDelta(t, 1.15, p.Damping, 1e-12)
	assert.Zero(t, p.DampedFrequency)

	p = interpolateCalibration(defaultCalibration, 85)
	assert.InDelta(t, 10.5, p.NaturalFrequency, 1e-12)
	assert.InDelta(t, 0.725, p.Damping, 1e-12)
}

func TestSetIKrum_Range(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8})

	for _, gain := range []int{0, 101, -5} {
		assert.ErrorIs(t, s.SetIKrum(gain), ErrInvalidArgument)
		assert.Equal(t, DefaultIKrum, s.IKrum())
	}
	for _, gain := range []int{MinIKrum, 37, MaxIKrum} {
		require.NoError(t, s.SetIKrum(gain))
		assert.Equal(t, gain, s.IKrum())
	}
}

func TestValidateCalibration(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateCalibration(DefaultCalibration()))

	cases := map[string][]CalibrationPoint{
		"empty": nil,
		"short": {
			{IKrum: 1, NaturalFrequency: 1, Damping: 1},
			{IKrum: 50, NaturalFrequency: 2, Damping: 1},
		},
		"unsorted": {
			{IKrum: 1, NaturalFrequency: 1, Damping: 1},
			{IKrum: 60, NaturalFrequency: 2, Damping: 1},
			{IKrum: 40, NaturalFrequency: 2, Damping: 1},
			{IKrum: 100, NaturalFrequency: 2, Damping: 1},
		},
		"zero frequency": {
			{IKrum: 1, NaturalFrequency: 0, Damping: 1},
			{IKrum: 100, NaturalFrequency: 2, Damping: 1},
		},
	}
	for name, table := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateCalibration(table), ErrInvalidArgument)
		})
	}
}

func TestSetCalibration(t *testing.T) {
	t.Parallel()
	s := newTestSensor(t, SensorOptions{PixelsX: 8, PixelsY: 8, Timed: true})
	table := []CalibrationPoint{
		{IKrum: 1, NaturalFrequency: 1, Damping: 1},
		{IKrum: 100, NaturalFrequency: 10, Damping: 1},
	}
	require.NoError(t, s.SetCalibration(table))
	table[0].NaturalFrequency = 99

	require.NoError(t, s.StartFrame())
	require.NoError(t, s.FinishFrame())
	// i_krum 20 interpolates to wn = 1 + 19/99*9.
	wn := 1 + 19.0/99*9
	assert.Len(t, s.Response(), int(math.Ceil(8*(1/wn)*100)))
}

func TestImpulseResponse_CriticallyDamped(t *testing.T) {
	t.Parallel()
	response := ImpulseResponse(interpolateCalibration(defaultCalibration, 20), 100)

	require.Len(t, response, 200)
	assert.InDelta(t, 1, floats.Max(response), 1e-12)
	assert.Equal(t, 25, floats.MaxIdx(response))
	assert.Zero(t, response[0])
	assert.GreaterOrEqual(t, floats.Min(response), 0.0)
}

func TestImpulseResponse_Branches(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		params   ResponseParameters
		length   int
		negative bool
	}{
		{"overdamped", ResponseParameters{NaturalFrequency: 0.8, Damping: 1.6}, 2849, false},
		{"underdamped", ResponseParameters{NaturalFrequency: 12, Damping: 0.7, DampedFrequency: 8.5697}, 96, true},
		{"underdamped without wd", ResponseParameters{NaturalFrequency: 12, Damping: 0.7}, 96, true},
		{"undamped", ResponseParameters{NaturalFrequency: 4}, 200, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			response := ImpulseResponse(tc.params, 100)
			assert.Len(t, response, tc.length)
			assert.InDelta(t, 1, floats.Max(response), 1e-12)
			assert.Equal(t, tc.negative, floats.Min(response) < 0)
		})
	}
}

func TestImpulseResponse_ShorterAtHigherGain(t *testing.T) {
	t.Parallel()
	previous := len(ImpulseResponse(interpolateCalibration(defaultCalibration, MinIKrum), 100))
	for _, gain := range []int{10, 20, 50, 70, MaxIKrum} {
		n := len(ImpulseResponse(interpolateCalibration(defaultCalibration, gain), 100))
		assert.Less(t, n, previous, "i_krum %d", gain)
		previous = n
	}
}

func TestLoadCalibrationFile(t *testing.T) {
	t.Parallel()
	filename := writeConfig(t, "calibration.yaml", `
- i_krum: 100
  natural_frequency: 10
  damping: 0.8
  damped_frequency: 6
- i_krum: 1
  natural_frequency: 1
  damping: 1.2
`)
	table, err := LoadCalibrationFile(filename)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, 1, table[0].IKrum)
	assert.Equal(t, 6.0, table[1].DampedFrequency)

	_, err = LoadCalibrationFile(writeConfig(t, "short.json", `[{"i_krum": 1, "natural_frequency": 1, "damping": 1}]`))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
