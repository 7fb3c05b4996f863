package medipix

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultSamplesPerUs = 100

	// Length of the sampled response in units of the characteristic time.
	responseTimescales = 8.0
	criticalTolerance  = 1e-9
)

// characteristicTime returns the slowest decay time of the response in us.
func characteristicTime(p ResponseParameters) float64 {
	wn, d := p.NaturalFrequency, p.Damping
	switch {
	case d <= 0:
		return 1 / wn
	case math.Abs(d-1) <= criticalTolerance:
		return 1 / wn
	case d < 1:
		return 1 / (d * wn)
	default:
		return 1 / (wn * (d - math.Sqrt(d*d-1)))
	}
}

// ImpulseResponse samples the impulse response of a second order system
// with the given parameters at samplesPerUs and normalises its peak to 1.
func ImpulseResponse(p ResponseParameters, samplesPerUs int) []float64 {
	wn, d := p.NaturalFrequency, p.Damping
	rate := float64(samplesPerUs)

	n := int(math.Ceil(responseTimescales * characteristicTime(p) * rate))
	if n < 2 {
		n = 2
	}
	response := make([]float64, n)

	switch {
	case d <= 0:
		// Undamped, the pulse never decays within the window.
		for k := range response {
			t := float64(k) / rate
			response[k] = wn * math.Sin(wn*t)
		}
	case math.Abs(d-1) <= criticalTolerance:
		for k := range response {
			t := float64(k) / rate
			response[k] = wn * wn * t * math.Exp(-wn*t)
		}
	case d < 1:
		wd := p.DampedFrequency
		if wd <= 0 {
			wd = wn * math.Sqrt(1-d*d)
		}
		for k := range response {
			t := float64(k) / rate
			response[k] = wn * wn / wd * math.Exp(-d*wn*t) * math.Sin(wd*t)
		}
	default:
		root := math.Sqrt(d*d - 1)
		s1 := wn * (d - root)
		s2 := wn * (d + root)
		for k := range response {
			t := float64(k) / rate
			response[k] = wn / (2 * root) * (math.Exp(-s1*t) - math.Exp(-s2*t))
		}
	}

	if peak := floats.Max(response); peak > 0 {
		floats.Scale(1/peak, response)
	}
	return response
}
