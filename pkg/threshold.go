package medipix

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomThresholdDispersion draws a new normal distributed offset (mean 0,
// the given sigma in keV) for every pixel threshold. Previous offsets are
// overwritten. In charge summing mode th1 gets its own set of offsets.
func (s *Sensor) RandomThresholdDispersion(sigma float64) error {
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return argumentError("dispersion sigma", sigma, "must be a finite non negative value")
	}

	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.state != Closed {
		return stateError("threshold dispersion", s.state)
	}

	// One stream, drawn sequentially, so a fixed seed gives the same map.
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: s.src}
	for k := range s.th0Dispersion {
		s.th0Dispersion[k] = dist.Rand()
	}
	if s.mode == ChargeSummingMode {
		for k := range s.th1Dispersion {
			s.th1Dispersion[k] = dist.Rand()
		}
	}
	if configuration.Verbosity > 1 {
		logger.Info("threshold dispersion sampled", "threshold")
	}
	return nil
}

// Th0At returns the th0 of pixel (i, j) including its dispersion.
func (s *Sensor) Th0At(i, j int) float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.th0At(i, j)
}

// Th1At returns the charge summing threshold of pixel (i, j) including its
// dispersion.
func (s *Sensor) Th1At(i, j int) float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.th1At(i, j)
}

// th0At and th1At expect frameMu to be held.
func (s *Sensor) th0At(i, j int) float64 {
	return s.th0 + s.th0Dispersion[s.offset(i, j)]
}

func (s *Sensor) th1At(i, j int) float64 {
	return s.th1 + s.th1Dispersion[s.offset(i, j)]
}

// countingThreshold is the threshold a pixel trace is compared against in
// timed mode.
func (s *Sensor) countingThreshold(i, j int) float64 {
	if s.mode == ChargeSummingMode {
		return s.th1At(i, j)
	}
	return s.th0At(i, j)
}

// Th0Dispersion returns a copy of the th0 offsets.
func (s *Sensor) Th0Dispersion() []float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return append([]float64(nil), s.th0Dispersion...)
}

// Th1Dispersion returns a copy of the th1 offsets.
func (s *Sensor) Th1Dispersion() []float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return append([]float64(nil), s.th1Dispersion...)
}
