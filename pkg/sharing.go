package medipix

import "math"

// SharedEnergy returns the energy collected by the pixel centered at
// (cx, cy) from a point deposit of energy at (x, y). The charge cloud is a
// 2D gaussian with the sensor PSF sigma, integrated over the square pixel:
//
//	E/4 * [erf((cx+p/2-x)/(s*sqrt2)) - erf((cx-p/2-x)/(s*sqrt2))]
//	    * [erf((cy+p/2-y)/(s*sqrt2)) - erf((cy-p/2-y)/(s*sqrt2))]
func (s *Sensor) SharedEnergy(x, y, energy, cx, cy float64) float64 {
	return sharedEnergy(x, y, energy, cx, cy, s.pitch, s.psfSigma)
}

func sharedEnergy(x, y, energy, cx, cy, pitch, sigma float64) float64 {
	norm := sigma * math.Sqrt2
	half := pitch / 2

	fx := math.Erf((cx+half-x)/norm) - math.Erf((cx-half-x)/norm)
	fy := math.Erf((cy+half-y)/norm) - math.Erf((cy-half-y)/norm)

	return 0.25 * energy * fx * fy
}
