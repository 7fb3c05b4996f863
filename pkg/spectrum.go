package medipix

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// RadialSpectrum returns the radially averaged magnitude of the 2D DFT of
// an nx x ny image stored as image[i*ny+j]. Bucket r holds the mean
// |F(u, v)| over the frequencies with floor(sqrt(u^2+v^2)) == r, for
// r = 0..min(nx, ny)/2. Empty buckets are 0.
func RadialSpectrum(image []uint32, nx, ny int) []float64 {
	coeffs := realFFT2(image, nx, ny)
	half := ny/2 + 1

	maxRadius := min(nx, ny) / 2
	sums := make([]float64, maxRadius+1)
	occupancy := make([]int, maxRadius+1)
	for u := 0; u < nx; u++ {
		fu := u
		if u > nx/2 {
			fu = u - nx
		}
		for v := 0; v < half; v++ {
			r := int(math.Sqrt(float64(fu*fu + v*v)))
			if r > maxRadius {
				continue
			}
			sums[r] += cmplx.Abs(coeffs[u*half+v])
			occupancy[r]++
		}
	}

	spectrum := make([]float64, maxRadius+1)
	for r := range spectrum {
		if occupancy[r] > 0 {
			spectrum[r] = sums[r] / float64(occupancy[r])
		}
	}
	return spectrum
}

// realFFT2 is a real-to-complex 2D DFT. The result has nx x (ny/2+1)
// coefficients, the second axis holds the non negative frequencies only.
func realFFT2(image []uint32, nx, ny int) []complex128 {
	half := ny/2 + 1
	out := make([]complex128, nx*half)

	rowFFT := fourier.NewFFT(ny)
	row := make([]float64, ny)
	coeffs := make([]complex128, half)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			row[j] = float64(image[i*ny+j])
		}
		rowFFT.Coefficients(coeffs, row)
		copy(out[i*half:(i+1)*half], coeffs)
	}

	colFFT := fourier.NewCmplxFFT(nx)
	col := make([]complex128, nx)
	for v := 0; v < half; v++ {
		for i := 0; i < nx; i++ {
			col[i] = out[i*half+v]
		}
		colFFT.Coefficients(col, col)
		for i := 0; i < nx; i++ {
			out[i*half+v] = col[i]
		}
	}
	return out
}

// Spectrum returns the radial spectrum of the current image.
func (s *Sensor) Spectrum() ([]float64, error) {
	image, err := s.Image()
	if err != nil {
		return nil, err
	}
	return RadialSpectrum(image, s.nx, s.ny), nil
}
