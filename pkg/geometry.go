package medipix

import "math"

// PixelIndex returns the indices of the pixel a position (in um) falls in.
// The result is not clamped, callers have to check the range.
func (s *Sensor) PixelIndex(x, y float64) (int, int) {
	i := int(math.Floor(x/s.pitch + float64(s.nx)/2 - 0.5))
	j := int(math.Floor(y/s.pitch + float64(s.ny)/2 - 0.5))
	return i, j
}

// containingPixel returns the pixel whose square [center-p/2, center+p/2)
// holds the position.
func (s *Sensor) containingPixel(x, y float64) (int, int) {
	i := int(math.Floor(x/s.pitch + float64(s.nx)/2))
	j := int(math.Floor(y/s.pitch + float64(s.ny)/2))
	return i, j
}

// PixelCenter returns the center of pixel (i, j) in um.
func (s *Sensor) PixelCenter(i, j int) (float64, float64) {
	x := s.pitch * (float64(i) - float64(s.nx)/2 + 0.5)
	y := s.pitch * (float64(j) - float64(s.ny)/2 + 0.5)
	return x, y
}

func (s *Sensor) inside(i, j int) bool {
	return i >= 0 && i < s.nx && j >= 0 && j < s.ny
}

func (s *Sensor) offset(i, j int) int {
	return i*s.ny + j
}

func (s *Sensor) MinX() float64 { return -s.pitch * float64(s.nx) / 2 }
func (s *Sensor) MaxX() float64 { return s.pitch * float64(s.nx) / 2 }
func (s *Sensor) MinY() float64 { return -s.pitch * float64(s.ny) / 2 }
func (s *Sensor) MaxY() float64 { return s.pitch * float64(s.ny) / 2 }

// Area returns the sensitive area in mm^2.
func (s *Sensor) Area() float64 {
	return float64(s.nx*s.ny) * (s.pitch * 1e-3) * (s.pitch * 1e-3)
}

// neighborhood lists the in-range pixels of the 2r x 2r window around the
// pixel hit at (x, y).
func (s *Sensor) neighborhood(x, y float64, radius int) [][2]int {
	ci, cj := s.PixelIndex(x, y)
	pixels := make([][2]int, 0, 4*radius*radius)
	for di := -radius; di < radius; di++ {
		for dj := -radius; dj < radius; dj++ {
			i, j := ci+di, cj+dj
			if s.inside(i, j) {
				pixels = append(pixels, [2]int{i, j})
			}
		}
	}
	return pixels
}
