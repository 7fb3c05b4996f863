package medipix

// inject returns the pixels that register a count for one photon in the
// non timed modes. It only reads sensor state.
func (s *Sensor) inject(energy, x, y float64, radius int) [][2]int {
	switch s.mode {
	case ChargeSummingMode:
		return s.injectChargeSumming(energy, x, y)
	default:
		return s.injectSinglePixel(energy, x, y, radius)
	}
}

// injectSinglePixel counts every pixel of the neighborhood whose share of
// the charge is above its th0. One photon may be counted by several pixels.
func (s *Sensor) injectSinglePixel(energy, x, y float64, radius int) [][2]int {
	var hits [][2]int
	for _, p := range s.neighborhood(x, y, radius) {
		cx, cy := s.PixelCenter(p[0], p[1])
		deposited := s.SharedEnergy(x, y, energy, cx, cy)
		if deposited > s.th0At(p[0], p[1]) {
			hits = append(hits, p)
		}
	}
	return hits
}

// injectChargeSumming sums the charge of the 2x2 cluster formed by the
// pixel containing the hit and its neighbours towards the quadrant of the hit. Members below
// their th0 are not summed. The hit pixel is counted once if the sum is
// above its th1.
func (s *Sensor) injectChargeSumming(energy, x, y float64) [][2]int {
	hi, hj := s.containingPixel(x, y)
	if !s.inside(hi, hj) {
		return nil
	}
	cx, cy := s.PixelCenter(hi, hj)
	di, dj := 1, 1
	if x < cx {
		di = -1
	}
	if y < cy {
		dj = -1
	}

	cluster := [4][2]int{{hi, hj}, {hi + di, hj}, {hi, hj + dj}, {hi + di, hj + dj}}
	sum := 0.0
	for _, p := range cluster {
		if !s.inside(p[0], p[1]) {
			continue
		}
		px, py := s.PixelCenter(p[0], p[1])
		deposited := s.SharedEnergy(x, y, energy, px, py)
		if deposited > s.th0At(p[0], p[1]) {
			sum += deposited
		}
	}
	if sum > s.th1At(hi, hj) {
		return [][2]int{{hi, hj}}
	}
	return nil
}
