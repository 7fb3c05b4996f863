package medipix

import (
	"cmp"
	"errors"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

var ErrNotTimed = errors.New("sensor is not timed")

// Event is the energy (keV) deposited in one pixel at a given time (us).
type Event struct {
	Time   float64
	Energy float64
}

func compareEvents(a, b Event) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.Energy, b.Energy)
}

// recordEvents stores the charge share of every neighborhood pixel. No
// threshold is applied here, counting happens when the frame is finished.
func (s *Sensor) recordEvents(energy, x, y float64, radius int, time float64) {
	pixels := s.neighborhood(x, y, radius)
	deposits := make([]Event, len(pixels))
	for k, p := range pixels {
		cx, cy := s.PixelCenter(p[0], p[1])
		deposits[k] = Event{Time: time, Energy: s.SharedEnergy(x, y, energy, cx, cy)}
	}

	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	for k, p := range pixels {
		off := s.offset(p[0], p[1])
		s.events[off] = append(s.events[off], deposits[k])
	}
}

func (s *Sensor) startIndex(t float64) int {
	return int(math.Floor(t * float64(s.samplesPerUs)))
}

// signalLength is ceil(max event time * sample rate) + response length.
func (s *Sensor) signalLength() int {
	return int(math.Ceil(s.maxTime*float64(s.samplesPerUs))) + len(s.response)
}

// trace convolves events with the response on samples [lo, lo+n).
func (s *Sensor) trace(events []Event, lo, n int) []float64 {
	out := make([]float64, n)
	for _, e := range events {
		start := s.startIndex(e.Time) - lo
		for k, r := range s.response {
			idx := start + k
			if idx < 0 {
				continue
			}
			if idx >= n {
				break
			}
			out[idx] += e.Energy * r
		}
	}
	return out
}

// countCrossings counts the samples where the trace goes from strictly
// below to strictly above the threshold.
func countCrossings(trace []float64, threshold float64) int {
	crossings := 0
	for t := 1; t < len(trace); t++ {
		if trace[t-1] < threshold && trace[t] > threshold {
			crossings++
		}
	}
	return crossings
}

// pixelCrossings counts the crossings of the trace of a sorted event list.
// Groups of events separated by more than a response length only see zeros
// in between, so each group is convolved on its own window.
func (s *Sensor) pixelCrossings(events []Event, threshold float64, length int) int {
	width := len(s.response)
	crossings := 0
	for a := 0; a < len(events); {
		first := s.startIndex(events[a].Time)
		last := first
		b := a + 1
		for b < len(events) && s.startIndex(events[b].Time) <= last+width {
			last = max(last, s.startIndex(events[b].Time))
			b++
		}

		lo := max(first-1, 0)
		hi := min(last+width+1, length)
		if hi > lo {
			crossings += countCrossings(s.trace(events[a:b], lo, hi-lo), threshold)
		}
		a = b
	}
	return crossings
}

// countPileup counts the threshold crossings of every pixel and adds them
// to the image. Called with frameMu held for writing.
func (s *Sensor) countPileup() error {
	length := s.signalLength()
	counts := make([]uint32, len(s.image))

	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < s.nx; i++ {
		g.Go(func() error {
			for j := 0; j < s.ny; j++ {
				off := s.offset(i, j)
				events := s.events[off]
				if len(events) == 0 {
					continue
				}
				slices.SortFunc(events, compareEvents)
				counts[off] = uint32(s.pixelCrossings(events, s.countingThreshold(i, j), length))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	for off, c := range counts {
		s.image[off] += c
	}
	return nil
}

// PixelSignal returns the preamplifier output of pixel (i, j) for the last
// finished frame, sampled at SamplesPerUs.
func (s *Sensor) PixelSignal(i, j int) ([]float64, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if err := s.checkReadout("pixel signal"); err != nil {
		return nil, err
	}
	if !s.timed {
		return nil, ErrNotTimed
	}
	if err := s.checkPixel(i, j); err != nil {
		return nil, err
	}

	s.eventsMu.Lock()
	events := slices.Clone(s.events[s.offset(i, j)])
	s.eventsMu.Unlock()
	slices.SortFunc(events, compareEvents)

	s.imageMu.Lock()
	length := s.signalLength()
	s.imageMu.Unlock()
	return s.trace(events, 0, length), nil
}

// PixelEvents returns a copy of the events recorded for pixel (i, j).
func (s *Sensor) PixelEvents(i, j int) ([]Event, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if !s.timed {
		return nil, ErrNotTimed
	}
	if err := s.checkPixel(i, j); err != nil {
		return nil, err
	}
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	return slices.Clone(s.events[s.offset(i, j)]), nil
}

// Response returns a copy of the impulse response built by the last
// FinishFrame in timed mode.
func (s *Sensor) Response() []float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return slices.Clone(s.response)
}
