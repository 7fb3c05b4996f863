package medipix

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Photon is a single interaction handed to Sensor.AddPhoton.
type Photon struct {
	Energy float64 // keV
	X, Y   float64 // um
	Radius int     // pixels
	Time   float64 // us
}

// Interaction decides whether a photon sampled at (x, y) interacts.
type Interaction func(x, y float64) bool

func Homogeneous() Interaction {
	return func(x, y float64) bool { return true }
}

// Edge lets photons through above the line y = m*x + c.
func Edge(m, c float64) Interaction {
	return func(x, y float64) bool { return y > m*x+c }
}

// Frequency modulates the photon density with a sine of the given period
// (um) and phase along the direction (nx, ny). A photon interacts when a
// uniform draw is below sin(2*pi*(n.r)/period + phase).
func Frequency(period, phase, nx, ny float64, seed uint64) Interaction {
	r := math.Hypot(nx, ny)
	nx /= r
	ny /= r
	rng := rand.New(rand.NewPCG(seed, seed+1))
	return func(x, y float64) bool {
		a := nx*x + ny*y
		probability := math.Sin(2*math.Pi*a/period + phase)
		return rng.Float64() < probability
	}
}

// Exposure describes a flat field of monochromatic photons.
type Exposure struct {
	Energy       float64 // keV
	ExposureTime float64 // s
	FluxDensity  float64 // photons / (s mm^2)
	Radius       int
	Interacting  Interaction
}

// NumberOfPhotons is the number of photons hitting an area (mm^2).
func (e Exposure) NumberOfPhotons(area float64) int {
	return int(e.FluxDensity * area * e.ExposureTime)
}

// Duration returns the exposure time in us.
func (e Exposure) Duration() float64 {
	return e.ExposureTime * 1e6
}

// sample draws photon positions over the sensor and arrival times over the
// exposure from one stream, and emits the interacting ones in order.
func (e Exposure) sample(s *Sensor, src rand.Source, emit func(Photon)) int {
	interacting := e.Interacting
	if interacting == nil {
		interacting = Homogeneous()
	}
	distX := distuv.Uniform{Min: s.MinX(), Max: s.MaxX(), Src: src}
	distY := distuv.Uniform{Min: s.MinY(), Max: s.MaxY(), Src: src}
	distT := distuv.Uniform{Min: 0, Max: e.Duration(), Src: src}

	n := e.NumberOfPhotons(s.Area())
	emitted := 0
	for k := 0; k < n; k++ {
		x := distX.Rand()
		y := distY.Rand()
		t := distT.Rand()
		if !interacting(x, y) {
			continue
		}
		emit(Photon{Energy: e.Energy, X: x, Y: y, Radius: e.Radius, Time: t})
		emitted++
	}
	return emitted
}

// Photons returns the photons of the exposure.
func (e Exposure) Photons(s *Sensor, src rand.Source) []Photon {
	var photons []Photon
	e.sample(s, src, func(p Photon) { photons = append(photons, p) })
	return photons
}

// Run samples the exposure and injects the photons with numWorkers workers.
// The frame has to be open. It returns the number of injected photons.
func (e Exposure) Run(s *Sensor, src rand.Source, numWorkers int) (int, error) {
	photons := make(chan Photon, 1024)
	done := make(chan error, 1)
	go func() {
		done <- RunPhotons(s, photons, numWorkers)
	}()

	n := e.sample(s, src, func(p Photon) { photons <- p })
	close(photons)
	return n, <-done
}

// ExposureFromConfig builds the exposure of the configured pattern at a
// given flux density.
func ExposureFromConfig(c Configuration, fluxDensity float64) Exposure {
	e := Exposure{
		Energy:       c.Energy,
		ExposureTime: c.ExposureTime,
		FluxDensity:  fluxDensity,
		Radius:       c.Radius,
	}
	switch c.Pattern {
	case "edge":
		e.Interacting = Edge(c.EdgeSlope, c.EdgeOffset)
	case "frequency":
		e.Interacting = Frequency(c.Period, c.Phase, c.DirectionX, c.DirectionY, c.Seed+1)
	default:
		e.Interacting = Homogeneous()
	}
	return e
}
