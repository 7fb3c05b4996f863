package medipix

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
)

// FrameState is the shutter state of a sensor.
type FrameState int

const (
	Closed FrameState = iota
	Open
)

func (f FrameState) String() string {
	switch f {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// SensorOptions are fixed at construction. Zero values select the
// defaults of a 256x256 Medipix3 with 55 um pitch.
type SensorOptions struct {
	Mode         Mode
	Timed        bool
	PixelsX      int
	PixelsY      int
	PixelPitch   float64
	SamplesPerUs int
	Seed         uint64
}

// Sensor simulates a pixelated photon counting detector.
//
// A frame is opened with StartFrame, photons are injected with AddPhoton
// (safe for concurrent use) and the frame is closed with FinishFrame. In
// timed mode the photons are stored as events and counted when the frame
// is closed, so pulse pile-up on the preamplifier is reproduced.
type Sensor struct {
	mode         Mode
	timed        bool
	nx, ny       int
	pitch        float64
	samplesPerUs int
	src          *rand.PCG

	// Only changed while the shutter is closed.
	psfSigma      float64
	th0, th1      float64
	th0Dispersion []float64
	th1Dispersion []float64
	iKrum         int
	calibration   []CalibrationPoint

	// Held for reading by every AddPhoton call and for writing by
	// state transitions and configuration changes.
	frameMu sync.RWMutex
	state   FrameState

	imageMu     sync.Mutex
	image       []uint32
	realPhotons uint64
	maxTime     float64

	eventsMu sync.Mutex
	events   [][]Event

	response []float64
}

func NewSensor(opts SensorOptions) (*Sensor, error) {
	if opts.PixelsX == 0 {
		opts.PixelsX = 256
	}
	if opts.PixelsY == 0 {
		opts.PixelsY = 256
	}
	if opts.PixelPitch == 0 {
		opts.PixelPitch = 55
	}
	if opts.SamplesPerUs == 0 {
		opts.SamplesPerUs = DefaultSamplesPerUs
	}
	if opts.PixelsX < 0 {
		return nil, argumentError("pixels_x", opts.PixelsX, "must be positive")
	}
	if opts.PixelsY < 0 {
		return nil, argumentError("pixels_y", opts.PixelsY, "must be positive")
	}
	if !(opts.PixelPitch > 0) || math.IsInf(opts.PixelPitch, 0) {
		return nil, argumentError("pixel_pitch", opts.PixelPitch, "must be positive")
	}
	if opts.SamplesPerUs < 0 {
		return nil, argumentError("samples_per_us", opts.SamplesPerUs, "must be positive")
	}
	if opts.Mode != SinglePixelMode && opts.Mode != ChargeSummingMode {
		return nil, argumentError("mode", opts.Mode, "unknown counting mode")
	}

	n := opts.PixelsX * opts.PixelsY
	s := &Sensor{
		mode:          opts.Mode,
		timed:         opts.Timed,
		nx:            opts.PixelsX,
		ny:            opts.PixelsY,
		pitch:         opts.PixelPitch,
		samplesPerUs:  opts.SamplesPerUs,
		src:           rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15),
		psfSigma:      13,
		th0:           6,
		th1:           6,
		th0Dispersion: make([]float64, n),
		th1Dispersion: make([]float64, n),
		iKrum:         DefaultIKrum,
		calibration:   DefaultCalibration(),
		state:         Closed,
		image:         make([]uint32, n),
	}
	if s.timed {
		s.events = make([][]Event, n)
	}
	return s, nil
}

// StartFrame opens the shutter, clearing the image, the events and the
// photon counter.
func (s *Sensor) StartFrame() error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.state != Closed {
		return stateError("start frame", s.state)
	}

	s.imageMu.Lock()
	clear(s.image)
	s.realPhotons = 0
	s.maxTime = 0
	s.imageMu.Unlock()

	s.eventsMu.Lock()
	for k := range s.events {
		s.events[k] = s.events[k][:0]
	}
	s.eventsMu.Unlock()

	s.state = Open
	if configuration.Verbosity > 2 {
		logger.Info("frame started", "frame")
	}
	return nil
}

// FinishFrame closes the shutter. In timed mode the preamplifier response
// is rebuilt and every pixel trace is counted before the call returns. It
// waits for AddPhoton calls still in flight.
func (s *Sensor) FinishFrame() error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.state != Open {
		return stateError("finish frame", s.state)
	}

	if s.timed {
		params := interpolateCalibration(s.calibration, s.iKrum)
		s.response = ImpulseResponse(params, s.samplesPerUs)
		if err := s.countPileup(); err != nil {
			return fmt.Errorf("error counting pile-up: %w", err)
		}
	}

	s.state = Closed
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("frame finished: %d photons, %d counts", s.realPhotons, s.totalCounts())
		logger.Info(message, "frame")
	}
	return nil
}

// State returns the current shutter state.
func (s *Sensor) State() FrameState {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.state
}

// AddPhoton injects one photon of energy (keV) at (x, y) (um), spreading
// its charge over the 2*radius x 2*radius pixels around the hit. time (us)
// is only used in timed mode.
func (s *Sensor) AddPhoton(energy, x, y float64, radius int, time float64) error {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if s.state != Open {
		return stateError("add photon", s.state)
	}
	if radius < 0 {
		return argumentError("radius", radius, "must not be negative")
	}
	if s.timed && (time < 0 || math.IsNaN(time)) {
		return argumentError("time", time, "must not be negative")
	}

	s.imageMu.Lock()
	s.realPhotons++
	if s.timed {
		s.maxTime = max(s.maxTime, time)
	}
	s.imageMu.Unlock()

	if s.timed {
		s.recordEvents(energy, x, y, radius, time)
		return nil
	}

	hits := s.inject(energy, x, y, radius)
	if len(hits) == 0 {
		return nil
	}
	s.imageMu.Lock()
	for _, p := range hits {
		s.image[s.offset(p[0], p[1])]++
	}
	s.imageMu.Unlock()
	return nil
}

func (s *Sensor) checkReadout(op string) error {
	if s.state != Closed {
		return stateError(op, s.state)
	}
	return nil
}

func (s *Sensor) checkPixel(i, j int) error {
	if !s.inside(i, j) {
		return argumentError("pixel", [2]int{i, j}, fmt.Sprintf("outside %dx%d sensor", s.nx, s.ny))
	}
	return nil
}

// PixelValue returns the counts of pixel (i, j).
func (s *Sensor) PixelValue(i, j int) (uint32, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if err := s.checkReadout("pixel value"); err != nil {
		return 0, err
	}
	if err := s.checkPixel(i, j); err != nil {
		return 0, err
	}
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	return s.image[s.offset(i, j)], nil
}

// TotalCounts returns the sum over the image.
func (s *Sensor) TotalCounts() (uint64, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if err := s.checkReadout("total counts"); err != nil {
		return 0, err
	}
	return s.totalCounts(), nil
}

func (s *Sensor) totalCounts() uint64 {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	var counts uint64
	for _, c := range s.image {
		counts += uint64(c)
	}
	return counts
}

// Image returns a copy of the count image, indexed i*ny + j.
func (s *Sensor) Image() ([]uint32, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if err := s.checkReadout("image"); err != nil {
		return nil, err
	}
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	return slices.Clone(s.image), nil
}

func (s *Sensor) setWhileClosed(op string, apply func()) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.state != Closed {
		return stateError(op, s.state)
	}
	apply()
	return nil
}

func (s *Sensor) SetPsfSigma(sigma float64) error {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return argumentError("psf sigma", sigma, "must be positive")
	}
	return s.setWhileClosed("set psf sigma", func() { s.psfSigma = sigma })
}

func (s *Sensor) SetTh0(th float64) error {
	if math.IsNaN(th) {
		return argumentError("th0", th, "must be a number")
	}
	return s.setWhileClosed("set th0", func() { s.th0 = th })
}

func (s *Sensor) SetTh1(th float64) error {
	if math.IsNaN(th) {
		return argumentError("th1", th, "must be a number")
	}
	return s.setWhileClosed("set th1", func() { s.th1 = th })
}

// SetIKrum sets the preamplifier feedback setting. Values outside [1, 100]
// are rejected and leave the current setting unchanged.
func (s *Sensor) SetIKrum(iKrum int) error {
	if err := checkIKrum(iKrum); err != nil {
		return err
	}
	return s.setWhileClosed("set i_krum", func() { s.iKrum = iKrum })
}

// SetCalibration replaces the i_krum calibration table.
func (s *Sensor) SetCalibration(table []CalibrationPoint) error {
	if err := ValidateCalibration(table); err != nil {
		return err
	}
	return s.setWhileClosed("set calibration", func() { s.calibration = slices.Clone(table) })
}

func (s *Sensor) Mode() Mode          { return s.mode }
func (s *Sensor) Timed() bool         { return s.timed }
func (s *Sensor) PixelsX() int        { return s.nx }
func (s *Sensor) PixelsY() int        { return s.ny }
func (s *Sensor) PixelPitch() float64 { return s.pitch }
func (s *Sensor) SamplesPerUs() int   { return s.samplesPerUs }

func (s *Sensor) PsfSigma() float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.psfSigma
}

func (s *Sensor) Th0() float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.th0
}

func (s *Sensor) Th1() float64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.th1
}

func (s *Sensor) IKrum() int {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.iKrum
}

// RealPhotons returns the number of photons injected in the current frame.
func (s *Sensor) RealPhotons() uint64 {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	return s.realPhotons
}

// MaxEventTime returns the latest photon time of the frame in us.
func (s *Sensor) MaxEventTime() float64 {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	return s.maxTime
}
