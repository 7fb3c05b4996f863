package medipix

import (
	"fmt"
	"sync"
)

// RunPhotons injects photons from a channel with numWorkers workers until
// the channel is closed. The first error is returned, the remaining photons
// are still drained so the sender never blocks.
func RunPhotons(s *Sensor, photons <-chan Photon, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	errs := make(chan error, numWorkers)
	var wg sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := worker(id, s, photons); err != nil {
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

func worker(id int, s *Sensor, photons <-chan Photon) error {
	var firstErr error
	processed := 0
	for p := range photons {
		if firstErr != nil {
			continue
		}
		if err := addPhoton(id, s, p); err != nil {
			firstErr = err
		}
		processed++
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Worker %d processed %d photons", id, processed), "workers")
	}
	return firstErr
}

func addPhoton(id int, s *Sensor, p Photon) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d recovered from panic: %v", id, r)
			logger.Error(err.Error())
		}
	}()
	if err := s.AddPhoton(p.Energy, p.X, p.Y, p.Radius, p.Time); err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}
	return nil
}
