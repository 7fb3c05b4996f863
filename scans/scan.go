package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/next-exp/medipix_go/pkg/plots"
	"github.com/next-exp/medipix_go/pkg/store"
	"github.com/spf13/cobra"
)

// curve is the result of scanning one sensor setup.
type curve struct {
	Label  string
	Config medipix.Configuration
	Points []store.ScanPoint
}

func (c curve) series(y func(store.ScanPoint) float64) plots.Series {
	s := plots.Series{Label: c.Label}
	for _, p := range c.Points {
		s.X = append(s.X, p.Value)
		s.Y = append(s.Y, y(p))
	}
	return s
}

func totalCounts(p store.ScanPoint) float64 { return float64(p.TotalCounts) }

// countsPerPhoton is the detected fraction, 1 without losses or double
// counting.
func countsPerPhoton(p store.ScanPoint) float64 {
	if p.RealPhotons == 0 {
		return 0
	}
	return float64(p.TotalCounts) / float64(p.RealPhotons)
}

// countFrame takes one frame at the given flux density. Every call draws
// the same photons, so successive scan points only differ by the scanned
// parameter.
func countFrame(sensor *medipix.Sensor, c medipix.Configuration, flux float64) (uint64, uint64, error) {
	exposure := medipix.ExposureFromConfig(c, flux)
	if err := sensor.StartFrame(); err != nil {
		return 0, 0, err
	}
	if _, err := exposure.Run(sensor, rand.NewPCG(c.Seed, c.Seed+2), c.NumWorkers); err != nil {
		sensor.FinishFrame()
		return 0, 0, err
	}
	if err := sensor.FinishFrame(); err != nil {
		return 0, 0, err
	}
	counts, err := sensor.TotalCounts()
	return sensor.RealPhotons(), counts, err
}

func firstFlux(c medipix.Configuration) (float64, error) {
	if len(c.FluxDensities) == 0 {
		return 0, fmt.Errorf("no flux densities configured")
	}
	return c.FluxDensities[0], nil
}

// record stores every curve as its own run.
func record(cmd *cobra.Command, c medipix.Configuration, kind string, curves []curve) error {
	if noDB, _ := cmd.Flags().GetBool("no-db"); noDB {
		return nil
	}
	db, err := store.ConnectFromConfig(c)
	if err != nil {
		return err
	}
	defer db.Close()
	return recordCurves(db, kind, curves)
}

func recordCurves(db *store.Store, kind string, curves []curve) error {
	for _, cv := range curves {
		run, err := db.NewRun(kind, cv.Config)
		if err != nil {
			return err
		}
		points := make([]store.ScanPoint, len(cv.Points))
		for k, p := range cv.Points {
			p.RunID = run.RunID
			points[k] = p
		}
		if err := db.AddScanPoints(points); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Stored %s (%d points) as run %s", cv.Label, len(points), run.RunID), kind)
	}
	return nil
}

func plotPath(c medipix.Configuration, name string) (string, bool, error) {
	if c.PlotDir == "" {
		return "", false, nil
	}
	if err := os.MkdirAll(c.PlotDir, 0o755); err != nil {
		return "", false, err
	}
	return filepath.Join(c.PlotDir, name), true, nil
}
