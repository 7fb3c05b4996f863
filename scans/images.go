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

func newImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "Count images and radial spectra for every flux density",
		Long: `Take one frame per configured flux density with the configured exposure
pattern (homogeneous, edge or frequency) and keep the image and its radial
spectrum as raw files (raw_dir) and plots (plot_dir).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			cv, spectra, err := fluxImages(c)
			if err != nil {
				return err
			}
			if err := record(cmd, c, "images", []curve{cv}); err != nil {
				return err
			}
			filename, ok, err := plotPath(c, "spectra.png")
			if err != nil || !ok {
				return err
			}
			return plots.Spectrum(filename, fmt.Sprintf("Radial spectrum (%s)", c.Pattern), spectra)
		},
	}
}

func fluxImages(c medipix.Configuration) (curve, []plots.Series, error) {
	sensor, err := medipix.NewSensorFromConfig(c)
	if err != nil {
		return curve{}, nil, err
	}
	if c.RawDir != "" {
		if err := os.MkdirAll(c.RawDir, 0o755); err != nil {
			return curve{}, nil, err
		}
	}

	cv := curve{Label: c.Pattern, Config: c}
	var spectra []plots.Series
	src := rand.NewPCG(c.Seed, c.Seed+2)
	for k, flux := range c.FluxDensities {
		if err := sensor.StartFrame(); err != nil {
			return cv, nil, err
		}
		if _, err := medipix.ExposureFromConfig(c, flux).Run(sensor, src, c.NumWorkers); err != nil {
			sensor.FinishFrame()
			return cv, nil, err
		}
		if err := sensor.FinishFrame(); err != nil {
			return cv, nil, err
		}

		image, err := sensor.Image()
		if err != nil {
			return cv, nil, err
		}
		spectrum := medipix.RadialSpectrum(image, c.PixelsX, c.PixelsY)
		counts, err := sensor.TotalCounts()
		if err != nil {
			return cv, nil, err
		}
		cv.Points = append(cv.Points, store.ScanPoint{
			Step:        k,
			Parameter:   "flux",
			Value:       flux,
			RealPhotons: int64(sensor.RealPhotons()),
			TotalCounts: int64(counts),
		})
		spectra = append(spectra, plots.RadiusSeries(fmt.Sprintf("%g", flux), spectrum))

		if c.RawDir != "" {
			if err := sensor.SaveImage(filepath.Join(c.RawDir, fmt.Sprintf("image_%d.raw", k))); err != nil {
				return cv, nil, err
			}
			if err := sensor.SaveSpectrum(filepath.Join(c.RawDir, fmt.Sprintf("spectrum_%d.raw", k))); err != nil {
				return cv, nil, err
			}
		}
		if filename, ok, err := plotPath(c, fmt.Sprintf("image_%d.png", k)); err != nil {
			return cv, nil, err
		} else if ok {
			if err := plots.Image(filename, fmt.Sprintf("Flux %g", flux), image, c.PixelsX, c.PixelsY); err != nil {
				return cv, nil, err
			}
		}
	}
	return cv, spectra, nil
}
