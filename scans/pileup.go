package main

import (
	"fmt"

	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/next-exp/medipix_go/pkg/plots"
	"github.com/next-exp/medipix_go/pkg/store"
	"github.com/spf13/cobra"
)

func newPileupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pileup",
		Short: "Counts per photon against flux density for several i_krum settings",
		Long: `Take one timed frame per configured flux density and i_krum setting.

Slow preamplifiers (low i_krum) merge pulses at lower flux densities. An
untimed curve is added as the reference without pile-up.

Examples:
  scans pileup --config medipix.yaml --ikrum 1,20,100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			iKrums, _ := cmd.Flags().GetIntSlice("ikrum")
			curves, err := pileupScan(c, iKrums)
			if err != nil {
				return err
			}
			if err := record(cmd, c, "pileup", curves); err != nil {
				return err
			}
			filename, ok, err := plotPath(c, "pileup_scan.png")
			if err != nil || !ok {
				return err
			}
			series := make([]plots.Series, len(curves))
			for k, cv := range curves {
				series[k] = cv.series(countsPerPhoton)
			}
			return plots.Curves(filename, "Pile-up", "Flux density (photons / s mm^2)", "Counts per photon", series)
		},
	}
	cmd.Flags().IntSlice("ikrum", []int{1, 20, 100}, "i_krum settings")
	return cmd
}

func pileupScan(c medipix.Configuration, iKrums []int) ([]curve, error) {
	if len(c.FluxDensities) == 0 {
		return nil, fmt.Errorf("no flux densities configured")
	}
	setups := []medipix.Configuration{}
	reference := c
	reference.Timed = false
	setups = append(setups, reference)
	for _, g := range iKrums {
		cfg := c
		cfg.Timed = true
		cfg.IKrum = g
		setups = append(setups, cfg)
	}

	curves := make([]curve, 0, len(setups))
	for _, cfg := range setups {
		sensor, err := medipix.NewSensorFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		label := "untimed"
		if cfg.Timed {
			label = fmt.Sprintf("i_krum %d", cfg.IKrum)
		}
		cv := curve{Label: label, Config: cfg}
		for k, flux := range cfg.FluxDensities {
			photons, counts, err := countFrame(sensor, cfg, flux)
			if err != nil {
				return nil, fmt.Errorf("%s at flux %g: %w", label, flux, err)
			}
			cv.Points = append(cv.Points, store.ScanPoint{
				Step:        k,
				Parameter:   "flux",
				Value:       flux,
				RealPhotons: int64(photons),
				TotalCounts: int64(counts),
			})
			if c.Verbosity > 1 {
				logger.Info(fmt.Sprintf("%s flux %g: %d photons, %d counts", label, flux, photons, counts), "pileup")
			}
		}
		curves = append(curves, cv)
	}
	return curves, nil
}
