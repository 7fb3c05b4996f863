package main

import (
	"fmt"

	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/next-exp/medipix_go/pkg/plots"
	"github.com/next-exp/medipix_go/pkg/store"
	"github.com/spf13/cobra"
)

func newThresholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Counts against threshold in single pixel and charge summing modes",
		Long: `Sweep the counting threshold at the first configured flux density.

Single pixel mode sweeps th0. Charge summing mode keeps th0 and sweeps th1.

Examples:
  scans threshold --config medipix.yaml
  scans threshold --config medipix.yaml --from 1 --to 40 --step 0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetFloat64("from")
			to, _ := cmd.Flags().GetFloat64("to")
			step, _ := cmd.Flags().GetFloat64("step")
			thresholds, err := thresholdRange(from, to, step)
			if err != nil {
				return err
			}

			curves, err := thresholdScan(c, thresholds)
			if err != nil {
				return err
			}
			if err := record(cmd, c, "threshold", curves); err != nil {
				return err
			}
			filename, ok, err := plotPath(c, "threshold_scan.png")
			if err != nil || !ok {
				return err
			}
			series := make([]plots.Series, len(curves))
			for k, cv := range curves {
				series[k] = cv.series(totalCounts)
			}
			return plots.Curves(filename, "Threshold scan", "Threshold (keV)", "Counts", series)
		},
	}
	cmd.Flags().Float64("from", 1, "First threshold (keV)")
	cmd.Flags().Float64("to", 40, "Last threshold (keV)")
	cmd.Flags().Float64("step", 1, "Threshold step (keV)")
	return cmd
}

func thresholdRange(from, to, step float64) ([]float64, error) {
	if !(step > 0) || to < from {
		return nil, fmt.Errorf("invalid threshold range %g:%g:%g", from, to, step)
	}
	var thresholds []float64
	for k := 0; ; k++ {
		th := from + float64(k)*step
		if th > to+step*1e-9 {
			break
		}
		thresholds = append(thresholds, th)
	}
	return thresholds, nil
}

func thresholdScan(c medipix.Configuration, thresholds []float64) ([]curve, error) {
	flux, err := firstFlux(c)
	if err != nil {
		return nil, err
	}
	curves := make([]curve, 0, 2)
	for _, mode := range []medipix.Mode{medipix.SinglePixelMode, medipix.ChargeSummingMode} {
		cfg := c
		cfg.Mode = mode
		sensor, err := medipix.NewSensorFromConfig(cfg)
		if err != nil {
			return nil, err
		}

		parameter, set := "th0", sensor.SetTh0
		if mode == medipix.ChargeSummingMode {
			parameter, set = "th1", sensor.SetTh1
		}
		cv := curve{Label: mode.String(), Config: cfg}
		for k, th := range thresholds {
			if err := set(th); err != nil {
				return nil, err
			}
			photons, counts, err := countFrame(sensor, cfg, flux)
			if err != nil {
				return nil, fmt.Errorf("%s at %g keV: %w", parameter, th, err)
			}
			cv.Points = append(cv.Points, store.ScanPoint{
				Step:        k,
				Parameter:   parameter,
				Value:       th,
				RealPhotons: int64(photons),
				TotalCounts: int64(counts),
			})
			if c.Verbosity > 1 {
				logger.Info(fmt.Sprintf("%s %s = %g keV: %d counts", mode, parameter, th, counts), "threshold")
			}
		}
		curves = append(curves, cv)
	}
	return curves, nil
}
