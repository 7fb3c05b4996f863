package main

import (
	"fmt"
	"os"
	"path/filepath"

	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/next-exp/medipix_go/pkg/plots"
	"github.com/spf13/cobra"
)

func newSignalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Preamplifier output of one pixel",
		Long: `Take one timed frame at the first flux density and dump the trace of a
pixel as float32 raw data, plotted against time.

Examples:
  scans signal --config medipix.yaml --pixel 128,128`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			pixel, _ := cmd.Flags().GetIntSlice("pixel")
			if len(pixel) != 2 {
				return fmt.Errorf("--pixel needs two indices, got %v", pixel)
			}
			c.Timed = true
			signal, err := pixelSignal(c, pixel[0], pixel[1])
			if err != nil {
				return err
			}

			filename, ok, err := plotPath(c, fmt.Sprintf("signal_%d_%d.png", pixel[0], pixel[1]))
			if err != nil || !ok {
				return err
			}
			series := plots.Series{Label: fmt.Sprintf("pixel (%d, %d)", pixel[0], pixel[1])}
			for k, v := range signal {
				series.X = append(series.X, float64(k)/float64(c.SamplesPerUs))
				series.Y = append(series.Y, v)
			}
			return plots.Curves(filename, "Pixel signal", "Time (us)", "Amplitude (keV)", []plots.Series{series})
		},
	}
	cmd.Flags().IntSlice("pixel", []int{0, 0}, "Pixel indices i,j")
	return cmd
}

func pixelSignal(c medipix.Configuration, i, j int) ([]float64, error) {
	flux, err := firstFlux(c)
	if err != nil {
		return nil, err
	}
	sensor, err := medipix.NewSensorFromConfig(c)
	if err != nil {
		return nil, err
	}
	if _, _, err := countFrame(sensor, c, flux); err != nil {
		return nil, err
	}
	signal, err := sensor.PixelSignal(i, j)
	if err != nil {
		return nil, err
	}
	if c.RawDir != "" {
		if err := os.MkdirAll(c.RawDir, 0o755); err != nil {
			return nil, err
		}
		filename := filepath.Join(c.RawDir, fmt.Sprintf("signal_%d_%d.raw", i, j))
		if err := sensor.SavePixelSignal(filename, i, j); err != nil {
			return nil, err
		}
	}
	return signal, nil
}
