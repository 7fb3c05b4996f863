package main

import (
	"fmt"

	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/next-exp/medipix_go/pkg/store"
	"github.com/spf13/cobra"
)

func newCalibrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Manage the i_krum calibration table in the database",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "import <file>",
			Short: "Replace the stored calibration with a json or yaml table",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := loadConfiguration(cmd)
				if err != nil {
					return err
				}
				table, err := medipix.LoadCalibrationFile(args[0])
				if err != nil {
					return err
				}
				db, err := store.ConnectFromConfig(c)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.SaveCalibration(table); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d calibration points\n", len(table))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the calibration in use",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := loadConfiguration(cmd)
				if err != nil {
					return err
				}
				db, err := store.ConnectFromConfig(c)
				if err != nil {
					return err
				}
				defer db.Close()
				table, err := db.LoadCalibration()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%6s %10s %8s %10s\n", "i_krum", "wn", "damping", "wd")
				for _, p := range table {
					fmt.Fprintf(out, "%6d %10.4f %8.4f %10.4f\n", p.IKrum, p.NaturalFrequency, p.Damping, p.DampedFrequency)
				}
				return nil
			},
		},
	)
	return cmd
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List the stored scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}
			db, err := store.ConnectFromConfig(c)
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.Runs()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				points, err := db.ScanPoints(r.RunID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %-10s %s timed=%t points=%d\n", r.RunID, r.Kind, r.Mode, r.Timed, len(points))
			}
			return nil
		},
	}
}
