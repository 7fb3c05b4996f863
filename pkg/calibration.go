package medipix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinIKrum     = 1
	MaxIKrum     = 100
	DefaultIKrum = 20
)

// CalibrationPoint holds the preamplifier parameters measured at one
// i_krum setting. Frequencies are in rad/us.
type CalibrationPoint struct {
	IKrum            int     `db:"IKrum" json:"i_krum" yaml:"i_krum"`
	NaturalFrequency float64 `db:"NaturalFrequency" json:"natural_frequency" yaml:"natural_frequency"`
	Damping          float64 `db:"Damping" json:"damping" yaml:"damping"`
	DampedFrequency  float64 `db:"DampedFrequency" json:"damped_frequency" yaml:"damped_frequency"`
}

// ResponseParameters describe a second order front-end.
type ResponseParameters struct {
	NaturalFrequency float64
	Damping          float64
	DampedFrequency  float64
}

// Low i_krum discharges slowly (overdamped, long tail), i_krum 20 is
// critically damped with a ~1 us pulse, high settings ring slightly.
var defaultCalibration = []CalibrationPoint{
	{IKrum: 1, NaturalFrequency: 0.8, Damping: 1.6, DampedFrequency: 0},
	{IKrum: 10, NaturalFrequency: 2.0, Damping: 1.3, DampedFrequency: 0},
	{IKrum: 20, NaturalFrequency: 4.0, Damping: 1.0, DampedFrequency: 0},
	{IKrum: 50, NaturalFrequency: 7.0, Damping: 0.85, DampedFrequency: 3.6875},
	{IKrum: 70, NaturalFrequency: 9.0, Damping: 0.75, DampedFrequency: 5.9529},
	{IKrum: 100, NaturalFrequency: 12.0, Damping: 0.7, DampedFrequency: 8.5697},
}

// DefaultCalibration returns a copy of the built-in i_krum table.
func DefaultCalibration() []CalibrationPoint {
	return slices.Clone(defaultCalibration)
}

// LoadCalibrationFile reads a calibration table from a JSON or YAML file.
func LoadCalibrationFile(filename string) ([]CalibrationPoint, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	var table []CalibrationPoint
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &table)
	default:
		err = json.Unmarshal(data, &table)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", filename, err)
	}
	slices.SortFunc(table, func(a, b CalibrationPoint) int { return a.IKrum - b.IKrum })
	return table, ValidateCalibration(table)
}

func checkIKrum(iKrum int) error {
	if iKrum < MinIKrum || iKrum > MaxIKrum {
		return argumentError("i_krum", iKrum, fmt.Sprintf("must be in [%d, %d]", MinIKrum, MaxIKrum))
	}
	return nil
}

// ValidateCalibration checks that a table is sorted by i_krum, has no
// duplicates, covers the full i_krum range and has usable frequencies.
func ValidateCalibration(table []CalibrationPoint) error {
	if len(table) == 0 {
		return argumentError("calibration", len(table), "table is empty")
	}
	if table[0].IKrum > MinIKrum || table[len(table)-1].IKrum < MaxIKrum {
		return argumentError("calibration", fmt.Sprintf("[%d, %d]", table[0].IKrum, table[len(table)-1].IKrum),
			fmt.Sprintf("must cover i_krum [%d, %d]", MinIKrum, MaxIKrum))
	}
	for k, p := range table {
		if k > 0 && p.IKrum <= table[k-1].IKrum {
			return argumentError("calibration", p.IKrum, "i_krum values must be strictly increasing")
		}
		if !(p.NaturalFrequency > 0) {
			return argumentError("natural frequency", p.NaturalFrequency, "must be positive")
		}
		if p.DampedFrequency < 0 {
			return argumentError("damped frequency", p.DampedFrequency, "must not be negative")
		}
	}
	return nil
}

// interpolateCalibration interpolates the table piecewise-linearly at iKrum.
// Exact table entries are returned unchanged.
func interpolateCalibration(table []CalibrationPoint, iKrum int) ResponseParameters {
	k, found := slices.BinarySearchFunc(table, iKrum, func(p CalibrationPoint, g int) int {
		return p.IKrum - g
	})
	if found {
		return table[k].parameters()
	}
	if k == 0 {
		return table[0].parameters()
	}
	if k == len(table) {
		return table[len(table)-1].parameters()
	}

	lo, hi := table[k-1], table[k]
	frac := float64(iKrum-lo.IKrum) / float64(hi.IKrum-lo.IKrum)
	lerp := func(a, b float64) float64 { return a + frac*(b-a) }
	return ResponseParameters{
		NaturalFrequency: lerp(lo.NaturalFrequency, hi.NaturalFrequency),
		Damping:          lerp(lo.Damping, hi.Damping),
		DampedFrequency:  lerp(lo.DampedFrequency, hi.DampedFrequency),
	}
}

func (p CalibrationPoint) parameters() ResponseParameters {
	return ResponseParameters{
		NaturalFrequency: p.NaturalFrequency,
		Damping:          p.Damping,
		DampedFrequency:  p.DampedFrequency,
	}
}
