package hdf5writer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmbenlloch/go-hdf5"
	medipix "github.com/next-exp/medipix_go/pkg"
)

// Frame is everything stored per finished frame.
type Frame struct {
	Image       []uint32
	Spectrum    []float64
	FluxDensity float64
	RealPhotons uint64
	TotalCounts uint64
	MaxTime     float64
}

// Writer stores a run of frames of one sensor:
//
//	/Run/info           run id, mode and geometry
//	/Run/configuration  numeric configuration parameters
//	/Frames/images      uint32 [frame][i][j]
//	/Frames/spectra     float32 [frame][radius]
//	/Frames/info        photons and counts per frame
//	/Signals/...        float32 pixel traces, one dataset per pixel
type Writer struct {
	File         *hdf5.File
	Filename     string
	RunGroup     *hdf5.Group
	FramesGroup  *hdf5.Group
	SignalsGroup *hdf5.Group
	RunInfoTable *hdf5.Dataset
	ConfigTable  *hdf5.Dataset
	InfoTable    *hdf5.Dataset
	Images       *hdf5.Dataset
	Spectra      *hdf5.Dataset
	FrameCounter int

	nx, ny           int
	bins             int
	compressionLevel int
}

func NewWriter(filename string, nx, ny, compressionLevel int) (*Writer, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", nx, ny)
	}
	hdf5.SetStringLength(STRLEN)

	w := &Writer{
		Filename:         filename,
		nx:               nx,
		ny:               ny,
		bins:             min(nx, ny)/2 + 1,
		compressionLevel: compressionLevel,
	}

	var err error
	if w.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if err := w.createLayout(); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return w, nil
}

func (w *Writer) createLayout() error {
	var err error
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.FramesGroup, err = createGroup(w.File, "Frames"); err != nil {
		return err
	}
	if w.SignalsGroup, err = createGroup(w.File, "Signals"); err != nil {
		return err
	}
	if w.RunInfoTable, err = createTable(w.RunGroup, "info", RunInfoHDF5{}, w.compressionLevel); err != nil {
		return err
	}
	if w.ConfigTable, err = createTable(w.RunGroup, "configuration", ParamHDF5{}, w.compressionLevel); err != nil {
		return err
	}
	if w.InfoTable, err = createTable(w.FramesGroup, "info", FrameInfoHDF5{}, w.compressionLevel); err != nil {
		return err
	}
	imageShape := []uint{uint(w.nx), uint(w.ny)}
	if w.Images, err = createFramesArray(w.FramesGroup, "images", hdf5.T_NATIVE_UINT32, imageShape, w.compressionLevel); err != nil {
		return err
	}
	spectrumShape := []uint{uint(w.bins)}
	if w.Spectra, err = createFramesArray(w.FramesGroup, "spectra", hdf5.T_NATIVE_FLOAT, spectrumShape, w.compressionLevel); err != nil {
		return err
	}
	return nil
}

// WriteRunInfo stores the run id and the numeric parameters of the
// configuration, named by their json keys.
func (w *Writer) WriteRunInfo(runID string, config medipix.Configuration) error {
	timed := int32(0)
	if config.Timed {
		timed = 1
	}
	info := RunInfoHDF5{
		run_id: convertToHdf5String(runID),
		mode:   convertToHdf5String(config.Mode.String()),
		timed:  timed,
		nx:     int32(w.nx),
		ny:     int32(w.ny),
	}
	if err := writeEntryToTable(w.RunInfoTable, info, 0); err != nil {
		return err
	}

	params := configurationParams(config)
	return writeArrayToTable(w.ConfigTable, &params, 0)
}

func configurationParams(config medipix.Configuration) []ParamHDF5 {
	t := reflect.TypeOf(config)
	v := reflect.ValueOf(config)
	params := make([]ParamHDF5, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		field := v.Field(i)
		var value float64
		// Only single-value fields, strings and lists are skipped.
		switch field.Kind() {
		case reflect.Int:
			value = float64(field.Int())
		case reflect.Uint64:
			value = float64(field.Uint())
		case reflect.Float64:
			value = field.Float()
		case reflect.Bool:
			if field.Bool() {
				value = 1
			}
		default:
			continue
		}
		params = append(params, ParamHDF5{param: convertToHdf5String(name), value: value})
	}
	return params
}

// WriteFrame appends a frame. The image has to be nx*ny values and the
// spectrum min(nx, ny)/2+1 values.
func (w *Writer) WriteFrame(frame Frame) error {
	if len(frame.Image) != w.nx*w.ny {
		return fmt.Errorf("image has %d pixels, expected %d", len(frame.Image), w.nx*w.ny)
	}
	if len(frame.Spectrum) != w.bins {
		return fmt.Errorf("spectrum has %d bins, expected %d", len(frame.Spectrum), w.bins)
	}

	image := frame.Image
	if err := writeFrame(w.Images, &image, w.FrameCounter, []uint{uint(w.nx), uint(w.ny)}); err != nil {
		return err
	}
	spectrum := make([]float32, len(frame.Spectrum))
	for k, v := range frame.Spectrum {
		spectrum[k] = float32(v)
	}
	if err := writeFrame(w.Spectra, &spectrum, w.FrameCounter, []uint{uint(w.bins)}); err != nil {
		return err
	}

	info := FrameInfoHDF5{
		frame:        int32(w.FrameCounter),
		flux_density: frame.FluxDensity,
		real_photons: frame.RealPhotons,
		total_counts: frame.TotalCounts,
		max_time:     frame.MaxTime,
	}
	if err := writeEntryToTable(w.InfoTable, info, w.FrameCounter); err != nil {
		return err
	}
	w.FrameCounter++
	return nil
}

// SignalName is the dataset holding the trace of pixel (i, j) in a frame.
func SignalName(frame, i, j int) string {
	return fmt.Sprintf("frame%d_pixel_%d_%d", frame, i, j)
}

// WriteSignal stores the trace of pixel (i, j) of a frame.
func (w *Writer) WriteSignal(frame, i, j int, signal []float64) error {
	if len(signal) == 0 {
		return fmt.Errorf("empty signal for pixel (%d, %d)", i, j)
	}
	data := make([]float32, len(signal))
	for k, v := range signal {
		data[k] = float32(v)
	}

	n := uint(len(data))
	dset, err := createArray(w.SignalsGroup, SignalName(frame, i, j), hdf5.T_NATIVE_FLOAT,
		[]uint{n}, nil, []uint{min(n, 32768)}, w.compressionLevel)
	if err != nil {
		return err
	}
	if err := dset.Write(&data); err != nil {
		dset.Close()
		return fmt.Errorf("error writing signal of pixel (%d, %d): %w", i, j, err)
	}
	return dset.Close()
}

func (w *Writer) Close() error {
	var errs []error
	closers := []struct {
		name   string
		closer interface{ Close() error }
		open   bool
	}{
		{"run info table", w.RunInfoTable, w.RunInfoTable != nil},
		{"configuration table", w.ConfigTable, w.ConfigTable != nil},
		{"frame info table", w.InfoTable, w.InfoTable != nil},
		{"images", w.Images, w.Images != nil},
		{"spectra", w.Spectra, w.Spectra != nil},
		{"run group", w.RunGroup, w.RunGroup != nil},
		{"frames group", w.FramesGroup, w.FramesGroup != nil},
		{"signals group", w.SignalsGroup, w.SignalsGroup != nil},
		{"file", w.File, w.File != nil},
	}
	for _, c := range closers {
		if !c.open {
			continue
		}
		if err := c.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", c.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
