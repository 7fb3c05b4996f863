package medipix

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/constraints"
)

// Raw files have no header: little endian values, dimensions known by the
// reader.

type rawValue interface {
	uint32 | float32
}

func toFloat32[T constraints.Float](values []T) []float32 {
	out := make([]float32, len(values))
	for k, v := range values {
		out[k] = float32(v)
	}
	return out
}

func WriteRaw[T rawValue](w io.Writer, values []T) error {
	return binary.Write(w, binary.LittleEndian, values)
}

// ReadRaw reads values until the end of r.
func ReadRaw[T rawValue](r io.Reader) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("raw data size %d is not a multiple of 4", len(data))
	}
	values := make([]T, len(data)/4)
	if _, err := binary.Decode(data, binary.LittleEndian, values); err != nil {
		return nil, err
	}
	return values, nil
}

func saveRaw[T rawValue](filename string, values []T) error {
	f, err := os.Create(filename)
	if err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	w := bufio.NewWriter(f)
	if err := WriteRaw(w, values); err != nil {
		f.Close()
		return fmt.Errorf("error writing %q: %w", filename, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("error writing %q: %w", filename, err)
	}
	return f.Close()
}

func LoadRaw[T rawValue](filename string) ([]T, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer f.Close()
	return ReadRaw[T](f)
}

// SaveImage writes the count image as uint32 values, i*ny + j order.
func (s *Sensor) SaveImage(filename string) error {
	image, err := s.Image()
	if err != nil {
		return err
	}
	return saveRaw(filename, image)
}

// SavePixelSignal writes the trace of pixel (i, j) as float32 values.
func (s *Sensor) SavePixelSignal(filename string, i, j int) error {
	signal, err := s.PixelSignal(i, j)
	if err != nil {
		return err
	}
	return saveRaw(filename, toFloat32(signal))
}

// SaveSpectrum writes the radial spectrum as float32 values.
func (s *Sensor) SaveSpectrum(filename string) error {
	spectrum, err := s.Spectrum()
	if err != nil {
		return err
	}
	return saveRaw(filename, toFloat32(spectrum))
}
