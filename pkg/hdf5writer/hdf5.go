package hdf5writer

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

type RunInfoHDF5 struct {
	run_id [STRLEN]byte
	mode   [STRLEN]byte
	timed  int32
	nx     int32
	ny     int32
}

type ParamHDF5 struct {
	param [STRLEN]byte
	value float64
}

type FrameInfoHDF5 struct {
	frame        int32
	flux_density float64
	real_photons uint64
	total_counts uint64
	max_time     float64
}

const STRLEN = 40

// H5S_UNLIMITED is -1L
const unlimited = ^uint(0)

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("error creating %q: %w", fname, err)
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, fmt.Errorf("error creating group %s: %w", groupName, err)
	}
	return g, nil
}

// createFramesArray creates an extensible dataset of frames of the given
// shape, one chunk per frame.
func createFramesArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, shape []uint, level int) (*hdf5.Dataset, error) {
	dims := make([]uint, len(shape)+1)
	maxDims := append([]uint{unlimited}, shape...)
	chunks := append([]uint{1}, shape...)
	return createArray(group, name, dtype, dims, maxDims, chunks, level)
}

func createArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, dims, maxDims, chunks []uint, level int) (*hdf5.Dataset, error) {
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("error creating dataspace for %s: %w", name, err)
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()

	plist.SetChunk(chunks)
	if level > 0 {
		plist.SetDeflate(level)
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, fmt.Errorf("error creating dataset %s: %w", name, err)
	}
	return dset, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, level int) (*hdf5.Dataset, error) {
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, fmt.Errorf("error creating datatype for %s: %w", name, err)
	}
	return createArray(group, name, dtype, []uint{0}, []uint{unlimited}, []uint{1024}, level)
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T, rows int) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array, rows)
}

// writeArrayToTable appends data after the first rows entries of a table.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rows int) error {
	length := uint(len(*data))
	return writeSlab(dataset, data, uint(rows), []uint{length})
}

// writeFrame stores one frame of the given shape at index frame, growing
// the dataset along its first axis.
func writeFrame[T any](dataset *hdf5.Dataset, data *[]T, frame int, shape []uint) error {
	count := append([]uint{1}, shape...)
	return writeSlab(dataset, data, uint(frame), count)
}

func writeSlab[T any](dataset *hdf5.Dataset, data *[]T, offset uint, count []uint) error {
	newsize := append([]uint{offset + count[0]}, count[1:]...)
	if err := dataset.Resize(newsize); err != nil {
		return fmt.Errorf("error resizing dataset %s to %v: %w", dataset.Name(), newsize, err)
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := make([]uint, len(count))
	start[0] = offset
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return fmt.Errorf("error selecting hyperslab of %s: %w", dataset.Name(), err)
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return fmt.Errorf("error creating memory dataspace: %w", err)
	}
	defer dataspace.Close()

	if err := dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return fmt.Errorf("error writing dataset %s: %w", dataset.Name(), err)
	}
	return nil
}
