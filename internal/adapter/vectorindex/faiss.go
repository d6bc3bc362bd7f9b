package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// FAISS flat index serialization (IndexFlatIP):
//
//	fourcc "IxFI" | int32 d | int64 ntotal | int64 dummy | int64 dummy |
//	uint8 is_trained | int32 metric_type | [float32 metric_arg if metric_type > 1] |
//	uint64 nfloats | nfloats x float32
//
// All little endian.
var (
	fourccFlatIP = [4]byte{'I', 'x', 'F', 'I'}
	fourccFlatL2 = [4]byte{'I', 'x', 'F', '2'}
)

const (
	metricInnerProduct int32 = 0
	faissDummy         int64 = 1 << 20

	// maxFloats bounds allocation for corrupt headers (16 GiB of float32).
	maxFloats = 1 << 32
)

type faissHeader struct {
	D         int32
	NTotal    int64
	Dummy1    int64
	Dummy2    int64
	IsTrained uint8
	Metric    int32
}

// LoadFAISS reads a FAISS IndexFlatIP file into a FlatIndex.
func LoadFAISS(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	idx, err := ReadFAISS(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return idx, nil
}

// ReadFAISS decodes a FAISS IndexFlatIP stream.
func ReadFAISS(r io.Reader) (*FlatIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read fourcc: %w", err)
	}
	switch magic {
	case fourccFlatIP:
	case fourccFlatL2:
		return nil, errors.New("index uses L2 distance, inner product (IxFI) is required")
	default:
		return nil, fmt.Errorf("unsupported index type %q, expected IxFI", magic[:])
	}

	var h faissHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.D <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", h.D)
	}
	if h.NTotal < 0 {
		return nil, fmt.Errorf("invalid row count %d", h.NTotal)
	}
	if h.Metric != metricInnerProduct {
		return nil, fmt.Errorf("unsupported metric type %d", h.Metric)
	}

	var nfloats uint64
	if err := binary.Read(r, binary.LittleEndian, &nfloats); err != nil {
		return nil, fmt.Errorf("read vector count: %w", err)
	}
	if nfloats != uint64(h.NTotal)*uint64(h.D) {
		return nil, fmt.Errorf("vector data holds %d floats, header declares %d x %d", nfloats, h.NTotal, h.D)
	}
	if nfloats > maxFloats {
		return nil, fmt.Errorf("vector data too large: %d floats", nfloats)
	}

	data := make([]float32, nfloats)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}

	return newFlatIndexFromData(int(h.D), data)
}

// WriteFAISS encodes idx in the FAISS IndexFlatIP layout.
func WriteFAISS(w io.Writer, idx *FlatIndex) error {
	if _, err := w.Write(fourccFlatIP[:]); err != nil {
		return err
	}
	h := faissHeader{
		D:         int32(idx.dimension),
		NTotal:    int64(idx.rows),
		Dummy1:    faissDummy,
		Dummy2:    faissDummy,
		IsTrained: 1,
		Metric:    metricInnerProduct,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, idx.data)
}

// SaveFAISS writes idx to path.
func SaveFAISS(path string, idx *FlatIndex) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WriteFAISS(bw, idx); err != nil {
		f.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write index: %w", err)
	}
	return f.Close()
}
