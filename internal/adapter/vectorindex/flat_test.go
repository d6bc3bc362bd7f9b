package vectorindex

import (
	"bytes"
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRows() [][]float32 {
	return [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.6, 0.8, 0},
		{0, 0, 1},
		{0.8, 0.6, 0},
	}
}

func TestFlatIndex_SearchOrder(t *testing.T) {
	idx, err := NewFlatIndex(3, testRows())
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].Row)
	assert.Equal(t, 4, hits[1].Row)
	assert.Equal(t, 2, hits[2].Row)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestFlatIndex_KLargerThanRows(t *testing.T) {
	idx, err := NewFlatIndex(3, testRows())
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{0, 0, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
	assert.Equal(t, 3, hits[0].Row)
}

func TestFlatIndex_TiesPreferLowerRow(t *testing.T) {
	idx, err := NewFlatIndex(2, [][]float32{{0, 1}, {1, 0}, {1, 0}})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, hits[0].Row)
	assert.Equal(t, 2, hits[1].Row)
}

func TestFlatIndex_Errors(t *testing.T) {
	_, err := NewFlatIndex(3, [][]float32{{1, 0}})
	assert.Error(t, err)

	idx, err := NewFlatIndex(3, testRows())
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.Error(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFAISS_RoundTrip(t *testing.T) {
	idx, err := NewFlatIndex(3, testRows())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pubmed.index")
	require.NoError(t, SaveFAISS(path, idx))

	loaded, err := LoadFAISS(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dimension())
	assert.Equal(t, 5, loaded.Len())

	row, ok := loaded.Row(2)
	require.True(t, ok)
	assert.Equal(t, []float32{0.6, 0.8, 0}, row)
}

func TestFAISS_HeaderLayout(t *testing.T) {
	idx, err := NewFlatIndex(2, [][]float32{{1, 0}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFAISS(&buf, idx))

	b := buf.Bytes()
	// fourcc + d + ntotal + 2 dummies + is_trained + metric + nfloats + data
	require.Len(t, b, 4+4+8+8+8+1+4+8+2*4)
	assert.Equal(t, "IxFI", string(b[:4]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(b[8:16]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(b[37:45]))
}

func TestReadFAISS_Rejects(t *testing.T) {
	_, err := ReadFAISS(bytes.NewReader([]byte("IxF2")))
	assert.ErrorContains(t, err, "L2")

	_, err = ReadFAISS(bytes.NewReader([]byte("IHNf")))
	assert.ErrorContains(t, err, "unsupported index type")

	idx, err := NewFlatIndex(2, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteFAISS(&buf, idx))
	truncated := buf.Bytes()[:buf.Len()-3]

	_, err = ReadFAISS(bytes.NewReader(truncated))
	assert.Error(t, err)
}
