package datasets

import (
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDataset is an in-memory Indexed used to exercise the iteration plumbing.
type stubDataset struct {
	n int
}

func (ds *stubDataset) Name() string { return "stub" }
func (ds *stubDataset) Len() int     { return ds.n }
func (ds *stubDataset) At(index int) (image.Image, Target, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	return img, Target{Category: int32(index)}, nil
}

func TestVerifyStrArg(t *testing.T) {
	allowed := []string{"category", "annotation"}
	require.NoError(t, VerifyStrArg("category", "targetType", allowed))
	err := VerifyStrArg("segmentation", "targetType", allowed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"segmentation"`)
	assert.Contains(t, err.Error(), "category")
	assert.Contains(t, err.Error(), "annotation")
}

func drainSequence(t *testing.T, seq Sequence) map[int32]bool {
	seen := make(map[int32]bool)
	for {
		sample, err := seq.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.False(t, seen[sample.Target.Category], "sample %d yielded twice", sample.Index)
		seen[sample.Target.Category] = true
	}
	return seen
}

func TestIterator(t *testing.T) {
	ds := &stubDataset{n: 5}
	it := NewIterator(ds)
	assert.Equal(t, "stub", it.Name())

	seen := drainSequence(t, it)
	assert.Len(t, seen, 5)

	// Exhausted until Reset.
	_, err := it.Next()
	assert.Equal(t, io.EOF, err)

	it.Reset()
	seen = drainSequence(t, it)
	assert.Len(t, seen, 5)
}

func TestIteratorEmpty(t *testing.T) {
	it := NewIterator(&stubDataset{n: 0})
	_, err := it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestParallel(t *testing.T) {
	for _, bufferSize := range []int{0, 10} {
		ds := &stubDataset{n: 100}
		seq := CustomParallel(NewIterator(ds)).Parallelism(0).Buffer(bufferSize).Start()

		seen := drainSequence(t, seq)
		require.Lenf(t, seen, 100, "number of yielded samples first epoch, bufferSize=%d", bufferSize)

		seq.Reset()
		seen = drainSequence(t, seq)
		require.Lenf(t, seen, 100, "number of yielded samples after Reset, bufferSize=%d", bufferSize)
	}
}
