package datasets

import (
	"image"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Sample is one resolved dataset item, as yielded by a Sequence.
type Sample struct {
	// Index of the sample in the underlying Indexed dataset.
	Index int

	Image  image.Image
	Target Target
}

// Sequence yields the samples of a dataset one at a time, ending an epoch with
// io.EOF. Reset restarts it for another epoch.
type Sequence interface {
	// Name identifies the sequence. Used for debugging and pretty-printing.
	Name() string

	// Next yields the next sample, or io.EOF at the end of the epoch.
	Next() (Sample, error)

	// Reset restarts the sequence from the beginning. Can be called after
	// io.EOF is reached, for instance to run another epoch.
	Reset()
}

// Iterator walks an Indexed dataset sequentially, one sample per Next call.
//
// It is safe for concurrent use: multiple goroutines may call Next to consume
// the same epoch cooperatively (see Parallel for a prefetching wrapper).
type Iterator struct {
	ds   Indexed
	next int
	mu   sync.Mutex
}

var _ Sequence = &Iterator{}

// NewIterator returns an Iterator over one epoch of ds.
func NewIterator(ds Indexed) *Iterator {
	return &Iterator{ds: ds}
}

// nextIndex returns the next index and increments it.
// Concurrency safe.
// Returns -1 if reached the end of the dataset.
func (it *Iterator) nextIndex() (index int) {
	it.mu.Lock()
	defer it.mu.Unlock()
	index = it.next
	if index < 0 || index >= it.ds.Len() {
		index = -1
		it.next = -1
		return
	}
	it.next++
	if it.next >= it.ds.Len() {
		it.next = -1 // Indicates the end of epoch.
	}
	return
}

// Name implements Sequence.
func (it *Iterator) Name() string {
	return it.ds.Name()
}

// Next implements Sequence. It resolves one sample of the underlying dataset,
// returning io.EOF once all samples have been handed out for the epoch.
func (it *Iterator) Next() (sample Sample, err error) {
	index := it.nextIndex()
	if index < 0 {
		err = io.EOF
		return
	}
	sample.Index = index
	sample.Image, sample.Target, err = it.ds.At(index)
	if err != nil {
		err = errors.WithMessagef(err, "failed to read sample #%d of %q", index, it.ds.Name())
	}
	return
}

// Reset implements Sequence.
func (it *Iterator) Reset() {
	it.mu.Lock()
	it.next = 0
	it.mu.Unlock()
}
