package datasets

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ParallelSequence is a wrapper around a Sequence that parallelizes calls to Next.
// See details in CustomParallel.
type ParallelSequence struct {
	Sequence Sequence

	// parallelism is the number of goroutines started resolving samples.
	parallelism int

	// extraBufferSize is the size of the cache of pre-resolved samples.
	extraBufferSize int

	// impl is the actual implementation.
	impl *parallelSequenceImpl

	// keepAlive is used only to keep ParallelSequence alive in the middle of long calls.
	keepAlive int64
}

// parallelSequenceImpl separates the implementation of ParallelSequence. It's important
// that it doesn't point back to the original ParallelSequence, so garbage collecting
// will also stop the goroutines.
type parallelSequenceImpl struct {
	config ParallelSequence // A copy.

	err   error
	muErr sync.Mutex

	cache                             chan Sample
	epochFinished, stopEpoch, stopAll chan struct{}
}

// Parallel parallelizes any thread-safe Sequence.
//
// It uses CustomParallel and automatically starts it with the default
// parameters.
//
// Example:
//
//	it := datasets.NewIterator(ds)
//	seq := datasets.Parallel(it)
//	MyTrainFunc(seq)
func Parallel(seq Sequence) *ParallelSequence {
	ps := CustomParallel(seq)
	return ps.Buffer(ps.parallelism).Start()
}

// CustomParallel builds a ParallelSequence that can be used to parallelize any
// Sequence, as long as the underlying sequence is thread-safe -- Iterator is.
//
// ParallelSequence can be further configured (see Parallelism and Buffer),
// and then one has to call Start before actually using it.
//
// Example:
//
//	seq := datasets.CustomParallel(datasets.NewIterator(ds)).Buffer(10).Start()
func CustomParallel(seq Sequence) *ParallelSequence {
	ps := &ParallelSequence{
		Sequence: seq,
	}
	ps.Parallelism(0)
	return ps
}

// Parallelism is the number of goroutines to start, each calling Sequence.Next in parallel
// to accelerate the resolution of samples. If set to 0 (the default), it will use the
// number of cores in the system plus 1.
//
// This must be called before a call to Start.
//
// It returns the updated ParallelSequence, so calls can be cascaded.
func (ps *ParallelSequence) Parallelism(n int) *ParallelSequence {
	if ps.impl != nil {
		klog.Errorf("ParallelSequence invalid configuration change after Start has been called.")
		return nil
	}
	if n == 0 {
		n = runtime.NumCPU() + 1
	}
	ps.parallelism = n
	return ps
}

// Buffer reserved in the channel that collects the parallel resolved samples.
//
// This must be called before a call to Start.
//
// It returns the updated ParallelSequence, so calls can be cascaded.
func (ps *ParallelSequence) Buffer(n int) *ParallelSequence {
	if ps.impl != nil {
		klog.Errorf("ParallelSequence invalid configuration change after Start has been called.")
		return nil
	}
	ps.extraBufferSize = n
	return ps
}

// Start indicates that the sequence is finished being configured, and starts
// being a valid Sequence.
//
// After Start its configuration can no longer be changed.
//
// It returns the updated ParallelSequence, so calls can be cascaded.
func (ps *ParallelSequence) Start() *ParallelSequence {
	if ps.impl != nil {
		klog.Errorf("ParallelSequence.Start called more than once!?")
		return nil
	}
	impl := &parallelSequenceImpl{
		cache:   make(chan Sample, ps.extraBufferSize),
		stopAll: make(chan struct{}),
		config:  *ps, // Copy.
	}
	ps.impl = impl
	// If the ParallelSequence is garbage collected, stop all parallel goroutines.
	runtime.SetFinalizer(ps, func(ps *ParallelSequence) {
		if ps.impl != nil {
			close(ps.impl.stopAll)
			ps.impl = nil
		}
	})

	impl.startGoRoutines()
	return ps
}

func (impl *parallelSequenceImpl) startGoRoutines() {
	impl.epochFinished = make(chan struct{})
	impl.stopEpoch = make(chan struct{})
	var wg sync.WaitGroup
	for ii := 0; ii < impl.config.parallelism; ii++ {
		wg.Add(1)
		go func(impl *parallelSequenceImpl) {
			defer wg.Done()
			for {
				select {
				case <-impl.stopEpoch:
					return
				case <-impl.stopAll:
					return
				default:
					// Move forward and resolve the next sample.
				}
				sample, err := impl.config.Sequence.Next()
				if err == io.EOF {
					return
				}
				if err != nil {
					klog.Errorf("Error: %+v", err)
					// Fatal error, stop everything.
					impl.muErr.Lock()
					if impl.err == nil {
						impl.err = err
					}
					close(impl.stopEpoch)
					close(impl.stopAll)
					impl.muErr.Unlock()
					return
				}
				select {
				case <-impl.stopEpoch:
					return
				case <-impl.stopAll:
					return
				case impl.cache <- sample:
					// Sample resolved and cached, move to next.
					continue
				}
			}
		}(impl)
	}

	// Start controller job.
	go func() {
		wg.Wait()
		impl.muErr.Lock()
		defer impl.muErr.Unlock()
		select {
		case <-impl.stopAll:
			return
		default:
		}
		close(impl.epochFinished)
	}()
}

// Name implements Sequence.
func (ps *ParallelSequence) Name() string {
	return fmt.Sprintf("%s [Parallel]", ps.Sequence.Name())
}

// Reset implements Sequence.
func (ps *ParallelSequence) Reset() {
	impl := ps.impl
	if impl == nil {
		klog.Errorf("ParallelSequence.Reset was called before it was started with ParallelSequence.Start")
		return
	}
	impl.muErr.Lock()
	close(impl.stopEpoch) // Indicate to goroutines to stop resolving samples.
	impl.muErr.Unlock()
	select {
	case <-impl.stopAll:
		// Return immediately, do nothing.
		return
	case <-impl.cache:
		// Discard remaining entries in cache.
	case <-impl.epochFinished:
		// All finished, we can move on.
	}

	// Reset underlying sequence and start again.
	impl.config.Sequence.Reset()
	impl.startGoRoutines()

	// This no-op prevents `ps` from being garbage collected and the goroutines killed in the middle
	// of the Reset operation. Leave this at the end.
	ps.keepAlive++
}

// Next implements Sequence.
func (ps *ParallelSequence) Next() (sample Sample, err error) {
	impl := ps.impl
	if impl == nil {
		err = errors.Errorf("ParallelSequence.Next was called before it was started with ParallelSequence.Start")
		return
	}
	select {
	case <-impl.stopAll:
		// An error occurred, sequence is closed.
		impl.muErr.Lock()
		err = impl.err
		impl.muErr.Unlock()
		return
	case sample = <-impl.cache:
		// We got a new sample.
	case <-impl.epochFinished:
		// No more samples being produced (until Reset() is called), but we still need to exhaust the cache.
		select {
		case sample = <-impl.cache:
			// We got a new sample, simply continue.
		default:
			// Resolution exhausted, and no more samples in cache.
			err = io.EOF
			return
		}
	}

	// This no-op prevents `ps` from being garbage collected and the goroutines killed in the middle
	// of the Next operation. Leave this at the end.
	ps.keepAlive++
	return
}
