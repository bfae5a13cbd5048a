package sim

import (
	"runtime"
	"sync"
)

// DefaultParallelThreshold is the minimum particle count dispatched to workers.
// Below this, running the chunk inline is faster than the channel round trip.
const DefaultParallelThreshold = 4096

// RangeFunc processes [start, end) on behalf of worker.
type RangeFunc func(worker, start, end int)

// workChunk represents a range of particles for a worker to process.
type workChunk struct {
	start, end int
	fn         RangeFunc
}

// WorkerPool runs fork-join passes over an index range on persistent goroutines.
// Worker IDs are stable, so per-worker state (random sources, scratch) indexed
// by worker is only ever touched by one goroutine at a time.
type WorkerPool struct {
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// NewWorkerPool creates a pool. workers <= 0 uses GOMAXPROCS; threshold <= 0
// uses DefaultParallelThreshold. Goroutines start on the first parallel Run.
func NewWorkerPool(workers, threshold int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	return &WorkerPool{numWorkers: workers, threshold: threshold}
}

// Workers returns the number of workers (and of per-worker state slots).
func (p *WorkerPool) Workers() int {
	return p.numWorkers
}

// start launches persistent worker goroutines.
func (p *WorkerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Close signals all workers to exit and waits for them.
func (p *WorkerPool) Close() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *WorkerPool) worker(workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(workerID, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// Run partitions [0, n) into at most Workers() chunks whose boundaries are
// multiples of grain, runs fn on each, and returns once every chunk is done.
func (p *WorkerPool) Run(n, grain int, fn RangeFunc) {
	if n <= 0 {
		return
	}
	if grain < 1 {
		grain = 1
	}

	if n < p.threshold || p.numWorkers == 1 {
		fn(0, 0, n)
		return
	}

	p.start()

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	chunkSize = (chunkSize + grain - 1) / grain * grain

	chunksDispatched := 0
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		chunksDispatched++
	}

	// Barrier
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}
