package simulation

import (
	"runtime"
	"sync"
)

// chunksPerWorker splits each pass finer than one range per worker so a
// cancelled context is noticed before the whole grid is processed.
const chunksPerWorker = 4

// workChunk represents a range of cells for a worker to process.
type workChunk struct {
	start, end int
	slot       int
}

// chunkFunc processes cells [start, end). slot is unique per chunk within a pass.
type chunkFunc func(start, end, slot int)

// workerPool runs chunkFuncs on persistent goroutines.
type workerPool struct {
	numWorkers int
	fn         chunkFunc

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: numWorkers}
}

// maxChunks is the most chunks a single pass can be split into.
func (p *workerPool) maxChunks() int {
	return p.numWorkers * chunksPerWorker
}

// start launches persistent worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.maxChunks())
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
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
func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.fn(chunk.start, chunk.end, chunk.slot)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits [0, n) into chunks, dispatches them and waits for all of them.
// It returns the number of chunks used; slots are 0..chunks-1.
func (p *workerPool) run(n int, fn chunkFunc) int {
	if !p.running {
		p.start()
	}
	p.fn = fn

	chunks := p.maxChunks()
	chunkSize := (n + chunks - 1) / chunks

	// Dispatch chunks to workers
	dispatched := 0
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		p.workChan <- workChunk{start: start, end: end, slot: c}
		dispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
	return dispatched
}
