/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: resources.go
Description: Runtime resource sampling for scans. Periodically reads Go heap and
goroutine figures while a scan runs, keeps the peaks and warns once when the heap
passes a threshold.
*/

package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ResourceUsage holds the peaks observed during one run
type ResourceUsage struct {
	PeakHeapAlloc  uint64 `json:"peak_heap_alloc" yaml:"peak_heap_alloc"`   // Bytes of live heap objects
	PeakSys        uint64 `json:"peak_sys" yaml:"peak_sys"`                 // Bytes obtained from the OS
	PeakGoroutines int    `json:"peak_goroutines" yaml:"peak_goroutines"`
	NumGC          uint32 `json:"num_gc" yaml:"num_gc"` // GC cycles during the run
	Samples        int    `json:"samples" yaml:"samples"`
}

// ResourceSampler samples runtime statistics in the background
type ResourceSampler struct {
	interval time.Duration
	heapHigh uint64
	logger   *logrus.Logger

	mu      sync.Mutex
	usage   ResourceUsage
	startGC uint32
	warned  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewResourceSampler creates a sampler. heapHigh of 0 disables the heap warning.
func NewResourceSampler(interval time.Duration, heapHigh uint64, logger *logrus.Logger) *ResourceSampler {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ResourceSampler{interval: interval, heapHigh: heapHigh, logger: logger}
}

// Start begins sampling until ctx ends or Stop is called
func (s *ResourceSampler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.startGC = ms.NumGC

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *ResourceSampler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample records one reading
func (s *ResourceSampler) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	goroutines := runtime.NumGoroutine()

	s.mu.Lock()
	defer s.mu.Unlock()

	u := &s.usage
	u.Samples++
	if ms.HeapAlloc > u.PeakHeapAlloc {
		u.PeakHeapAlloc = ms.HeapAlloc
	}
	if ms.Sys > u.PeakSys {
		u.PeakSys = ms.Sys
	}
	if goroutines > u.PeakGoroutines {
		u.PeakGoroutines = goroutines
	}
	u.NumGC = ms.NumGC - s.startGC

	if s.heapHigh > 0 && ms.HeapAlloc > s.heapHigh && !s.warned {
		s.warned = true
		s.logger.WithFields(logrus.Fields{
			"heap_alloc": ms.HeapAlloc,
			"threshold":  s.heapHigh,
		}).Warn("Heap usage above threshold, consider a lower max offset or fewer workers")
	}
}

// Stop ends sampling and returns the observed peaks
func (s *ResourceSampler) Stop() ResourceUsage {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.sample()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
