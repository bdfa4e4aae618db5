/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: resources_test.go
Description: Tests for the runtime resource sampler.
*/

package monitoring

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestResourceSamplerPeaks(t *testing.T) {
	s := NewResourceSampler(time.Millisecond, 0, nil)
	s.Start(context.Background())

	buf := make([]byte, 8<<20)
	buf[len(buf)-1] = 1
	time.Sleep(20 * time.Millisecond)

	usage := s.Stop()
	assert.Greater(t, usage.Samples, 1)
	assert.GreaterOrEqual(t, usage.PeakHeapAlloc, uint64(len(buf)))
	assert.GreaterOrEqual(t, usage.PeakGoroutines, 1)
	assert.Equal(t, byte(1), buf[len(buf)-1])
}

func TestResourceSamplerStopWithoutStart(t *testing.T) {
	usage := NewResourceSampler(0, 0, nil).Stop()
	assert.Equal(t, 1, usage.Samples)
}

func TestResourceSamplerWarnsOnce(t *testing.T) {
	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&out)

	s := NewResourceSampler(time.Millisecond, 1, logger)
	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Heap usage above threshold")))
}
