// Copyright (c) 2018 The Jaeger Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package liveness

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uber/jaeger-lib/metrics/metricstest"
	"go.uber.org/zap"
)

func TestWatchdog_TouchedPartitionIsNotReported(t *testing.T) {
	factory := metricstest.NewFactory(0)
	var mu sync.Mutex
	var stalled []int32

	w := NewLivenessWatchdog(factory, zap.NewNop(), 10*time.Millisecond, StallReporterFunc(func(partition int32) {
		mu.Lock()
		defer mu.Unlock()
		stalled = append(stalled, partition)
	}))

	p := w.Track(1)
	defer p.Close()

	stop := time.After(60 * time.Millisecond)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ticker.C:
			p.Touch()
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, stalled)
}

func TestWatchdog_SilentPartitionIsReported(t *testing.T) {
	factory := metricstest.NewFactory(0)
	reported := make(chan int32, 1)

	w := NewLivenessWatchdog(factory, zap.NewNop(), 10*time.Millisecond, StallReporterFunc(func(partition int32) {
		reported <- partition
	}))

	p := w.Track(2)
	defer p.Close()

	select {
	case partition := <-reported:
		assert.Equal(t, int32(2), partition)
	case <-time.After(time.Second):
		t.Fatal("expected stall report within timeout")
	}
}

func TestPartitionLiveness_CloseStopsTicker(t *testing.T) {
	factory := metricstest.NewFactory(0)
	w := NewLivenessWatchdog(factory, zap.NewNop(), 5*time.Millisecond, nil)
	p := w.Track(3)
	p.Close()
	time.Sleep(20 * time.Millisecond)
}
