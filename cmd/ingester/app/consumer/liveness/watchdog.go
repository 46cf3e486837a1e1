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

// Package liveness reports partitions that have gone quiet for longer than
// the configured check interval. It exists so an operator (or an external
// restart policy) can tell a stalled partition consumer apart from one that
// is legitimately idle because its source topic has no traffic.
//
// A stalled partition is reported, not killed: pausing a partition for
// quota reasons is an expected, long-lived state in this system, and a
// watchdog that panics on "no messages consumed" would fire constantly
// against a correctly-paused partition.
package liveness

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/uber/jaeger-lib/metrics"
	"go.uber.org/zap"
)

// StallReporter is notified when a tracked partition produces zero touches
// during a check interval.
type StallReporter interface {
	ReportStalled(partition int32)
}

// StallReporterFunc adapts a plain function to StallReporter.
type StallReporterFunc func(partition int32)

// ReportStalled implements StallReporter.
func (f StallReporterFunc) ReportStalled(partition int32) {
	f(partition)
}

// LivenessWatchdog tracks liveness of a set of partitions, reporting any
// partition that records zero Touch calls during a check interval.
type LivenessWatchdog struct {
	metricsFactory metrics.Factory
	logger         *zap.Logger
	interval       time.Duration
	reporter       StallReporter
}

// NewLivenessWatchdog builds a LivenessWatchdog that reports through
// reporter at the given check interval.
func NewLivenessWatchdog(factory metrics.Factory, logger *zap.Logger, interval time.Duration, reporter StallReporter) *LivenessWatchdog {
	return &LivenessWatchdog{
		metricsFactory: factory,
		logger:         logger,
		interval:       interval,
		reporter:       reporter,
	}
}

// Track starts monitoring the given partition and returns a handle used to
// record activity and stop tracking.
func (w *LivenessWatchdog) Track(partition int32) *PartitionLiveness {
	p := &PartitionLiveness{
		partition: partition,
		logger:    w.logger,
		done:      make(chan struct{}),
	}

	counter := w.metricsFactory.Counter("liveness.partition-stalled", map[string]string{"partition": strconv.Itoa(int(partition))})

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.done:
				w.logger.Debug("Closing liveness ticker", zap.Int32("partition", partition))
				return
			case <-ticker.C:
				if atomic.SwapUint64(&p.touched, 0) == 0 {
					counter.Inc(1)
					w.logger.Warn("No messages consumed on partition in the last check interval", zap.Int32("partition", partition))
					if w.reporter != nil {
						w.reporter.ReportStalled(partition)
					}
				}
			}
		}
	}()

	return p
}

// PartitionLiveness tracks message-consumption activity for a single
// partition on behalf of a LivenessWatchdog.
type PartitionLiveness struct {
	touched   uint64
	partition int32
	logger    *zap.Logger
	done      chan struct{}
}

// Touch records that a message was consumed on this partition since the
// last check interval.
func (p *PartitionLiveness) Touch() {
	atomic.AddUint64(&p.touched, 1)
}

// Close stops monitoring this partition.
func (p *PartitionLiveness) Close() {
	p.logger.Debug("Closing partition liveness tracker", zap.Int32("partition", p.partition))
	close(p.done)
}
