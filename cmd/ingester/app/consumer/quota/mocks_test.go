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

package quota

import (
	"strconv"
	"strings"
	"sync"
)

// fakeStorageEngine reports a fixed baseline per partition and records
// every query it served.
type fakeStorageEngine struct {
	mu       sync.Mutex
	baseline map[int32]int64
	err      error
	queries  int
}

func newFakeStorageEngine() *fakeStorageEngine {
	return &fakeStorageEngine{baseline: make(map[int32]int64)}
}

func (f *fakeStorageEngine) PartitionSizeInBytes(topic string, partition int32) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return 0, f.err
	}
	return f.baseline[partition], nil
}

// fakeConsumer records every Pause/Resume call it receives.
type fakeConsumer struct {
	mu       sync.Mutex
	paused   []PartitionBytesKey
	resumed  []PartitionBytesKey
	pauseErr error
}

// PartitionBytesKey identifies a (topic, partition) pair a fake recorded a
// call for.
type PartitionBytesKey struct {
	Topic     string
	Partition int32
}

func (f *fakeConsumer) Pause(topic string, partition int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pauseErr != nil {
		return f.pauseErr
	}
	f.paused = append(f.paused, PartitionBytesKey{topic, partition})
	return nil
}

func (f *fakeConsumer) Resume(topic string, partition int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, PartitionBytesKey{topic, partition})
	return nil
}

// fakeDispatcher records ReportCompleted calls.
type fakeDispatcher struct {
	mu        sync.Mutex
	completed []PartitionConsumptionState
}

func (f *fakeDispatcher) ReportCompleted(state PartitionConsumptionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, state)
	return nil
}

// fakeMetricsSink records ratio values reported per store.
type fakeMetricsSink struct {
	mu     sync.Mutex
	ratios []float64
}

func (f *fakeMetricsSink) RecordStorageQuotaUsed(storeName string, ratio float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratios = append(f.ratios, ratio)
	return nil
}

// fakeTask is a minimal IngestionTask.
type fakeTask struct {
	consumers      []LogConsumer
	dispatcher     *fakeDispatcher
	metrics        *fakeMetricsSink
	metricsEnabled bool
	suppressor     RedundantLogSuppressor

	mu        sync.Mutex
	violated  []int32
	notViolated []int32
}

func newFakeTask(consumers ...LogConsumer) *fakeTask {
	return &fakeTask{
		consumers:  consumers,
		dispatcher: &fakeDispatcher{},
		metrics:    &fakeMetricsSink{},
		suppressor: NewIntervalLogSuppressor(0),
	}
}

func (f *fakeTask) Consumers() []LogConsumer                     { return f.consumers }
func (f *fakeTask) NotificationDispatcher() NotificationDispatcher { return f.dispatcher }
func (f *fakeTask) MetricsEmissionEnabled() bool                  { return f.metricsEnabled }
func (f *fakeTask) Metrics() MetricsSink                          { return f.metrics }
func (f *fakeTask) RedundantLogFilter() RedundantLogSuppressor    { return f.suppressor }

func (f *fakeTask) ReportQuotaViolated(partition int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violated = append(f.violated, partition)
}

func (f *fakeTask) ReportQuotaNotViolated(partition int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notViolated = append(f.notViolated, partition)
}

// fakeConsumptionState is a minimal PartitionConsumptionState.
type fakeConsumptionState struct {
	leader            LeaderState
	leaderTopic       string
	hasLeaderTopic    bool
	completionReported bool
}

func (s *fakeConsumptionState) LeaderState() LeaderState { return s.leader }
func (s *fakeConsumptionState) LeaderTopic() (string, bool) {
	return s.leaderTopic, s.hasLeaderTopic
}
func (s *fakeConsumptionState) IsCompletionReported() bool { return s.completionReported }

// fakeCodec parses "name_v<N>", the same convention pkg/kafka's
// VersionTopicCodec implements for real, kept independent here so this
// package's tests do not import pkg/kafka.
type fakeCodec struct{}

func (fakeCodec) ParseVersionNumber(versionTopic string) (int, error) {
	idx := strings.LastIndex(versionTopic, "_v")
	if idx < 0 {
		return 0, errNoVersionSuffix
	}
	return strconv.Atoi(versionTopic[idx+2:])
}

var errNoVersionSuffix = &fakeCodecError{"missing _v<N> suffix"}

type fakeCodecError struct{ msg string }

func (e *fakeCodecError) Error() string { return e.msg }
