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

import "go.uber.org/atomic"

// partitionUsage holds the running on-disk byte estimate for one
// partition. The estimate is seeded from the storage engine on first touch
// so that a process restart, which always starts with an empty tracker,
// does not pretend the partition is empty.
type partitionUsage struct {
	bytes atomic.Int64
}

func (u *partitionUsage) add(n int64) int64 {
	return u.bytes.Add(n)
}

func (u *partitionUsage) get() int64 {
	return u.bytes.Load()
}

// PartitionUsageTracker blends cheap incremental byte accounting (record
// sizes reported off the consumer hot path) with a one-time baseline
// sampled from the storage engine, so usage survives process restarts
// without having to persist anything.
//
// Callers must already hold whatever lock guards the owning controller's
// state; PartitionUsageTracker does no locking of its own, so its map is
// guarded only by that caller-held lock.
type PartitionUsageTracker struct {
	topic   string
	storage StorageEngine
	usage   map[int32]*partitionUsage
}

// NewPartitionUsageTracker returns a tracker that seeds first-touch
// baselines for topic's partitions from storage.
func NewPartitionUsageTracker(topic string, storage StorageEngine) *PartitionUsageTracker {
	return &PartitionUsageTracker{
		topic:   topic,
		storage: storage,
		usage:   make(map[int32]*partitionUsage),
	}
}

// Add records bytes consumed from partition, creating the entry (seeded
// from the storage engine's current reported size) on first touch. bytes
// must be non-negative. Returns the new running total.
//
// Any error from the storage engine during the first-touch sample
// propagates to the caller unwrapped of retry: there is none here.
func (t *PartitionUsageTracker) Add(partition int32, bytes int64) (int64, error) {
	u, ok := t.usage[partition]
	if !ok {
		baseline, err := t.storage.PartitionSizeInBytes(t.topic, partition)
		if err != nil {
			return 0, wrapStorageEngineError(err, t.topic, partition)
		}
		u = &partitionUsage{}
		u.bytes.Store(baseline)
		t.usage[partition] = u
	}
	return u.add(bytes), nil
}

// Usage returns the current running estimate for partition, or 0 if the
// partition has never been touched.
func (t *PartitionUsageTracker) Usage(partition int32) int64 {
	u, ok := t.usage[partition]
	if !ok {
		return 0
	}
	return u.get()
}

// Reconcile replaces partition's running estimate with the storage
// engine's current authoritative size, discarding any drift the
// incremental counter accumulated. It is not called from the hot path by
// default (see pkg/config's reconcile-interval); it exists so a
// periodically-scheduled background job can correct for skew without
// resetting usage to zero the way a naive restart would.
func (t *PartitionUsageTracker) Reconcile(partition int32) error {
	size, err := t.storage.PartitionSizeInBytes(t.topic, partition)
	if err != nil {
		return wrapStorageEngineError(err, t.topic, partition)
	}
	u, ok := t.usage[partition]
	if !ok {
		u = &partitionUsage{}
		t.usage[partition] = u
	}
	u.bytes.Store(size)
	return nil
}

// KnownPartitions returns the set of partitions this tracker has observed.
func (t *PartitionUsageTracker) KnownPartitions() []int32 {
	out := make([]int32, 0, len(t.usage))
	for p := range t.usage {
		out = append(out, p)
	}
	return out
}
