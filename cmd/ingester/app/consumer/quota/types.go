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

// Package quota implements per-partition on-disk quota enforcement for a
// hybrid store's ingestion task: it decides, on every batch of records
// consumed from a partitioned log, whether a partition should be paused or
// resumed on the underlying consumer.
package quota

// UnlimitedQuota is the distinguished sentinel that disables enforcement
// for a store. Real quota values are always non-negative byte counts.
const UnlimitedQuota int64 = -1

// VersionStatus mirrors the subset of version lifecycle states this
// package cares about; ONLINE is the only status that matters here.
type VersionStatus int

const (
	// VersionStatusUnknown is the zero value; never compared to directly.
	VersionStatusUnknown VersionStatus = iota
	// VersionStatusOnline means the version is serving traffic somewhere
	// in the fleet.
	VersionStatusOnline
	// VersionStatusOther covers every other lifecycle status (started,
	// error, killed, ...); this package only distinguishes ONLINE from
	// not-ONLINE.
	VersionStatusOther
)

// VersionSnapshot is the read-only view of one store version.
type VersionSnapshot struct {
	Number int
	Status VersionStatus
}

// StoreSnapshot is the read-only view of a store's metadata relevant to
// quota enforcement: its name, its storage quota, and its known versions.
type StoreSnapshot struct {
	Name                string
	StorageQuotaInBytes int64
	Versions            map[int]VersionSnapshot
}

// GetVersion returns the snapshot for versionNumber, if known.
func (s StoreSnapshot) GetVersion(versionNumber int) (VersionSnapshot, bool) {
	v, ok := s.Versions[versionNumber]
	return v, ok
}

// VersionTopicCodec parses the version number encoded in a version topic
// name. The encoding itself belongs to the external store/version registry;
// this package only consumes it.
type VersionTopicCodec interface {
	ParseVersionNumber(versionTopic string) (int, error)
}

// StorageEngine is a read-only source of the on-disk byte size of a single
// partition. Implementations are expected to be safe for concurrent use and
// may be expensive, which is why PartitionUsageTracker samples it on a
// partition's first touch and on Reconcile, never on every Add.
type StorageEngine interface {
	PartitionSizeInBytes(topic string, partition int32) (int64, error)
}

// LogConsumer is one underlying consumer handle an ingestion task may hold.
// Implementations must make Pause/Resume idempotent and thread-safe; this
// package relies on that and deliberately never short-circuits repeat
// calls.
type LogConsumer interface {
	Pause(topic string, partition int32) error
	Resume(topic string, partition int32) error
}

// LeaderState distinguishes a partition's replica role.
type LeaderState int

const (
	// NonLeader is every role other than leader (standby, offline, error).
	NonLeader LeaderState = iota
	// Leader means this replica is currently the leader for the partition.
	Leader
)

// PartitionConsumptionState is the subset of a partition's replication
// state this package reads. It is owned and concurrently mutated by the
// ingestion task; this package never locks it.
type PartitionConsumptionState interface {
	LeaderState() LeaderState
	LeaderTopic() (string, bool)
	IsCompletionReported() bool
}

// NotificationDispatcher reports a partition's ingestion completion to
// whatever is watching replica state (e.g. a cluster manager).
type NotificationDispatcher interface {
	ReportCompleted(state PartitionConsumptionState) error
}

// MetricsSink is the subset of the ingestion task's metrics surface this
// package uses.
type MetricsSink interface {
	RecordStorageQuotaUsed(storeName string, ratio float64) error
}

// RedundantLogSuppressor rate-limits noisy, repeating log/notification
// events. The contract is at most one false (non-redundant) return per
// identifier per the suppressor's configured window.
type RedundantLogSuppressor interface {
	IsRedundant(identifier string) bool
}

// IngestionTask is the host this enforcer is embedded in.
type IngestionTask interface {
	Consumers() []LogConsumer
	NotificationDispatcher() NotificationDispatcher
	MetricsEmissionEnabled() bool
	Metrics() MetricsSink
	ReportQuotaViolated(partition int32)
	ReportQuotaNotViolated(partition int32)
	RedundantLogFilter() RedundantLogSuppressor
}

// PartitionConsumptionStateLookup reads the ingestion task's concurrently
// updated partition-consumption-state map. A missing entry is not an
// error: callers treat it the same as "no consumption state yet."
type PartitionConsumptionStateLookup func(partition int32) (PartitionConsumptionState, bool)
