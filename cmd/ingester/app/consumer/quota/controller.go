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
	"sync"

	"github.com/uber/jaeger-lib/metrics"
	"go.uber.org/zap"

	"github.com/hybridstore/ingest-quota/cmd/ingester/app/consumer/liveness"
)

// PartitionBytes is one (partition, bytes-consumed) observation from a
// single ingestion batch. CheckPartitionQuota processes a batch of these
// in slice order, which is the only ordering the spec guarantees (map
// iteration order in other languages is not reproducible, so this package
// takes an ordered slice rather than a map).
type PartitionBytes struct {
	Partition int32
	Bytes     int64
}

// Controller is the EnforcementController: the state machine tying the
// tracker, evaluator, pause set, resolver and suppressor together. All
// state transitions run under a single mutex (checkPartitionQuota and
// handleStoreChanged are mutually exclusive) rather than a lock per field.
type Controller struct {
	mu sync.Mutex

	storeName      string
	versionTopic   string
	versionNumber  int
	partitionCount int
	codec          VersionTopicCodec

	task        IngestionTask
	stateLookup PartitionConsumptionStateLookup
	suppressor  RedundantLogSuppressor
	logger      *zap.Logger

	tracker   *PartitionUsageTracker
	evaluator *QuotaEvaluator
	paused    *PauseSet
	resolver  *ConsumingTopicResolver
	metrics   controllerMetrics

	versionOnline bool

	watchdog *liveness.LivenessWatchdog
	liveness map[int32]*liveness.PartitionLiveness
}

// controllerMetrics counts pause/resume/violation decisions, namespaced
// per store so a dashboard can tell one store's churn from another's.
type controllerMetrics struct {
	paused   metrics.Counter
	resumed  metrics.Counter
	violated metrics.Counter
}

func newControllerMetrics(factory metrics.Factory, storeName string) controllerMetrics {
	if factory == nil {
		factory = metrics.NullFactory
	}
	ns := factory.Namespace("quota", map[string]string{"store": storeName})
	return controllerMetrics{
		paused:   ns.Counter("partition.paused", nil),
		resumed:  ns.Counter("partition.resumed", nil),
		violated: ns.Counter("partition.violated", nil),
	}
}

// NewController constructs an enforcer bound to one version topic inside
// one ingestion task. It loads the initial quota and version-online state
// from storeSnapshot; an absent version is a fatal MissingVersionError,
// just as it is from handleStoreChanged. metricsFactory may be nil, in
// which case pause/resume/violation counters are discarded.
func NewController(
	task IngestionTask,
	storage StorageEngine,
	storeSnapshot StoreSnapshot,
	versionTopic string,
	partitionCount int,
	stateLookup PartitionConsumptionStateLookup,
	codec VersionTopicCodec,
	metricsFactory metrics.Factory,
	logger *zap.Logger,
) (*Controller, error) {
	versionNumber, err := codec.ParseVersionNumber(versionTopic)
	if err != nil {
		return nil, err
	}
	version, ok := storeSnapshot.GetVersion(versionNumber)
	if !ok {
		return nil, newMissingVersionError(storeSnapshot.Name, versionTopic, versionNumber)
	}

	c := &Controller{
		storeName:      storeSnapshot.Name,
		versionTopic:   versionTopic,
		versionNumber:  versionNumber,
		partitionCount: partitionCount,
		codec:          codec,
		task:           task,
		stateLookup:    stateLookup,
		suppressor:     task.RedundantLogFilter(),
		logger:         logger,
		tracker:        NewPartitionUsageTracker(versionTopic, storage),
		evaluator:      NewQuotaEvaluator(storeSnapshot.Name, task.Metrics(), task.MetricsEmissionEnabled()),
		paused:         NewPauseSet(),
		resolver:       NewConsumingTopicResolver(versionTopic, stateLookup),
		metrics:        newControllerMetrics(metricsFactory, storeSnapshot.Name),
	}
	c.evaluator.Refresh(storeSnapshot.StorageQuotaInBytes, partitionCount)
	if version.Status == VersionStatusOnline {
		c.versionOnline = true
	}
	return c, nil
}

// SetLivenessWatchdog attaches a partition liveness watchdog: every
// partition CheckPartitionQuota observes is tracked and touched, so a
// partition whose log consumer has stalled (and so never reaches
// CheckPartitionQuota) gets reported by the watchdog instead of going
// unnoticed. Optional; a nil watchdog (the default) disables tracking.
func (c *Controller) SetLivenessWatchdog(w *liveness.LivenessWatchdog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchdog = w
	c.liveness = make(map[int32]*liveness.PartitionLiveness)
}

// CheckPartitionQuota is the hot-path entry point: for every partition in
// batch, update its usage estimate, evaluate it against the current quota,
// and pause or resume the consumer accordingly. Errors from the storage
// engine, a consumer's Pause/Resume, or a report call abort processing of
// the remaining batch entries and propagate to the caller; bookkeeping for
// entries already processed in this call has already taken effect.
func (c *Controller) CheckPartitionQuota(batch []PartitionBytes) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pb := range batch {
		if err := c.checkOnePartition(pb.Partition, pb.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) checkOnePartition(partition int32, bytes int64) error {
	c.touchLiveness(partition)

	usage, err := c.tracker.Add(partition, bytes)
	if err != nil {
		return err
	}

	topic := c.resolver.ConsumingTopic(partition)
	id := suppressionID(topic, partition)
	shouldLog := !c.suppressor.IsRedundant(id)

	exceeded, err := c.evaluator.IsExceeded(usage)
	if err != nil {
		return err
	}

	if exceeded {
		return c.handleExceeded(partition, topic, shouldLog)
	}
	return c.handleWithinQuota(partition, topic)
}

func (c *Controller) handleExceeded(partition int32, topic string, shouldLog bool) error {
	c.task.ReportQuotaViolated(partition)
	c.metrics.violated.Inc(1)

	if c.versionOnline {
		if state, ok := c.stateLookup(partition); ok && !state.IsCompletionReported() {
			if err := c.task.NotificationDispatcher().ReportCompleted(state); err != nil {
				return err
			}
		}
	}

	for _, consumer := range c.task.Consumers() {
		if err := consumer.Pause(topic, partition); err != nil {
			return wrapConsumerControlError(err, "pause", topic, partition)
		}
	}
	c.paused.Add(partition)
	c.metrics.paused.Inc(1)

	if shouldLog {
		c.logger.Info("partition storage quota exceeded, pausing consumption",
			zap.String("store", c.storeName),
			zap.String("topic", topic),
			zap.Int32("partition", partition),
			zap.Int64("perPartitionQuotaBytes", c.evaluator.PerPartitionQuotaBytes()),
		)
	}
	return nil
}

func (c *Controller) handleWithinQuota(partition int32, topic string) error {
	c.task.ReportQuotaNotViolated(partition)

	if !c.paused.Contains(partition) {
		return nil
	}

	for _, consumer := range c.task.Consumers() {
		if err := consumer.Resume(topic, partition); err != nil {
			return wrapConsumerControlError(err, "resume", topic, partition)
		}
	}
	c.paused.Remove(partition)
	c.metrics.resumed.Inc(1)
	c.logger.Info("partition back within storage quota, resuming consumption",
		zap.String("store", c.storeName),
		zap.String("topic", topic),
		zap.Int32("partition", partition),
	)
	return nil
}

// HandleStoreChanged refreshes the cached quota and version-online flag
// from a store metadata snapshot. Events for other stores are ignored: the
// listener that calls this is shared across stores. An absent version is a
// fatal MissingVersionError. versionOnline only ever transitions false to
// true; a non-ONLINE status on an already-online version never unlatches
// it.
func (c *Controller) HandleStoreChanged(snapshot StoreSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snapshot.Name != c.storeName {
		return nil
	}

	version, ok := snapshot.GetVersion(c.versionNumber)
	if !ok {
		return newMissingVersionError(c.storeName, c.versionTopic, c.versionNumber)
	}
	if version.Status == VersionStatusOnline {
		c.versionOnline = true
	}

	c.evaluator.Refresh(snapshot.StorageQuotaInBytes, c.partitionCount)
	return nil
}

// Reconcile resamples every known partition's usage from the storage
// engine, correcting any drift the incremental hot-path counter
// accumulated. Intended to be called periodically (pkg/config's
// reconcile-interval), independent of CheckPartitionQuota.
func (c *Controller) Reconcile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, partition := range c.tracker.KnownPartitions() {
		if err := c.tracker.Reconcile(partition); err != nil {
			return err
		}
	}
	return nil
}

// PausedPartitions returns the partitions this enforcer currently believes
// it has paused.
func (c *Controller) PausedPartitions() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused.Partitions()
}

// VersionOnline reports the current value of the version-online latch.
func (c *Controller) VersionOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionOnline
}

// PerPartitionQuotaBytes reports the currently configured per-partition
// quota, as last computed from the store's quota and partition count.
func (c *Controller) PerPartitionQuotaBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluator.PerPartitionQuotaBytes()
}

func (c *Controller) touchLiveness(partition int32) {
	if c.watchdog == nil {
		return
	}
	p, ok := c.liveness[partition]
	if !ok {
		p = c.watchdog.Track(partition)
		c.liveness[partition] = p
	}
	p.Touch()
}

func suppressionID(topic string, partition int32) string {
	return topic + "_" + strconv.Itoa(int(partition)) + "_quota_exceeded"
}
