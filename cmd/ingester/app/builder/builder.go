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

package builder

import (
	"time"

	"go.uber.org/zap"

	"github.com/hybridstore/ingest-quota/cmd/ingester/app/consumer/liveness"
	"github.com/hybridstore/ingest-quota/cmd/ingester/app/consumer/quota"
	"github.com/hybridstore/ingest-quota/pkg/config"
)

// Enforcer bundles a quota.Controller with the background jobs (liveness
// watchdog, periodic reconciliation) it was built with.
type Enforcer struct {
	Controller *quota.Controller
	logger     *zap.Logger

	stopC chan struct{}
}

// NewEnforcer constructs a quota.Controller bound to storeSnapshot's
// versionTopic, attaches a liveness watchdog, and starts the periodic
// reconciliation job described by Parameters.ReconcileInterval.
func NewEnforcer(
	task quota.IngestionTask,
	storage quota.StorageEngine,
	storeSnapshot quota.StoreSnapshot,
	versionTopic string,
	stateLookup quota.PartitionConsumptionStateLookup,
	codec quota.VersionTopicCodec,
	opts ...Option,
) (*Enforcer, error) {
	p := ApplyOptions(opts...)

	controller, err := quota.NewController(task, storage, storeSnapshot, versionTopic, p.PartitionCount, stateLookup, codec, p.MetricsFactory, p.Logger)
	if err != nil {
		return nil, err
	}

	watchdog := liveness.NewLivenessWatchdog(p.MetricsFactory, p.Logger, p.LivenessCheckInterval,
		liveness.StallReporterFunc(func(partition int32) {
			p.Logger.Warn("partition consumption appears stalled", zap.Int32("partition", partition))
		}))
	controller.SetLivenessWatchdog(watchdog)

	e := &Enforcer{Controller: controller, logger: p.Logger, stopC: make(chan struct{})}
	go e.reconcileLoop(p.ReconcileInterval)
	return e, nil
}

// DefaultStoreSnapshot builds a placeholder StoreSnapshot for storeName at
// versionNumber, seeded from cfg.DefaultStoreQuotaBytes. It is for callers
// that need to construct an Enforcer before the store registry has
// delivered its first real snapshot: the version starts in
// VersionStatusOther, and a later HandleStoreChanged call with the real
// snapshot refreshes the quota and latches the version online if that
// snapshot reports it ONLINE.
func DefaultStoreSnapshot(cfg config.Configuration, storeName string, versionNumber int) quota.StoreSnapshot {
	return quota.StoreSnapshot{
		Name:                storeName,
		StorageQuotaInBytes: cfg.DefaultStoreQuotaBytes,
		Versions: map[int]quota.VersionSnapshot{
			versionNumber: {Number: versionNumber, Status: quota.VersionStatusOther},
		},
	}
}

func (e *Enforcer) reconcileLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := e.Controller.Reconcile(); err != nil {
				e.logger.Error("partition usage reconciliation failed", zap.Error(err))
			}
		case <-e.stopC:
			return
		}
	}
}

// Close stops the periodic reconciliation job.
func (e *Enforcer) Close() {
	close(e.stopC)
}
