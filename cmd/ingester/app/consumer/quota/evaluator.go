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

// QuotaEvaluator is a pure function of (partition usage, per-partition
// quota, unlimited sentinel) -> exceeded/within. It also emits the
// usage-to-quota ratio to the ingestion task's metrics sink when metrics
// emission is enabled.
type QuotaEvaluator struct {
	storeName              string
	storeQuotaBytes        int64
	perPartitionQuotaBytes int64
	metricsEnabled         bool
	sink                   MetricsSink
}

// NewQuotaEvaluator builds an evaluator for storeName. perPartitionQuotaBytes
// is meaningless (never compared) while storeQuotaBytes is UnlimitedQuota.
func NewQuotaEvaluator(storeName string, sink MetricsSink, metricsEnabled bool) *QuotaEvaluator {
	return &QuotaEvaluator{
		storeName:      storeName,
		metricsEnabled: metricsEnabled,
		sink:           sink,
	}
}

// Refresh updates the evaluator's view of the store's quota.
// perPartitionQuotaBytes is recomputed as floor(storeQuotaBytes/partitionCount)
// unless storeQuotaBytes is UnlimitedQuota.
func (e *QuotaEvaluator) Refresh(storeQuotaBytes int64, partitionCount int) {
	e.storeQuotaBytes = storeQuotaBytes
	if storeQuotaBytes == UnlimitedQuota {
		e.perPartitionQuotaBytes = 0
		return
	}
	e.perPartitionQuotaBytes = storeQuotaBytes / int64(partitionCount)
}

// IsExceeded reports whether usage has met or passed the per-partition
// quota. The comparison is >=, not >: hitting the quota exactly counts as
// exceeded. Always false when the store quota is unlimited, and the ratio
// metric short-circuits before division in that case too.
//
// A non-nil error here always comes from the metrics sink (a ReportFailure)
// and is never swallowed; the exceeded verdict returned alongside it is
// still computed from usage. Controller.checkOnePartition returns such an
// error without pausing or resuming on that verdict.
func (e *QuotaEvaluator) IsExceeded(usage int64) (bool, error) {
	exceeded := false
	if e.storeQuotaBytes != UnlimitedQuota {
		exceeded = usage >= e.perPartitionQuotaBytes
	}
	if e.metricsEnabled && e.sink != nil {
		if err := e.sink.RecordStorageQuotaUsed(e.storeName, e.usageRatio(usage)); err != nil {
			return exceeded, err
		}
	}
	return exceeded, nil
}

// usageRatio computes usage/perPartitionQuotaBytes, 0 when the
// denominator is zero (including the unlimited case, where the ratio is
// not meaningful).
func (e *QuotaEvaluator) usageRatio(usage int64) float64 {
	if e.perPartitionQuotaBytes == 0 {
		return 0
	}
	return float64(usage) / float64(e.perPartitionQuotaBytes)
}

// PerPartitionQuotaBytes exposes the currently configured per-partition
// quota, mainly for tests and logging.
func (e *QuotaEvaluator) PerPartitionQuotaBytes() int64 {
	return e.perPartitionQuotaBytes
}

// StoreQuotaBytes exposes the currently configured store-level quota.
func (e *QuotaEvaluator) StoreQuotaBytes() int64 {
	return e.storeQuotaBytes
}
