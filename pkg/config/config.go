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

// Package config wires the ingestion quota enforcer's tunables through
// viper, with an AddFlags/InitFromViper split matching the rest of this
// binary's CLI-configurable components.
package config

import (
	"flag"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultStoreBytes      = "ingestion.quota.default-store-bytes"
	reconcileInterval      = "ingestion.quota.reconcile-interval"
	livenessCheckInterval  = "ingestion.liveness.check-interval"

	defaultDefaultStoreBytes     = int64(-1) // quota.UnlimitedQuota
	defaultReconcileInterval     = 5 * time.Minute
	defaultLivenessCheckInterval = 30 * time.Second
)

// Configuration holds the runtime-tunable parameters of the quota enforcer
// that aren't themselves part of a store's registry snapshot.
type Configuration struct {
	// DefaultStoreQuotaBytes seeds a store's quota before its first
	// registry snapshot arrives. -1 means unlimited.
	DefaultStoreQuotaBytes int64

	// ReconcileInterval is how often each PartitionUsageTracker's cached
	// usage is refreshed against the storage engine independent of
	// hot-path Add calls, bounding how stale usage can get under light
	// traffic.
	ReconcileInterval time.Duration

	// LivenessCheckInterval is the tick interval passed to the partition
	// liveness watchdog.
	LivenessCheckInterval time.Duration
}

// AddFlags registers this package's command-line flags.
func AddFlags(flags *flag.FlagSet) {
	flags.Int64(
		defaultStoreBytes,
		defaultDefaultStoreBytes,
		"default per-store storage quota in bytes applied before a registry snapshot is available (-1 = unlimited)")
	flags.Duration(
		reconcileInterval,
		defaultReconcileInterval,
		"how often partition usage is reconciled against the storage engine outside the hot path")
	flags.Duration(
		livenessCheckInterval,
		defaultLivenessCheckInterval,
		"how often the partition liveness watchdog checks for stalled partitions")
}

// InitFromViper builds a Configuration from viper-resolved flag values.
func InitFromViper(v *viper.Viper) Configuration {
	return Configuration{
		DefaultStoreQuotaBytes: v.GetInt64(defaultStoreBytes),
		ReconcileInterval:      v.GetDuration(reconcileInterval),
		LivenessCheckInterval:  v.GetDuration(livenessCheckInterval),
	}
}
