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

// Package builder assembles a quota.Controller, plus its liveness watchdog
// and periodic reconciliation job, from functional options.
package builder

import (
	"time"

	"github.com/uber/jaeger-lib/metrics"
	"go.uber.org/zap"

	"github.com/hybridstore/ingest-quota/pkg/config"
)

// Option mutates a Parameters value during ApplyOptions.
type Option func(*Parameters)

// Parameters holds the resolved construction inputs for a quota.Controller
// that aren't part of a store's registry snapshot.
type Parameters struct {
	Logger                *zap.Logger
	MetricsFactory        metrics.Factory
	PartitionCount        int
	ReconcileInterval     time.Duration
	LivenessCheckInterval time.Duration
}

type options struct{}

// Options exposes one builder function per configurable Parameters field.
var Options options

// LoggerOption sets the logger passed to the controller and its watchdog.
func (options) LoggerOption(logger *zap.Logger) Option {
	return func(p *Parameters) { p.Logger = logger }
}

// MetricsFactoryOption sets the metrics factory used by the liveness
// watchdog and the controller's pause/resume/violation counters. The quota
// evaluator's usage ratio goes to the ingestion task's MetricsSink instead.
func (options) MetricsFactoryOption(factory metrics.Factory) Option {
	return func(p *Parameters) { p.MetricsFactory = factory }
}

// PartitionCountOption sets how many partitions the version topic has.
func (options) PartitionCountOption(n int) Option {
	return func(p *Parameters) { p.PartitionCount = n }
}

// ReconcileIntervalOption sets how often partition usage is reconciled
// against the storage engine outside the hot path.
func (options) ReconcileIntervalOption(d time.Duration) Option {
	return func(p *Parameters) { p.ReconcileInterval = d }
}

// LivenessCheckIntervalOption sets the partition liveness watchdog's check
// interval.
func (options) LivenessCheckIntervalOption(d time.Duration) Option {
	return func(p *Parameters) { p.LivenessCheckInterval = d }
}

// FromConfig translates a pkg/config.Configuration (as registered by
// config.AddFlags and resolved by config.InitFromViper) into the matching
// builder Options, so a binary's viper-backed flags reach the Controller
// and its watchdog instead of the package defaults.
func FromConfig(cfg config.Configuration) []Option {
	return []Option{
		Options.ReconcileIntervalOption(cfg.ReconcileInterval),
		Options.LivenessCheckIntervalOption(cfg.LivenessCheckInterval),
	}
}

// ApplyOptions folds opts over a zero Parameters value and fills in
// defaults for anything left unset.
func ApplyOptions(opts ...Option) Parameters {
	p := Parameters{}
	for _, opt := range opts {
		opt(&p)
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.MetricsFactory == nil {
		p.MetricsFactory = metrics.NullFactory
	}
	if p.PartitionCount == 0 {
		p.PartitionCount = 1
	}
	if p.ReconcileInterval == 0 {
		p.ReconcileInterval = 5 * time.Minute
	}
	if p.LivenessCheckInterval == 0 {
		p.LivenessCheckInterval = 30 * time.Second
	}
	return p
}
