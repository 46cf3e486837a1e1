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

import "go.uber.org/zap"

// StoreChangeListener adapts a Controller to a store-change bus that
// fans events out to every enforcer in an ingestion task, regardless of
// which store each enforcer cares about. Created/deleted events are
// no-ops here; only handleStoreChanged does anything, and it first
// filters to events for its own store.
type StoreChangeListener struct {
	controller *Controller
	logger     *zap.Logger
}

// NewStoreChangeListener returns a listener that forwards matching-store
// change events to controller.
func NewStoreChangeListener(controller *Controller, logger *zap.Logger) *StoreChangeListener {
	return &StoreChangeListener{controller: controller, logger: logger}
}

// HandleStoreCreated is a no-op: a newly created store has no version
// topic this enforcer could already be bound to.
func (l *StoreChangeListener) HandleStoreCreated(snapshot StoreSnapshot) {}

// HandleStoreDeleted is a no-op: the enforcer's ingestion task owns
// tearing itself down when its store is deleted; this listener does not
// drive that.
func (l *StoreChangeListener) HandleStoreDeleted(storeName string) {}

// HandleStoreChanged forwards snapshot to the controller, which ignores
// snapshots for other stores, logging (not swallowing) any resulting error.
func (l *StoreChangeListener) HandleStoreChanged(snapshot StoreSnapshot) {
	if err := l.controller.HandleStoreChanged(snapshot); err != nil {
		l.logger.Error("failed to apply store change",
			zap.String("store", snapshot.Name),
			zap.Error(err))
	}
}
