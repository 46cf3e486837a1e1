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

// Package registry provides a minimal, in-memory implementation of the
// store/version registry the quota enforcer subscribes to. A production
// deployment would back this with an external coordination service
// (etcd, zookeeper); this gives the enforcer and its tests something real
// to subscribe to without one.
package registry

import (
	"sync"

	"github.com/hybridstore/ingest-quota/cmd/ingester/app/consumer/quota"
)

// Listener receives store lifecycle callbacks, matching quota's
// StoreChangeListener adapter.
type Listener interface {
	HandleStoreCreated(snapshot quota.StoreSnapshot)
	HandleStoreDeleted(storeName string)
	HandleStoreChanged(snapshot quota.StoreSnapshot)
}

// Client is a read-only, in-memory registry of store snapshots. Mutation
// methods (Create/Update/Delete) are how a local test or a polling
// reconciliation loop pushes registry changes in; Client itself never
// originates them.
type Client struct {
	mu        sync.RWMutex
	snapshots map[string]quota.StoreSnapshot
	listeners []Listener
}

// NewClient returns an empty registry client.
func NewClient() *Client {
	return &Client{
		snapshots: make(map[string]quota.StoreSnapshot),
	}
}

// Subscribe registers a listener for future store lifecycle events. It does
// not replay existing stores; callers that need the current state should
// call Snapshot first.
func (c *Client) Subscribe(listener Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// Snapshot returns the currently known snapshot for a store.
func (c *Client) Snapshot(storeName string) (quota.StoreSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshots[storeName]
	return s, ok
}

// CreateStore registers a new store and notifies subscribers.
func (c *Client) CreateStore(snapshot quota.StoreSnapshot) {
	c.mu.Lock()
	c.snapshots[snapshot.Name] = snapshot
	listeners := c.listenersCopy()
	c.mu.Unlock()

	for _, l := range listeners {
		l.HandleStoreCreated(snapshot)
	}
}

// UpdateStore replaces the snapshot for an existing store (quota change,
// new version, version-online transition) and notifies subscribers.
func (c *Client) UpdateStore(snapshot quota.StoreSnapshot) {
	c.mu.Lock()
	c.snapshots[snapshot.Name] = snapshot
	listeners := c.listenersCopy()
	c.mu.Unlock()

	for _, l := range listeners {
		l.HandleStoreChanged(snapshot)
	}
}

// DeleteStore removes a store and notifies subscribers.
func (c *Client) DeleteStore(storeName string) {
	c.mu.Lock()
	delete(c.snapshots, storeName)
	listeners := c.listenersCopy()
	c.mu.Unlock()

	for _, l := range listeners {
		l.HandleStoreDeleted(storeName)
	}
}

func (c *Client) listenersCopy() []Listener {
	out := make([]Listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}
