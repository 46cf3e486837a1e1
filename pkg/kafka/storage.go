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

package kafka

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DiskStorageEngine reports per-partition storage usage by summing file
// sizes under {baseDir}/{topic}/{partition}, caching the result and
// refreshing it on a timer rather than re-walking the directory tree on
// every call - the same cached-used-bytes shape a partition reports
// against its own on-disk extents, refreshed on a periodic scheduler
// instead of recomputed per request.
type DiskStorageEngine struct {
	baseDir string

	mu    sync.RWMutex
	cache map[partitionKey]int64

	stopC chan struct{}
}

// NewDiskStorageEngine constructs a DiskStorageEngine rooted at baseDir and
// starts its background refresh loop at the given interval.
func NewDiskStorageEngine(baseDir string, refreshInterval time.Duration) *DiskStorageEngine {
	e := &DiskStorageEngine{
		baseDir: baseDir,
		cache:   make(map[partitionKey]int64),
		stopC:   make(chan struct{}),
	}
	go e.refreshLoop(refreshInterval)
	return e
}

// PartitionSizeInBytes implements quota.StorageEngine. The first query for
// a partition walks its directory synchronously so a freshly observed
// partition doesn't report a false zero baseline; subsequent queries serve
// the cached value until the next refresh tick.
func (e *DiskStorageEngine) PartitionSizeInBytes(topic string, partition int32) (int64, error) {
	key := partitionKey{Topic: topic, Partition: partition}

	e.mu.RLock()
	size, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return size, nil
	}

	size, err := e.walkPartitionDir(topic, partition)
	if err != nil {
		return 0, errors.Wrapf(err, "scanning partition directory for %s/%d", topic, partition)
	}
	e.mu.Lock()
	e.cache[key] = size
	e.mu.Unlock()
	return size, nil
}

func (e *DiskStorageEngine) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.refreshAll()
		case <-e.stopC:
			return
		}
	}
}

func (e *DiskStorageEngine) refreshAll() {
	e.mu.RLock()
	keys := make([]partitionKey, 0, len(e.cache))
	for k := range e.cache {
		keys = append(keys, k)
	}
	e.mu.RUnlock()

	for _, k := range keys {
		size, err := e.walkPartitionDir(k.Topic, k.Partition)
		if err != nil {
			continue
		}
		e.mu.Lock()
		e.cache[k] = size
		e.mu.Unlock()
	}
}

func (e *DiskStorageEngine) walkPartitionDir(topic string, partition int32) (int64, error) {
	dir := e.partitionDir(topic, partition)
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	return total, nil
}

func (e *DiskStorageEngine) partitionDir(topic string, partition int32) string {
	return filepath.Join(e.baseDir, topic, strconv.Itoa(int(partition)))
}

// Close stops the background refresh loop.
func (e *DiskStorageEngine) Close() {
	close(e.stopC)
}

func (e *DiskStorageEngine) String() string {
	return fmt.Sprintf("DiskStorageEngine(%s)", e.baseDir)
}
