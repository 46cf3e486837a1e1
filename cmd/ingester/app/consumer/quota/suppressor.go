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
	"sync"
	"time"
)

// IntervalLogSuppressor is the default RedundantLogSuppressor: it allows
// at most one non-redundant (false) IsRedundant result per identifier per
// window. Uses a simple last-seen timestamp check rather than a ticker
// goroutine, since this collaborator is consulted synchronously on the hot
// path and must not spin up its own goroutine per identifier.
type IntervalLogSuppressor struct {
	window time.Duration
	mu     sync.Mutex
	lastAt map[string]time.Time
	now    func() time.Time
}

// NewIntervalLogSuppressor returns a suppressor allowing one non-redundant
// event per identifier per window.
func NewIntervalLogSuppressor(window time.Duration) *IntervalLogSuppressor {
	return &IntervalLogSuppressor{
		window: window,
		lastAt: make(map[string]time.Time),
		now:    time.Now,
	}
}

// IsRedundant reports whether identifier has already had a non-redundant
// result within the current window. The first call for an identifier, and
// the first call after the window elapses, return false; all others
// return true.
func (s *IntervalLogSuppressor) IsRedundant(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	last, ok := s.lastAt[identifier]
	if ok && now.Sub(last) < s.window {
		return true
	}
	s.lastAt[identifier] = now
	return false
}
