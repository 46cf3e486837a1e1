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

// PauseSet tracks which partitions this enforcer has paused. Membership
// governs whether the enforcer issued a pause, not whether the consumer is
// actually paused right now: after a restart the set is empty even if the
// consumer never received a resume.
type PauseSet struct {
	paused map[int32]struct{}
}

// NewPauseSet returns an empty set.
func NewPauseSet() *PauseSet {
	return &PauseSet{paused: make(map[int32]struct{})}
}

// Add marks partition as paused. Idempotent.
func (s *PauseSet) Add(partition int32) {
	s.paused[partition] = struct{}{}
}

// Remove unmarks partition. Idempotent; removing a partition that was
// never paused is not an error.
func (s *PauseSet) Remove(partition int32) {
	delete(s.paused, partition)
}

// Contains reports whether partition is currently marked paused.
func (s *PauseSet) Contains(partition int32) bool {
	_, ok := s.paused[partition]
	return ok
}

// Partitions returns the currently paused partitions. Order is undefined.
func (s *PauseSet) Partitions() []int32 {
	out := make([]int32, 0, len(s.paused))
	for p := range s.paused {
		out = append(out, p)
	}
	return out
}
