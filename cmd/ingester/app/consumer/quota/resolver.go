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

// ConsumingTopicResolver returns the topic a partition is actually being
// polled from: the version topic, unless the partition is in the leader
// state and has a recorded leader topic, in which case the leader topic.
// This matters during leader-follower handoff, when a leader temporarily
// consumes a real-time topic instead of the version topic it would
// otherwise be addressed on.
type ConsumingTopicResolver struct {
	versionTopic string
	lookup       PartitionConsumptionStateLookup
}

// NewConsumingTopicResolver returns a resolver defaulting to versionTopic.
func NewConsumingTopicResolver(versionTopic string, lookup PartitionConsumptionStateLookup) *ConsumingTopicResolver {
	return &ConsumingTopicResolver{versionTopic: versionTopic, lookup: lookup}
}

// ConsumingTopic resolves the topic for partition. Undefined partitions
// (no consumption-state entry) resolve to the version topic.
func (r *ConsumingTopicResolver) ConsumingTopic(partition int32) string {
	state, ok := r.lookup(partition)
	if !ok {
		return r.versionTopic
	}
	if state.LeaderState() != Leader {
		return r.versionTopic
	}
	leaderTopic, ok := state.LeaderTopic()
	if !ok || leaderTopic == "" {
		return r.versionTopic
	}
	return leaderTopic
}
