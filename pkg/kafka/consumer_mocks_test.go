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
	"sync"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
)

type fakeConsumerGroup struct {
	mu         sync.Mutex
	partitionC chan cluster.PartitionConsumer
	notifyC    chan *cluster.Notification
	errorC     chan error
	offsets    map[int32]int64
	closed     bool
}

func newFakeConsumerGroup() *fakeConsumerGroup {
	return &fakeConsumerGroup{
		partitionC: make(chan cluster.PartitionConsumer, 4),
		notifyC:    make(chan *cluster.Notification, 1),
		errorC:     make(chan error, 1),
		offsets:    make(map[int32]int64),
	}
}

func (f *fakeConsumerGroup) Partitions() <-chan cluster.PartitionConsumer { return f.partitionC }
func (f *fakeConsumerGroup) Notifications() <-chan *cluster.Notification { return f.notifyC }
func (f *fakeConsumerGroup) Errors() <-chan error                        { return f.errorC }

func (f *fakeConsumerGroup) MarkOffset(msg *sarama.ConsumerMessage, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets[msg.Partition] = msg.Offset
}

func (f *fakeConsumerGroup) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	close(f.partitionC)
	return nil
}

func (f *fakeConsumerGroup) markedOffset(partition int32) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off, ok := f.offsets[partition]
	return off, ok
}

// fakePartitionConsumer implements cluster.PartitionConsumer without a live
// broker.
type fakePartitionConsumer struct {
	topic     string
	partition int32
	msgC      chan *sarama.ConsumerMessage
	errC      chan *sarama.ConsumerError
	closed    bool
}

func newFakePartitionConsumer(topic string, partition int32) *fakePartitionConsumer {
	return &fakePartitionConsumer{
		topic:     topic,
		partition: partition,
		msgC:      make(chan *sarama.ConsumerMessage, 16),
		errC:      make(chan *sarama.ConsumerError),
	}
}

func (f *fakePartitionConsumer) sendMessage(offset int64) {
	f.msgC <- &sarama.ConsumerMessage{Topic: f.topic, Partition: f.partition, Offset: offset}
}

func (f *fakePartitionConsumer) AsyncClose() { close(f.msgC) }
func (f *fakePartitionConsumer) Close() error {
	f.closed = true
	return nil
}
func (f *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return f.msgC }
func (f *fakePartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return f.errC }
func (f *fakePartitionConsumer) HighWaterMarkOffset() int64               { return 0 }
func (f *fakePartitionConsumer) Topic() string                            { return f.topic }
func (f *fakePartitionConsumer) Partition() int32                         { return f.partition }
func (f *fakePartitionConsumer) InitialOffset() int64                     { return 0 }
func (f *fakePartitionConsumer) MarkOffset(offset int64, metadata string) {}
func (f *fakePartitionConsumer) ResetOffset(offset int64, metadata string) {}
