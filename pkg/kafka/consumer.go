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

// Package kafka provides reference implementations of the external
// collaborators the quota enforcer depends on (a log consumer, a storage
// engine, a version-topic codec) backed by a real Kafka client and local
// disk, so the enforcer has something concrete to run against outside of
// tests.
package kafka

import (
	"sync"
	"time"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// partitionKey identifies one (topic, partition) pair being consumed.
type partitionKey struct {
	Topic     string
	Partition int32
}

// consumerGroup is the subset of *cluster.Consumer this package relies on,
// broken out as an interface so tests can substitute a fake group without a
// live broker.
type consumerGroup interface {
	Partitions() <-chan cluster.PartitionConsumer
	Notifications() <-chan *cluster.Notification
	Errors() <-chan error
	MarkOffset(msg *sarama.ConsumerMessage, metadata string)
	Close() error
}

// Consumer is a LogConsumer backed by a sarama-cluster consumer group. Each
// claimed partition gets its own read loop; Pause/Resume toggle an atomic
// flag that the read loop polls before pulling the next message off the
// underlying partition consumer and again before forwarding a message it
// has already pulled, so a paused partition stops draining its buffered
// messages (at most one is held back, undelivered) rather than discarding them - the
// resulting backpressure is what actually slows consumption, the same
// effect a native per-partition pause would have.
type Consumer struct {
	group    consumerGroup
	logger   *zap.Logger
	messages chan *sarama.ConsumerMessage

	mu         sync.Mutex
	partitions map[partitionKey]*partitionLoop

	stopC chan struct{}
	doneC chan struct{}
}

// NewConsumer joins the given consumer group and subscribes to topics.
func NewConsumer(brokers []string, groupID string, topics []string, config *cluster.Config, logger *zap.Logger) (*Consumer, error) {
	group, err := cluster.NewConsumer(brokers, groupID, topics, config)
	if err != nil {
		return nil, err
	}
	return newConsumer(group, logger), nil
}

func newConsumer(group consumerGroup, logger *zap.Logger) *Consumer {
	return &Consumer{
		group:      group,
		logger:     logger,
		messages:   make(chan *sarama.ConsumerMessage, 256),
		partitions: make(map[partitionKey]*partitionLoop),
		stopC:      make(chan struct{}),
		doneC:      make(chan struct{}),
	}
}

// Messages returns the channel on which consumed, unpaused messages are
// delivered.
func (c *Consumer) Messages() <-chan *sarama.ConsumerMessage {
	return c.messages
}

// Run drives partition claim/release notifications and consumer-group
// errors until Close is called. Intended to run in its own goroutine.
func (c *Consumer) Run() {
	c.logger.Info("kafka consumer group started")
	for {
		select {
		case pc, ok := <-c.group.Partitions():
			if !ok {
				close(c.doneC)
				return
			}
			c.addPartition(pc)
		case note, ok := <-c.group.Notifications():
			if ok {
				c.logger.Info("consumer group rebalanced",
					zap.Any("claimed", note.Claimed), zap.Any("released", note.Released))
			}
		case err, ok := <-c.group.Errors():
			if ok {
				c.logger.Error("kafka consumer group error", zap.Error(err))
			}
		case <-c.stopC:
			c.shutdown()
			return
		}
	}
}

func (c *Consumer) addPartition(pc cluster.PartitionConsumer) {
	key := partitionKey{Topic: pc.Topic(), Partition: pc.Partition()}
	loop := &partitionLoop{
		key:      key,
		pc:       pc,
		group:    c.group,
		output:   c.messages,
		logger:   c.logger,
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
		paused:   atomic.NewBool(false),
	}

	c.mu.Lock()
	c.partitions[key] = loop
	c.mu.Unlock()

	go loop.run()
}

// Pause implements quota.LogConsumer: it stops this partition's read loop
// from draining pc.Messages(), applying backpressure without closing the
// partition consumer (a rebalance would be far more disruptive than a
// temporary pause).
func (c *Consumer) Pause(topic string, partition int32) error {
	return c.setPaused(topic, partition, true)
}

// Resume implements quota.LogConsumer.
func (c *Consumer) Resume(topic string, partition int32) error {
	return c.setPaused(topic, partition, false)
}

func (c *Consumer) setPaused(topic string, partition int32, paused bool) error {
	c.mu.Lock()
	loop, ok := c.partitions[partitionKey{Topic: topic, Partition: partition}]
	c.mu.Unlock()
	if !ok {
		// A pause/resume for a partition we haven't claimed yet (or have
		// already released) is not an error: the quota enforcer issues
		// pause/resume on every tick regardless of prior state, and
		// partition ownership can lag a rebalance by design.
		return nil
	}
	loop.paused.Store(paused)
	return nil
}

// Close stops the consumer group and all partition loops.
func (c *Consumer) Close() error {
	close(c.stopC)
	<-c.doneC
	return c.group.Close()
}

func (c *Consumer) shutdown() {
	c.mu.Lock()
	loops := make([]*partitionLoop, 0, len(c.partitions))
	for _, l := range c.partitions {
		loops = append(loops, l)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l *partitionLoop) {
			defer wg.Done()
			l.close()
		}(l)
	}
	wg.Wait()
	close(c.doneC)
}

// partitionLoop reads from one claimed partition and forwards messages
// downstream unless paused.
type partitionLoop struct {
	key    partitionKey
	pc     cluster.PartitionConsumer
	group  consumerGroup
	output chan<- *sarama.ConsumerMessage
	logger *zap.Logger
	paused *atomic.Bool
	stopC  chan struct{}
	doneC  chan struct{}
}

func (p *partitionLoop) run() {
	defer close(p.doneC)
	p.logger.Info("partition claimed", zap.String("topic", p.key.Topic), zap.Int32("partition", p.key.Partition))

	for {
		if p.paused.Load() {
			select {
			case <-time.After(50 * time.Millisecond):
				continue
			case <-p.stopC:
				return
			}
		}

		select {
		case m, ok := <-p.pc.Messages():
			if !ok {
				return
			}
			for p.paused.Load() {
				select {
				case <-time.After(50 * time.Millisecond):
				case <-p.stopC:
					return
				}
			}
			select {
			case p.output <- m:
				p.group.MarkOffset(m, "")
			case <-p.stopC:
				return
			}
		case <-p.stopC:
			return
		}
	}
}

func (p *partitionLoop) close() {
	close(p.stopC)
	<-p.doneC
	p.pc.Close()
}
