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

import "github.com/pkg/errors"

// ErrMissingVersion is returned when the enforcer's configured version is
// absent from a store snapshot, either at construction or on a metadata
// change.
var ErrMissingVersion = errors.New("quota: version not present in store snapshot")

// MissingVersionError wraps ErrMissingVersion with the identifiers involved,
// so callers can log or branch on it with errors.Is/errors.Cause.
type MissingVersionError struct {
	StoreName    string
	VersionTopic string
	Version      int
}

func (e *MissingVersionError) Error() string {
	return errors.Wrapf(ErrMissingVersion, "store=%s versionTopic=%s version=%d",
		e.StoreName, e.VersionTopic, e.Version).Error()
}

// Cause makes MissingVersionError compatible with github.com/pkg/errors'
// Cause()/errors.Is() style unwrapping.
func (e *MissingVersionError) Cause() error { return ErrMissingVersion }

// Unwrap lets the standard library's errors.Is match ErrMissingVersion.
func (e *MissingVersionError) Unwrap() error { return ErrMissingVersion }

func newMissingVersionError(storeName, versionTopic string, version int) error {
	return &MissingVersionError{StoreName: storeName, VersionTopic: versionTopic, Version: version}
}

// ErrStorageEngine names the storage-engine error kind (a failure while
// sampling partition usage). Such failures are never retried internally;
// they are fatal to the call that triggered them. StorageEngineError does
// not wrap this sentinel: errors.Cause on it returns the engine's own error.
var ErrStorageEngine = errors.New("quota: storage engine error")

// StorageEngineError wraps an underlying storage-engine failure with the
// partition it was sampling. errors.Cause() unwraps to the original error
// returned by the StorageEngine implementation.
type StorageEngineError struct {
	Topic     string
	Partition int32
	cause     error
}

func (e *StorageEngineError) Error() string {
	return errors.Wrapf(e.cause, "storage engine: partition %s-%d", e.Topic, e.Partition).Error()
}

// Cause returns the underlying error returned by the StorageEngine.
func (e *StorageEngineError) Cause() error { return e.cause }

func wrapStorageEngineError(err error, topic string, partition int32) error {
	if err == nil {
		return nil
	}
	return &StorageEngineError{Topic: topic, Partition: partition, cause: err}
}

// ErrConsumerControl names the error kind for a failed LogConsumer Pause or
// Resume call; it appears as the prefix of ConsumerControlError's message,
// while errors.Cause on a ConsumerControlError returns the consumer's own
// error. The enforcer's own bookkeeping (tracker update,
// reportQuotaViolated/NotViolated) has already happened by the time this
// can occur; there is no internal retry, the next batch re-evaluates.
var ErrConsumerControl = errors.New("quota: consumer control error")

// ConsumerControlError wraps a Pause/Resume failure with the call that
// produced it.
type ConsumerControlError struct {
	Action    string // "pause" or "resume"
	Topic     string
	Partition int32
	cause     error
}

func (e *ConsumerControlError) Error() string {
	return errors.Wrapf(e.cause, "%s: %s %s-%d", ErrConsumerControl, e.Action, e.Topic, e.Partition).Error()
}

// Cause returns the underlying error returned by the LogConsumer.
func (e *ConsumerControlError) Cause() error { return e.cause }

func wrapConsumerControlError(err error, action, topic string, partition int32) error {
	if err == nil {
		return nil
	}
	return &ConsumerControlError{Action: action, Topic: topic, Partition: partition, cause: err}
}

// ErrReportFailure names the error kind for failures of the notification
// dispatcher or metrics sink. The enforcer never swallows these; it returns
// them as the collaborator produced them, not wrapped with this sentinel.
var ErrReportFailure = errors.New("quota: report failure")

