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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_FirstTouchSeedsFromStorageEngine(t *testing.T) {
	storage := newFakeStorageEngine()
	storage.baseline[0] = 50
	tr := NewPartitionUsageTracker("t_v3", storage)

	usage, err := tr.Add(0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(60), usage)
	assert.Equal(t, 1, storage.queries)
}

func TestTracker_SubsequentAddsDoNotReSample(t *testing.T) {
	storage := newFakeStorageEngine()
	tr := NewPartitionUsageTracker("t_v3", storage)

	_, err := tr.Add(0, 10)
	require.NoError(t, err)
	_, err = tr.Add(0, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(15), tr.Usage(0))
	assert.Equal(t, 1, storage.queries)
}

func TestTracker_UsageMonotonicallyNonDecreasing(t *testing.T) {
	storage := newFakeStorageEngine()
	tr := NewPartitionUsageTracker("t_v3", storage)

	last := int64(0)
	for i := 0; i < 5; i++ {
		usage, err := tr.Add(0, int64(i))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, usage, last)
		last = usage
	}
}

func TestTracker_UnknownPartitionReportsZero(t *testing.T) {
	storage := newFakeStorageEngine()
	tr := NewPartitionUsageTracker("t_v3", storage)
	assert.Equal(t, int64(0), tr.Usage(42))
}

func TestTracker_StorageEngineErrorPropagatesOnFirstTouch(t *testing.T) {
	storage := newFakeStorageEngine()
	storage.err = assertionError("disk unavailable")
	tr := NewPartitionUsageTracker("t_v3", storage)

	_, err := tr.Add(0, 10)
	require.Error(t, err)
	var seErr *StorageEngineError
	require.ErrorAs(t, err, &seErr)
	assert.Equal(t, int32(0), seErr.Partition)
}

func TestTracker_Reconcile(t *testing.T) {
	storage := newFakeStorageEngine()
	tr := NewPartitionUsageTracker("t_v3", storage)
	_, err := tr.Add(0, 1000)
	require.NoError(t, err)

	storage.baseline[0] = 7
	require.NoError(t, tr.Reconcile(0))

	assert.Equal(t, int64(7), tr.Usage(0))
}
