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

func TestEvaluator_UnlimitedNeverExceeded(t *testing.T) {
	sink := &fakeMetricsSink{}
	e := NewQuotaEvaluator("store1", sink, true)
	e.Refresh(UnlimitedQuota, 4)

	exceeded, err := e.IsExceeded(1 << 40)
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.Equal(t, []float64{0}, sink.ratios)
}

func TestEvaluator_BoundaryEqualsQuotaIsExceeded(t *testing.T) {
	e := NewQuotaEvaluator("store1", nil, false)
	e.Refresh(400, 4) // perPartitionQuotaBytes = 100

	exceeded, err := e.IsExceeded(100)
	require.NoError(t, err)
	assert.True(t, exceeded)

	exceeded, err = e.IsExceeded(99)
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestEvaluator_ZeroPerPartitionQuota(t *testing.T) {
	e := NewQuotaEvaluator("store1", nil, false)
	e.Refresh(0, 4) // perPartitionQuotaBytes = 0

	exceeded, err := e.IsExceeded(1)
	require.NoError(t, err)
	assert.True(t, exceeded, "any positive usage against a zero quota is exceeded")

	exceeded, err = e.IsExceeded(0)
	require.NoError(t, err)
	assert.True(t, exceeded, "0 >= 0 is exceeded per the literal >= comparison")
}

func TestEvaluator_RatioMetricOnlyWhenEnabled(t *testing.T) {
	sink := &fakeMetricsSink{}
	e := NewQuotaEvaluator("store1", sink, false)
	e.Refresh(400, 4)

	_, err := e.IsExceeded(50)
	require.NoError(t, err)
	assert.Empty(t, sink.ratios)
}

func TestEvaluator_RatioReportsMetricsErrorWithoutLosingVerdict(t *testing.T) {
	sink := &failingMetricsSink{err: assertionError("sink down")}
	e := NewQuotaEvaluator("store1", sink, true)
	e.Refresh(400, 4)

	exceeded, err := e.IsExceeded(150)
	require.Error(t, err)
	assert.True(t, exceeded)
}

type failingMetricsSink struct{ err error }

func (f *failingMetricsSink) RecordStorageQuotaUsed(storeName string, ratio float64) error {
	return f.err
}
