/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, metrics.RequestsCount)
	assert.NotNil(t, metrics.ActivationsCount)
	assert.NotNil(t, metrics.PassivationsCount)
	assert.NotNil(t, metrics.StorageFailuresCount)
	assert.NotNil(t, metrics.RequestDurationHistogram)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.RecordRequest(ctx, "counter", "ok", time.Millisecond)
		metrics.RecordActivation(ctx, "counter")
		metrics.RecordPassivation(ctx, "counter")
		metrics.RecordStorageFailure(ctx, "counter")
	})
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.RecordRequest(ctx, "counter", "ok", time.Millisecond)
		metrics.RecordActivation(ctx, "counter")
		metrics.RecordPassivation(ctx, "counter")
		metrics.RecordStorageFailure(ctx, "counter")
	})
}

func TestTelemetry(t *testing.T) {
	provider := noop.NewMeterProvider()
	tel := New(WithMeterProvider(provider))
	assert.Equal(t, provider, tel.MeterProvider)
	assert.NotNil(t, tel.Meter)
	assert.NotNil(t, tel.Metrics)
}

func TestMetricsWithManualReader(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics := New(WithMeterProvider(provider)).Metrics
	metrics.RecordRequest(ctx, "counter", "ok", time.Millisecond)
	metrics.RecordRequest(ctx, "counter", "storage_unavailable", time.Millisecond)
	metrics.RecordStorageFailure(ctx, "counter")
	metrics.RecordActivation(ctx, "counter")
	metrics.RecordPassivation(ctx, "counter")

	var collected metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &collected))
	require.Len(t, collected.ScopeMetrics, 1)
	assert.Equal(t, instrumentationName, collected.ScopeMetrics[0].Scope.Name)

	sums := make(map[string]int64)
	for _, m := range collected.ScopeMetrics[0].Metrics {
		sum, ok := m.Data.(metricdata.Sum[int64])
		if !ok {
			continue
		}
		for _, point := range sum.DataPoints {
			kind, _ := point.Attributes.Value(kindKey)
			assert.Equal(t, "counter", kind.AsString())
			key := m.Name
			if outcome, ok := point.Attributes.Value(outcomeKey); ok {
				key += "{" + outcome.AsString() + "}"
			}
			sums[key] += point.Value
		}
	}

	assert.Equal(t, map[string]int64{
		requestsCounterName + "{ok}":                  1,
		requestsCounterName + "{storage_unavailable}": 1,
		storageFailuresCounterName:                    1,
		activationsCounterName:                        1,
		passivationsCounterName:                       1,
	}, sums)
}

func TestPrometheusMeterProvider(t *testing.T) {
	ctx := context.Background()
	provider, handler, err := NewPrometheusMeterProvider("durable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics := New(WithMeterProvider(provider)).Metrics
	metrics.RecordRequest(ctx, "counter", "storage_unavailable", 3*time.Millisecond)
	metrics.RecordActivation(ctx, "counter")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body := recorder.Body.String()
	assert.Contains(t, body, "durable_grain_requests")
	assert.Contains(t, body, `outcome="storage_unavailable"`)
	assert.Contains(t, body, `grain_kind="counter"`)
	assert.Contains(t, body, "durable_grain_activations")
	assert.Contains(t, body, "durable_grain_request_duration")

	// every provider owns its registry
	otherProvider, other, err := NewPrometheusMeterProvider("durable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = otherProvider.Shutdown(ctx) })
	recorder = httptest.NewRecorder()
	other.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotContains(t, recorder.Body.String(), "durable_grain_requests")
}
