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

package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/telemetry"
)

// counterValue sums the int64 data points of the named counter matching attrs
func counterValue(t *testing.T, reader sdkmetric.Reader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	var collected metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &collected))

	var total int64
	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, point := range sum.DataPoints {
				if matches(point.Attributes, attrs) {
					total += point.Value
				}
			}
		}
	}
	return total
}

func matches(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, attr := range attrs {
		value, ok := set.Value(attr.Key)
		if !ok || value != attr.Value {
			return false
		}
	}
	return true
}

func TestRegistryRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	tel := telemetry.New(telemetry.WithMeterProvider(provider))
	p := new(observer)
	registry, store := newTestRegistry(t, p, WithMetrics(tel.Metrics))

	kind := attribute.String("grain.kind", tallyKind)
	outcome := func(value string) attribute.KeyValue { return attribute.String("outcome", value) }

	assert.Equal(t, "1/1", ask(t, registry, "A", "/inc"))
	assert.Equal(t, "2/2", ask(t, registry, "A", "/inc"))
	assert.Equal(t, "1/1", ask(t, registry, "B", "/inc"))

	_, err := registry.Ask(ctx, tallyKind, "B", NewRequest("/missing", "/missing"))
	require.ErrorIs(t, err, gerrors.ErrRouteNotFound)

	identity, err := registry.Identity(tallyKind, "A")
	require.NoError(t, err)
	require.NoError(t, registry.Deactivate(ctx, identity))

	// the backend goes away: the next request is answered with a storage failure
	require.NoError(t, store.Disconnect(ctx))
	_, err = registry.Ask(ctx, tallyKind, "A", NewRequest("/inc", "/inc"))
	require.ErrorIs(t, err, gerrors.ErrStorageUnavailable)


	assert.EqualValues(t, 3, counterValue(t, reader, "durable.grain.requests", kind, outcome("ok")))
	assert.EqualValues(t, 1, counterValue(t, reader, "durable.grain.requests", kind, outcome("storage_unavailable")))
	assert.EqualValues(t, 1, counterValue(t, reader, "durable.grain.requests", kind, outcome("error")))
	assert.EqualValues(t, 1, counterValue(t, reader, "durable.grain.storage_failures", kind))
	assert.EqualValues(t, 3, counterValue(t, reader, "durable.grain.activations", kind))
	assert.EqualValues(t, 1, counterValue(t, reader, "durable.grain.passivations", kind))

	var collected metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &collected))
	var observed uint64
	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			if histogram, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == "durable.grain.request_duration" {
				for _, point := range histogram.DataPoints {
					observed += point.Count
				}
			}
		}
	}
	assert.EqualValues(t, 5, observed)

	require.NoError(t, store.Connect(ctx))
}
