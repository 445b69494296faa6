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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	requestsCounterName          = "durable.grain.requests"
	activationsCounterName       = "durable.grain.activations"
	passivationsCounterName      = "durable.grain.passivations"
	storageFailuresCounterName   = "durable.grain.storage_failures"
	requestDurationHistogramName = "durable.grain.request_duration"

	kindKey    = attribute.Key("grain.kind")
	outcomeKey = attribute.Key("outcome")
)

// Metrics holds the grain runtime instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsCount            metric.Int64Counter
	ActivationsCount         metric.Int64Counter
	PassivationsCount        metric.Int64Counter
	StorageFailuresCount     metric.Int64Counter
	RequestDurationHistogram metric.Float64Histogram
}

// NewMetrics creates an instance of Metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	metrics := new(Metrics)
	var err error

	if metrics.RequestsCount, err = meter.Int64Counter(
		requestsCounterName,
		metric.WithDescription("The total number of requests dispatched to grains"),
	); err != nil {
		return nil, fmt.Errorf("failed to create requests count instrument, %v", err)
	}

	if metrics.ActivationsCount, err = meter.Int64Counter(
		activationsCounterName,
		metric.WithDescription("The total number of grain activations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create activations count instrument, %v", err)
	}

	if metrics.PassivationsCount, err = meter.Int64Counter(
		passivationsCounterName,
		metric.WithDescription("The total number of grain deactivations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create passivations count instrument, %v", err)
	}

	if metrics.StorageFailuresCount, err = meter.Int64Counter(
		storageFailuresCounterName,
		metric.WithDescription("The total number of requests failed by the durable state store"),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage failures count instrument, %v", err)
	}

	if metrics.RequestDurationHistogram, err = meter.Float64Histogram(
		requestDurationHistogramName,
		metric.WithDescription("The latency of grain requests in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create latency instrument, %v", err)
	}

	return metrics, nil
}

// RecordRequest records one grain request and its latency.
func (m *Metrics) RecordRequest(ctx context.Context, kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(kindKey.String(kind), outcomeKey.String(outcome))
	m.RequestsCount.Add(ctx, 1, attrs)
	m.RequestDurationHistogram.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
}

// RecordActivation records one grain activation.
func (m *Metrics) RecordActivation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ActivationsCount.Add(ctx, 1, metric.WithAttributes(kindKey.String(kind)))
}

// RecordPassivation records one grain deactivation.
func (m *Metrics) RecordPassivation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.PassivationsCount.Add(ctx, 1, metric.WithAttributes(kindKey.String(kind)))
}

// RecordStorageFailure records one request failed by the store.
func (m *Metrics) RecordStorageFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.StorageFailuresCount.Add(ctx, 1, metric.WithAttributes(kindKey.String(kind)))
}
