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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tochemey/durable"

// Telemetry bundles the meter and the grain instruments recorded by the registry.
type Telemetry struct {
	MeterProvider metric.MeterProvider
	Meter         metric.Meter
	Metrics       *Metrics
}

// New creates a Telemetry. The global meter provider is used unless
// WithMeterProvider says otherwise.
func New(options ...Option) *Telemetry {
	tel := &Telemetry{
		MeterProvider: otel.GetMeterProvider(),
	}

	for _, opt := range options {
		opt.Apply(tel)
	}

	tel.Meter = tel.MeterProvider.Meter(instrumentationName)

	var err error
	if tel.Metrics, err = NewMetrics(tel.Meter); err != nil {
		otel.Handle(err)
	}
	return tel
}
