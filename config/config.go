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

// Package config loads the durable binary settings from the environment.
//
// Every variable carries the DURABLE_ prefix, e.g. DURABLE_LISTEN_ADDR.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tochemey/durable/internal/validation"
	"github.com/tochemey/durable/log"
)

// Prefix is prepended to every environment variable name.
const Prefix = "DURABLE_"

// StoreKind names a durable state backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreBolt     StoreKind = "bolt"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
	StoreNATS     StoreKind = "nats"
	StoreEtcd     StoreKind = "etcd"
)

// StoreKinds lists the supported backends.
var StoreKinds = []StoreKind{StoreMemory, StoreBolt, StoreSQLite, StorePostgres, StoreRedis, StoreNATS, StoreEtcd}

// Config holds the durable binary settings.
type Config struct {
	// ListenAddr is the front door host:port.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8787"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// MetricsEnabled turns the /metrics listener on. Metrics are recorded either way.
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsAddr    string `env:"METRICS_ADDR" envDefault:"127.0.0.1:9464"`

	// Store selects the durable state backend.
	Store StoreKind `env:"STORE" envDefault:"memory"`
	// StoreConnectRetries bounds the attempts to reach the backend at startup.
	StoreConnectRetries int `env:"STORE_CONNECT_RETRIES" envDefault:"5"`
	BoltPath            string   `env:"BOLT_PATH" envDefault:"data/durable.db"`
	SQLDSN              string   `env:"SQL_DSN"`
	RedisAddr           string   `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword       string   `env:"REDIS_PASSWORD"`
	RedisDB             int      `env:"REDIS_DB" envDefault:"0"`
	NATSURL             string   `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	EtcdEndpoints       []string `env:"ETCD_ENDPOINTS" envSeparator:"," envDefault:"127.0.0.1:2379"`

	// PassivateAfter is the idle time before a grain is evicted. Zero keeps grains alive.
	PassivateAfter time.Duration `env:"PASSIVATE_AFTER" envDefault:"30s"`
	// RequestTimeout bounds how long a caller waits for a grain.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	// StoreTimeout bounds every backend call. Zero disables the bound.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"2s"`
	// ActivationRetries is the number of activation attempts per grain.
	ActivationRetries int `env:"ACTIVATION_RETRIES" envDefault:"3"`
	// Profile enables the counter variant that also persists a user profile.
	Profile bool `env:"PROFILE" envDefault:"true"`
}

var _ validation.Validator = (*Config)(nil)

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from the given variables instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	config := new(Config)
	if err := env.ParseWithOptions(config, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the settings are usable.
func (c *Config) Validate() error {
	_, levelErr := log.ParseLevel(c.LogLevel)
	chain := validation.New().
		AddValidator(validation.NewEmptyStringValidator("ListenAddr", c.ListenAddr)).
		AddAssertion(!c.MetricsEnabled || c.MetricsAddr != "", "MetricsAddr must not be empty").
		AddAssertion(levelErr == nil, fmt.Sprintf("unknown log level %q", c.LogLevel)).
		AddAssertion(slices.Contains(StoreKinds, c.Store), fmt.Sprintf("unknown store %q", c.Store)).
		AddAssertion(c.StoreConnectRetries > 0, "StoreConnectRetries must be greater than 0").
		AddAssertion(c.PassivateAfter >= 0, "PassivateAfter must not be negative").
		AddAssertion(c.RequestTimeout > 0, "RequestTimeout must be greater than 0").
		AddAssertion(c.StoreTimeout >= 0, "StoreTimeout must not be negative").
		AddAssertion(c.ActivationRetries > 0, "ActivationRetries must be greater than 0")

	switch c.Store {
	case StoreBolt:
		chain.AddValidator(validation.NewEmptyStringValidator("BoltPath", c.BoltPath))
	case StoreSQLite, StorePostgres:
		chain.AddValidator(validation.NewEmptyStringValidator("SQLDSN", c.SQLDSN))
	case StoreRedis:
		chain.AddValidator(validation.NewEmptyStringValidator("RedisAddr", c.RedisAddr))
	case StoreNATS:
		chain.AddValidator(validation.NewEmptyStringValidator("NATSURL", c.NATSURL))
	case StoreEtcd:
		chain.AddAssertion(len(c.EtcdEndpoints) > 0, "EtcdEndpoints must not be empty")
	}
	return chain.Validate()
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
