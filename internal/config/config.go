// Package config loads the poolrun configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
	"github.com/vnykmshr/workerpool/pkg/common/validation"
	"github.com/vnykmshr/workerpool/pkg/metrics"
	"github.com/vnykmshr/workerpool/pkg/scheduling/scheduler"
	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

// Job kinds understood by poolrun.
const (
	KindLog     = "log"
	KindSleep   = "sleep"
	KindPublish = "publish"
)

// File is the layout of a poolrun configuration file.
type File struct {
	Pool      PoolConfig       `yaml:"pool" json:"pool"`
	Metrics   MetricsConfig    `yaml:"metrics" json:"metrics"`
	Redis     RedisConfig      `yaml:"redis" json:"redis"`
	Schedules []ScheduleConfig `yaml:"schedules" json:"schedules"`
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	Name         string `yaml:"name" json:"name"`
	Workers      int    `yaml:"workers" json:"workers"`
	OnDisconnect string `yaml:"on_disconnect" json:"on_disconnect"`
	OnPanic      string `yaml:"on_panic" json:"on_panic"`
	ShutdownWait string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Addr      string `yaml:"addr" json:"addr"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// RedisConfig configures the optional Redis feed.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Addr        string `yaml:"addr" json:"addr"`
	Password    string `yaml:"password" json:"password"`
	DB          int    `yaml:"db" json:"db"`
	Key         string `yaml:"key" json:"key"`
	PollTimeout string `yaml:"poll_timeout" json:"poll_timeout"`
}

// ScheduleConfig describes one recurring job. Exactly one of Spec and Every
// must be set.
type ScheduleConfig struct {
	ID                 string `yaml:"id" json:"id"`
	Spec               string `yaml:"spec" json:"spec"`
	Every              string `yaml:"every" json:"every"`
	Kind               string `yaml:"kind" json:"kind"`
	Message            string `yaml:"message" json:"message"`
	Duration           string `yaml:"duration" json:"duration"`
	Handler            string `yaml:"handler" json:"handler"`
	SkipIfStillRunning bool   `yaml:"skip_if_still_running" json:"skip_if_still_running"`
	MaxRuns            int64  `yaml:"max_runs" json:"max_runs"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Pool: PoolConfig{
			Name:         "poolrun",
			Workers:      4,
			OnDisconnect: workerpool.DisconnectExit.String(),
			OnPanic:      workerpool.PanicTerminateWorker.String(),
			ShutdownWait: "10s",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Addr:      ":9090",
			Namespace: metrics.DefaultNamespace,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			Key:         "poolrun:jobs",
			PollTimeout: "1s",
		},
	}
}

// LoadFile reads a YAML or JSON file over the defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return Parse(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return f, nil
}

// ParseJSON decodes JSON over the defaults. Unknown keys are rejected.
func ParseJSON(data []byte) (*File, error) {
	f := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return f, nil
}

// Validate checks the whole file and returns the first problem found.
func (f *File) Validate() error {
	if err := validation.ValidateNonNegative("config", "pool.workers", f.Pool.Workers); err != nil {
		return err
	}
	if _, err := f.Pool.DisconnectPolicy(); err != nil {
		return err
	}
	if _, err := f.Pool.PanicPolicy(); err != nil {
		return err
	}
	if _, err := parseDuration("pool.shutdown_timeout", f.Pool.ShutdownWait); err != nil {
		return err
	}
	if f.Metrics.Enabled {
		if err := validation.ValidateNotEmpty("config", "metrics.addr", f.Metrics.Addr); err != nil {
			return err
		}
	}
	if f.Redis.Enabled {
		if err := validation.ValidateNotEmpty("config", "redis.addr", f.Redis.Addr); err != nil {
			return err
		}
		if err := validation.ValidateNotEmpty("config", "redis.key", f.Redis.Key); err != nil {
			return err
		}
		if _, err := parseDuration("redis.poll_timeout", f.Redis.PollTimeout); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(f.Schedules))
	for i, s := range f.Schedules {
		if err := s.validate(f.Redis.Enabled); err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("schedules[%d]: id %q: %w", i, s.ID, gferrors.ErrDuplicate)
		}
		seen[s.ID] = true
	}
	return nil
}

func (s ScheduleConfig) validate(redisEnabled bool) error {
	if err := validation.ValidateNotEmpty("config", "id", s.ID); err != nil {
		return err
	}
	if (s.Spec == "") == (s.Every == "") {
		return gferrors.NewValidationError("config", "spec", s.Spec, "exactly one of spec and every is required")
	}
	if s.Every != "" {
		if _, err := s.Interval(); err != nil {
			return err
		}
	}
	if err := validation.ValidateOneOf("config", "kind", s.Kind, KindLog, KindSleep, KindPublish); err != nil {
		return err
	}
	if s.MaxRuns < 0 {
		return gferrors.NewValidationError("config", "max_runs", s.MaxRuns, "cannot be negative")
	}

	switch s.Kind {
	case KindSleep:
		if _, err := parseDuration("duration", s.Duration); err != nil {
			return err
		}
	case KindPublish:
		if !redisEnabled {
			return gferrors.NewValidationError("config", "kind", s.Kind, "requires redis.enabled")
		}
		if err := validation.ValidateNotEmpty("config", "handler", s.Handler); err != nil {
			return err
		}
	}
	return nil
}

// Interval parses Every.
func (s ScheduleConfig) Interval() (time.Duration, error) {
	return parseDuration("every", s.Every)
}

// SleepDuration parses Duration.
func (s ScheduleConfig) SleepDuration() (time.Duration, error) {
	return parseDuration("duration", s.Duration)
}

// Options returns the scheduler options for the entry.
func (s ScheduleConfig) Options() scheduler.Options {
	return scheduler.Options{SkipIfStillRunning: s.SkipIfStillRunning, MaxRuns: s.MaxRuns}
}

// DisconnectPolicy maps on_disconnect to a pool policy.
func (p PoolConfig) DisconnectPolicy() (workerpool.DisconnectPolicy, error) {
	switch p.OnDisconnect {
	case "", workerpool.DisconnectExit.String():
		return workerpool.DisconnectExit, nil
	case workerpool.DisconnectSpin.String():
		return workerpool.DisconnectSpin, nil
	}
	return 0, validation.ValidateOneOf("config", "pool.on_disconnect", p.OnDisconnect,
		workerpool.DisconnectExit.String(), workerpool.DisconnectSpin.String())
}

// PanicPolicy maps on_panic to a pool policy.
func (p PoolConfig) PanicPolicy() (workerpool.PanicPolicy, error) {
	switch p.OnPanic {
	case "", workerpool.PanicTerminateWorker.String():
		return workerpool.PanicTerminateWorker, nil
	case workerpool.PanicRecover.String():
		return workerpool.PanicRecover, nil
	case workerpool.PanicPropagate.String():
		return workerpool.PanicPropagate, nil
	}
	return 0, validation.ValidateOneOf("config", "pool.on_panic", p.OnPanic,
		workerpool.PanicTerminateWorker.String(), workerpool.PanicRecover.String(), workerpool.PanicPropagate.String())
}

// ShutdownTimeout parses shutdown_timeout.
func (p PoolConfig) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("pool.shutdown_timeout", p.ShutdownWait)
}

// ToPoolConfig converts the pool section, attaching reg for metrics.
func (f *File) ToPoolConfig(reg *metrics.Registry) (workerpool.Config, error) {
	onDisconnect, err := f.Pool.DisconnectPolicy()
	if err != nil {
		return workerpool.Config{}, err
	}
	onPanic, err := f.Pool.PanicPolicy()
	if err != nil {
		return workerpool.Config{}, err
	}
	return workerpool.Config{
		WorkerCount:  f.Pool.Workers,
		Name:         f.Pool.Name,
		OnDisconnect: onDisconnect,
		OnPanic:      onPanic,
		Metrics:      reg,
	}, nil
}

// PollTimeoutDuration parses poll_timeout.
func (r RedisConfig) PollTimeoutDuration() (time.Duration, error) {
	return parseDuration("redis.poll_timeout", r.PollTimeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, gferrors.NewValidationError("config", field, value, "invalid duration").
			WithHint("use a Go duration such as 500ms or 2s")
	}
	if err := validation.ValidatePositiveDuration("config", field, d); err != nil {
		return 0, err
	}
	return d, nil
}
