package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vnykmshr/workerpool/internal/config"
	"github.com/vnykmshr/workerpool/pkg/feed/redisfeed"
	"github.com/vnykmshr/workerpool/pkg/scheduling/scheduler"
	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

type logFunc func(format string, args ...interface{})

const publishTimeout = 5 * time.Second

// buildJob turns a configured schedule into a pool job.
func buildJob(s config.ScheduleConfig, producer *redisfeed.Producer, logf logFunc) (workerpool.Job, error) {
	switch s.Kind {
	case config.KindLog:
		id, msg := s.ID, s.Message
		return func() { logf("[%s] %s", id, msg) }, nil

	case config.KindSleep:
		d, err := s.SleepDuration()
		if err != nil {
			return nil, err
		}
		return func() { time.Sleep(d) }, nil

	case config.KindPublish:
		if producer == nil {
			return nil, fmt.Errorf("kind %q needs a Redis producer", s.Kind)
		}
		id, handler, msg := s.ID, s.Handler, s.Message
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := producer.Publish(ctx, handler, msg); err != nil {
				logf("[%s] publish failed: %v", id, err)
			}
		}, nil
	}
	return nil, fmt.Errorf("unknown job kind %q", s.Kind)
}

// addSchedule registers s with sched.
func addSchedule(sched *scheduler.Scheduler, s config.ScheduleConfig, producer *redisfeed.Producer, logf logFunc) error {
	job, err := buildJob(s, producer, logf)
	if err != nil {
		return err
	}
	if s.Every != "" {
		every, err := s.Interval()
		if err != nil {
			return err
		}
		return sched.ScheduleEveryWithOptions(s.ID, every, job, s.Options())
	}
	return sched.ScheduleWithOptions(s.ID, s.Spec, job, s.Options())
}

// registerHandlers installs the built-in feed handlers. Payloads are JSON
// strings: a message for "log" and a duration for "sleep".
func registerHandlers(c *redisfeed.Consumer, logf logFunc) error {
	if err := c.Handle(config.KindLog, func(_ context.Context, payload []byte) {
		var msg string
		if err := json.Unmarshal(payload, &msg); err != nil {
			logf("[feed] bad log payload: %v", err)
			return
		}
		logf("[feed] %s", msg)
	}); err != nil {
		return err
	}

	return c.Handle(config.KindSleep, func(ctx context.Context, payload []byte) {
		var raw string
		if err := json.Unmarshal(payload, &raw); err != nil {
			logf("[feed] bad sleep payload: %v", err)
			return
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			logf("[feed] bad sleep duration %q: %v", raw, err)
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
	})
}
