package main

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/workerpool/internal/config"
	"github.com/vnykmshr/workerpool/internal/testutil"
	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
	"github.com/vnykmshr/workerpool/pkg/feed/redisfeed"
	"github.com/vnykmshr/workerpool/pkg/scheduling/scheduler"
	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

type captured struct {
	mu    sync.Mutex
	lines []string
}

func (c *captured) logf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func TestBuildJobLog(t *testing.T) {
	var out captured
	job, err := buildJob(config.ScheduleConfig{ID: "hb", Kind: config.KindLog, Message: "alive"}, nil, out.logf)
	testutil.AssertNoError(t, err)

	job()
	testutil.AssertEqual(t, len(out.lines), 1)
	testutil.AssertEqual(t, out.lines[0], "[hb] alive")
}

func TestBuildJobSleep(t *testing.T) {
	job, err := buildJob(config.ScheduleConfig{ID: "nap", Kind: config.KindSleep, Duration: "20ms"}, nil, (&captured{}).logf)
	testutil.AssertNoError(t, err)

	start := time.Now()
	job()
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("sleep job returned after %v", elapsed)
	}

	_, err = buildJob(config.ScheduleConfig{ID: "nap", Kind: config.KindSleep, Duration: "later"}, nil, (&captured{}).logf)
	testutil.AssertError(t, err)
}

func TestBuildJobErrors(t *testing.T) {
	_, err := buildJob(config.ScheduleConfig{ID: "p", Kind: config.KindPublish, Handler: "h"}, nil, (&captured{}).logf)
	testutil.AssertError(t, err)

	_, err = buildJob(config.ScheduleConfig{ID: "x", Kind: "shell"}, nil, (&captured{}).logf)
	testutil.AssertError(t, err)
}

func TestAddSchedule(t *testing.T) {
	sched := scheduler.New(testutil.NewRecordingExecutor())
	logf := (&captured{}).logf

	testutil.AssertNoError(t, addSchedule(sched, config.ScheduleConfig{
		ID: "every", Every: "30s", Kind: config.KindLog, MaxRuns: 2,
	}, nil, logf))
	testutil.AssertNoError(t, addSchedule(sched, config.ScheduleConfig{
		ID: "cron", Spec: "*/5 * * * *", Kind: config.KindLog,
	}, nil, logf))

	ids := sched.IDs()
	testutil.AssertEqual(t, len(ids), 2)
	testutil.AssertEqual(t, ids[0], "cron")
	testutil.AssertEqual(t, ids[1], "every")

	err := addSchedule(sched, config.ScheduleConfig{ID: "bad", Spec: "nonsense", Kind: config.KindLog}, nil, logf)
	if !gferrors.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegisterHandlers(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = rdb.Close() }()

	c, err := redisfeed.NewConsumer(testutil.NewRecordingExecutor(), redisfeed.Config{Redis: rdb, Key: "jobs"})
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, registerHandlers(c, (&captured{}).logf))
	if err := registerHandlers(c, (&captured{}).logf); !errors.Is(err, gferrors.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestDrainPool(t *testing.T) {
	pool := workerpool.New(1)
	testutil.AssertNoError(t, pool.Execute(func() {}))
	testutil.AssertNoError(t, drainPool(pool, time.Second))
}

func TestDrainPoolTimeout(t *testing.T) {
	pool := workerpool.New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	testutil.AssertNoError(t, pool.Execute(func() {
		close(started)
		<-release
	}))
	<-started

	err := drainPool(pool, 20*time.Millisecond)
	if !errors.Is(err, gferrors.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	close(release)
	testutil.WaitClosed(t, pool.Shutdown(), time.Second)
}
