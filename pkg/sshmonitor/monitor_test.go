package sshmonitor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/spf13/afero"
)

const (
	aliceLogin = "2024-01-01 10:00:00 host sshd[1]: Accepted password for alice from 10.0.0.5 port 22"
	bobLogin   = "2024-01-01 10:01:00 host sshd[2]: Accepted password for bob from 10.0.0.9 port 22"
)

type listStep struct {
	text string
	err  error
}

// scriptedLister 按顺序返回预设结果，之后一直重复最后一个
type scriptedLister struct {
	steps []listStep
	calls atomic.Int64
}

func (l *scriptedLister) List(ctx context.Context) (string, error) {
	i := int(l.calls.Add(1)) - 1
	if i >= len(l.steps) {
		i = len(l.steps) - 1
	}
	return l.steps[i].text, l.steps[i].err
}

func listing(lines ...string) listStep {
	return listStep{text: strings.Join(lines, "\n") + "\n"}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type monitorHarness struct {
	monitor *Monitor
	lister  *scriptedLister
	runner  *recordingRunner
	cancel  context.CancelFunc
	result  chan error
}

func startMonitor(t *testing.T, lister *scriptedLister, whitelist string, plugins []Plugin, opts Options) *monitorHarness {
	t.Helper()
	fs := afero.NewMemMapFs()
	if whitelist != "" {
		if err := afero.WriteFile(fs, testWhitelistPath, []byte(whitelist), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if opts.Schedule == nil {
		opts.Schedule = Interval(5 * time.Millisecond)
	}

	runner := newRecordingRunner()
	m := NewMonitor(lister,
		NewWhitelist(fs, testWhitelistPath, nil),
		NewDispatcher(plugins, runner, nil),
		opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h := &monitorHarness{monitor: m, lister: lister, runner: runner, cancel: cancel, result: make(chan error, 1)}
	go func() { h.result <- m.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

func (h *monitorHarness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
		return nil
	}
}

func TestMonitorWhitelistedLoginIsSuppressed(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		listing(aliceLogin, bobLogin),
	}}
	h := startMonitor(t, lister, "10.0.0.9\n", testPlugins("log", "mail"), Options{})

	// 第三次调用说明第二轮已处理完毕
	waitFor(t, "second poll", func() bool { return lister.calls.Load() >= 3 })
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := h.monitor.Stats()
	if stats.NewLogins != 1 {
		t.Errorf("NewLogins = %d, want 1", stats.NewLogins)
	}
	if stats.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", stats.Suppressed)
	}
	if stats.Dispatched != 0 {
		t.Errorf("Dispatched = %d, want 0", stats.Dispatched)
	}
}

func TestMonitorDispatchesNewLogin(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		listing(aliceLogin, bobLogin),
	}}
	h := startMonitor(t, lister, "", testPlugins("log", "mail"), Options{})

	got := h.runner.wait(t, 2)
	waitFor(t, "later polls", func() bool { return lister.calls.Load() >= 4 })
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	seen := map[string]bool{}
	for _, inv := range got {
		if inv.record != bobLogin {
			t.Errorf("plugin %s got %q, want bob's login", inv.plugin, inv.record)
		}
		seen[inv.plugin] = true
	}
	if !seen["log"] || !seen["mail"] {
		t.Errorf("plugins called = %v, want log and mail", seen)
	}

	stats := h.monitor.Stats()
	if stats.Dispatched != 2 || stats.NewLogins != 1 || stats.Suppressed != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestMonitorBaselineIsNotDispatched(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin, bobLogin),
	}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{})

	waitFor(t, "several polls", func() bool { return lister.calls.Load() >= 4 })
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats := h.monitor.Stats(); stats.NewLogins != 0 || stats.Dispatched != 0 {
		t.Errorf("Stats() = %+v, want no new logins", stats)
	}
}

func TestMonitorLastLogoutIsNotDispatched(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		{text: ""},
	}}
	h := startMonitor(t, lister, "", testPlugins("log", "mail"), Options{})

	waitFor(t, "several polls", func() bool { return lister.calls.Load() >= 4 })
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats := h.monitor.Stats(); stats.NewLogins != 0 || stats.Dispatched != 0 {
		t.Errorf("Stats() = %+v, want no new logins after logout", stats)
	}
	h.runner.mu.Lock()
	defer h.runner.mu.Unlock()
	if len(h.runner.calls) != 0 {
		t.Errorf("plugin calls = %+v, want none", h.runner.calls)
	}
}

func TestMonitorReappearingLoginIsNew(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		listing(aliceLogin, bobLogin),
		listing(aliceLogin),
		listing(aliceLogin, bobLogin),
	}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{})

	h.runner.wait(t, 2)
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestMonitorMissingWhitelistFailsOpen(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		listing(aliceLogin, bobLogin),
	}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{})

	got := h.runner.wait(t, 1)
	if got[0].record != bobLogin {
		t.Errorf("record = %q", got[0].record)
	}
	h.stop(t)
}

func TestMonitorStopsDuringWait(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{listing(aliceLogin)}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{Schedule: Interval(time.Hour)})

	waitFor(t, "initial listing", func() bool { return lister.calls.Load() == 1 })

	start := time.Now()
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stop took %v", elapsed)
	}
	if calls := lister.calls.Load(); calls != 1 {
		t.Errorf("lister called %d times, want 1", calls)
	}
	if cycles := h.monitor.Stats().Cycles; cycles != 0 {
		t.Errorf("Cycles = %d, want 0", cycles)
	}
}

func TestMonitorFailsFastOnProbeError(t *testing.T) {
	probeErr := errors.New("probe exploded")
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		{err: probeErr},
	}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{})

	select {
	case err := <-h.result:
		if !errors.Is(err, probeErr) {
			t.Fatalf("Run() error = %v, want wrapped probe error", err)
		}
		var stackErr *goerrors.Error
		if !errors.As(err, &stackErr) {
			t.Errorf("Run() error %T carries no stack", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return on probe failure")
	}
	if failures := h.monitor.Stats().ProbeFailures; failures != 1 {
		t.Errorf("ProbeFailures = %d, want 1", failures)
	}
}

func TestMonitorInitialProbeFailure(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{{err: errors.New("no such file")}}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{OnProbeError: ProbeSkip})

	select {
	case err := <-h.result:
		if err == nil {
			t.Fatal("Run() expected error when the baseline cannot be listed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}
}

func TestMonitorSkipPolicyKeepsSnapshot(t *testing.T) {
	lister := &scriptedLister{steps: []listStep{
		listing(aliceLogin),
		{err: errors.New("temporary failure")},
		{err: errors.New("temporary failure")},
		listing(aliceLogin, bobLogin),
	}}
	h := startMonitor(t, lister, "", testPlugins("log"), Options{
		OnProbeError:    ProbeSkip,
		ProbeBackoffMin: time.Millisecond,
		ProbeBackoffMax: 10 * time.Millisecond,
	})

	got := h.runner.wait(t, 1)
	if got[0].record != bobLogin {
		t.Errorf("record = %q, want bob's login only", got[0].record)
	}
	waitFor(t, "later polls", func() bool { return lister.calls.Load() >= 6 })
	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := h.monitor.Stats()
	if stats.ProbeFailures != 2 {
		t.Errorf("ProbeFailures = %d, want 2", stats.ProbeFailures)
	}
	if stats.NewLogins != 1 {
		t.Errorf("NewLogins = %d, want 1", stats.NewLogins)
	}
}

func TestIntervalNext(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := Interval(10 * time.Second).Next(now); !got.Equal(now.Add(10 * time.Second)) {
		t.Errorf("Next() = %v", got)
	}
}
