package sshmonitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

const (
	DefaultInterval        = 10 * time.Second
	DefaultProbeBackoffMin = time.Second
	DefaultProbeBackoffMax = 5 * time.Minute
)

// ProbePolicy 探针失败时的处理策略
type ProbePolicy string

const (
	// ProbeExit 探针失败即退出（默认）
	ProbeExit ProbePolicy = "exit"
	// ProbeSkip 记录错误，跳过本轮并退避重试
	ProbeSkip ProbePolicy = "skip"
)

// Schedule 轮询计划，与 cron.Schedule 兼容
type Schedule interface {
	Next(time.Time) time.Time
}

// Interval 固定间隔的轮询计划
type Interval time.Duration

// Next 返回下一次轮询时间
func (i Interval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(i))
}

// Options 监控器选项
type Options struct {
	Schedule        Schedule
	OnProbeError    ProbePolicy
	ProbeBackoffMin time.Duration
	ProbeBackoffMax time.Duration
}

// Stats 监控统计
type Stats struct {
	Cycles        int64 `json:"cycles"`
	NewLogins     int64 `json:"newLogins"`
	Suppressed    int64 `json:"suppressed"`
	Dispatched    int64 `json:"dispatched"`
	ProbeFailures int64 `json:"probeFailures"`
}

// Monitor SSH登录监控器
// snapshot 只由 Run 所在的 goroutine 读写
type Monitor struct {
	lister     Lister
	whitelist  *Whitelist
	dispatcher *Dispatcher
	schedule   Schedule
	policy     ProbePolicy
	backoff    *backoff.Backoff
	logger     *zap.Logger
	now        func() time.Time

	snapshot []string

	cycles        atomic.Int64
	newLogins     atomic.Int64
	suppressed    atomic.Int64
	dispatched    atomic.Int64
	probeFailures atomic.Int64
}

// NewMonitor 创建监控器
func NewMonitor(lister Lister, whitelist *Whitelist, dispatcher *Dispatcher, opts Options, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Schedule == nil {
		opts.Schedule = Interval(DefaultInterval)
	}
	if opts.OnProbeError == "" {
		opts.OnProbeError = ProbeExit
	}
	if opts.ProbeBackoffMin <= 0 {
		opts.ProbeBackoffMin = DefaultProbeBackoffMin
	}
	if opts.ProbeBackoffMax <= 0 {
		opts.ProbeBackoffMax = DefaultProbeBackoffMax
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher(nil, nil, logger)
	}
	return &Monitor{
		lister:     lister,
		whitelist:  whitelist,
		dispatcher: dispatcher,
		schedule:   opts.Schedule,
		policy:     opts.OnProbeError,
		backoff: &backoff.Backoff{
			Min:    opts.ProbeBackoffMin,
			Max:    opts.ProbeBackoffMax,
			Factor: 2,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Stats 返回当前统计
func (m *Monitor) Stats() Stats {
	return Stats{
		Cycles:        m.cycles.Load(),
		NewLogins:     m.newLogins.Load(),
		Suppressed:    m.suppressed.Load(),
		Dispatched:    m.dispatched.Load(),
		ProbeFailures: m.probeFailures.Load(),
	}
}

// Run 运行监控循环，直到 ctx 结束（返回 nil）或探针失败（返回错误）
func (m *Monitor) Run(ctx context.Context) error {
	names := make([]string, 0, len(m.dispatcher.plugins))
	for _, p := range m.dispatcher.plugins {
		names = append(names, p.Name)
	}
	m.logger.Info("SSH登录监控已启动", zap.Strings("plugins", names), zap.String("onProbeError", string(m.policy)))

	listing, err := m.lister.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			m.logger.Info("SSH登录监控已停止")
			return nil
		}
		return goerrors.Wrap(fmt.Errorf("获取初始登录列表失败: %w", err), 0)
	}
	m.snapshot = SplitListing(listing)
	m.logBaseline()

	var delay time.Duration
	for {
		timer := time.NewTimer(m.nextWait(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("SSH登录监控已停止")
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			m.logger.Info("SSH登录监控已停止")
			return nil
		}

		delay, err = m.poll(ctx)
		if err != nil {
			return err
		}
	}
}

func (m *Monitor) logBaseline() {
	m.logger.Info("已有登录", zap.Int("count", len(m.snapshot)))
	for _, login := range m.snapshot {
		m.logger.Info("  " + login)
	}
}

// nextWait 计算下一轮等待时间，delay > 0 时使用退避时间
func (m *Monitor) nextWait(delay time.Duration) time.Duration {
	if delay > 0 {
		return delay
	}
	now := m.now()
	wait := m.schedule.Next(now).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// poll 执行一轮检测，返回下一轮的退避时间（0 表示按计划执行）
func (m *Monitor) poll(ctx context.Context) (time.Duration, error) {
	listing, err := m.lister.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil
		}
		m.probeFailures.Add(1)
		if m.policy != ProbeSkip {
			return 0, goerrors.Wrap(fmt.Errorf("获取登录列表失败: %w", err), 0)
		}
		delay := m.backoff.Duration()
		m.logger.Error("获取登录列表失败，跳过本轮", zap.Error(err), zap.Duration("retryIn", delay))
		return delay, nil
	}
	m.backoff.Reset()
	m.cycles.Add(1)

	current := SplitListing(listing)
	fresh := NewLogins(m.snapshot, current)
	m.snapshot = current

	for _, login := range fresh {
		m.handle(login)
	}
	return 0, nil
}

// handle 处理一条新登录：白名单过滤后分发给插件
func (m *Monitor) handle(login string) {
	m.newLogins.Add(1)
	addr := SourceAddress(login)
	m.logger.Info("检测到新登录", zap.String("login", login), zap.String("addr", addr))

	if m.whitelist != nil && m.whitelist.Contains(addr) {
		m.suppressed.Add(1)
		m.logger.Info("忽略白名单中的连接", zap.String("addr", addr))
		return
	}

	id, n := m.dispatcher.Dispatch(login)
	m.dispatched.Add(int64(n))
	m.logger.Info("已分发至插件", zap.String("dispatch", id), zap.Int("plugins", n))
}
