package sshmonitor

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Plugin 响应插件描述
// 调用方式: Command Args... <登录记录>
type Plugin struct {
	Name    string
	Command string
	Args    []string
	// Timeout 为 0 时不限制执行时间
	Timeout time.Duration
}

// Runner 执行单个插件
type Runner interface {
	Run(ctx context.Context, plugin Plugin, record string) ([]byte, error)
}

// ExecRunner 以子进程方式执行插件，登录记录作为单独一个参数传入
type ExecRunner struct{}

// Run 执行插件并返回合并后的输出
func (ExecRunner) Run(ctx context.Context, plugin Plugin, record string) ([]byte, error) {
	args := make([]string, 0, len(plugin.Args)+1)
	args = append(args, plugin.Args...)
	args = append(args, record)
	return exec.CommandContext(ctx, plugin.Command, args...).CombinedOutput()
}

// Dispatcher 将新登录分发给所有插件
// 插件注册表在创建后不再修改
type Dispatcher struct {
	plugins []Plugin
	runner  Runner
	logger  *zap.Logger
}

// NewDispatcher 创建分发器
func NewDispatcher(plugins []Plugin, runner Runner, logger *zap.Logger) *Dispatcher {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := make([]Plugin, len(plugins))
	copy(registry, plugins)
	return &Dispatcher{
		plugins: registry,
		runner:  runner,
		logger:  logger,
	}
}

// Plugins 返回插件注册表的副本
func (d *Dispatcher) Plugins() []Plugin {
	plugins := make([]Plugin, len(d.plugins))
	copy(plugins, d.plugins)
	return plugins
}

// Dispatch 为每个插件启动一个独立的 goroutine，不等待其完成
// 返回本次分发的 ID 和启动的插件数量
func (d *Dispatcher) Dispatch(record string) (string, int) {
	id := uuid.NewString()
	for _, plugin := range d.plugins {
		go d.invoke(id, plugin, record)
	}
	return id, len(d.plugins)
}

func (d *Dispatcher) invoke(id string, plugin Plugin, record string) {
	logger := d.logger.With(
		zap.String("dispatch", id),
		zap.String("plugin", plugin.Name),
		zap.String("login", record),
	)

	var pc panics.Catcher
	pc.Try(func() {
		// 监控退出时不取消已启动的插件
		ctx := context.Background()
		if plugin.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, plugin.Timeout)
			defer cancel()
		}

		output, err := d.runner.Run(ctx, plugin, record)
		out := strings.TrimSpace(string(output))
		if err != nil {
			logger.Error("插件执行失败", zap.String("output", out), zap.Error(err))
			return
		}
		logger.Info("插件执行完成", zap.String("output", out))
	})
	if r := pc.Recovered(); r != nil {
		logger.Error("插件执行异常", zap.Error(r.AsError()))
	}
}
