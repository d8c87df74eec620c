package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dushixiang/sshwatchdog/internal/config"
	"github.com/dushixiang/sshwatchdog/internal/logger"
	"github.com/dushixiang/sshwatchdog/pkg/sshmonitor"
	goerrors "github.com/go-errors/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "启动 SSH 登录监控",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchdog(cmd.Context(), opts.configPath)
		},
	}
}

// buildMonitor 根据配置组装监控器
func buildMonitor(cfg *config.Config, log *zap.Logger) (*sshmonitor.Monitor, *sshmonitor.Whitelist, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	monitorOpts, err := cfg.MonitorOptions()
	if err != nil {
		return nil, nil, err
	}

	whitelist := sshmonitor.NewWhitelist(afero.NewOsFs(), cfg.Whitelist, log)
	dispatcher := sshmonitor.NewDispatcher(cfg.Registry(executable), sshmonitor.ExecRunner{}, log)
	monitor := sshmonitor.NewMonitor(cfg.NewLister(), whitelist, dispatcher, monitorOpts, log)
	return monitor, whitelist, nil
}

// runWatchdog 运行监控直到 ctx 结束，探针失败时返回错误
func runWatchdog(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	monitor, whitelist, err := buildMonitor(cfg, log)
	if err != nil {
		return err
	}

	if cfg.WatchWhitelist {
		go func() {
			if err := whitelist.Watch(ctx); err != nil {
				log.Warn("无法监听白名单文件", zap.Error(err))
			}
		}()
	}

	log.Info("程序已启动", zap.String("config", cfg.Path()), zap.String("version", version))
	if err := monitor.Run(ctx); err != nil {
		fields := []zap.Field{zap.Error(err)}
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			fields = append(fields, zap.String("stack", stackErr.ErrorStack()))
		}
		log.Error("监控异常退出", fields...)
		log.Info("程序已停止", zap.Int("exit", 1))
		return err
	}

	log.Info("程序已停止", zap.Int("exit", 0), zap.Any("stats", monitor.Stats()))
	return nil
}
