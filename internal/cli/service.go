package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceName = "sshwatchdog"

// program 系统服务入口
type program struct {
	configPath string
	cancel     context.CancelFunc
	done       chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := runWatchdog(ctx, p.configPath); err != nil {
			// 交给服务管理器重启
			PrintError(os.Stderr, err)
			os.Exit(1)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
	}
	return nil
}

func newService(configPath string) (service.Service, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}
	return service.New(&program{configPath: abs}, &service.Config{
		Name:        serviceName,
		DisplayName: "SSH Login Watchdog",
		Description: "检测新的 SSH 登录并调用响应插件",
		Arguments:   []string{"--config", abs, "service", "run"},
	})
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func newServiceCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "管理系统服务",
	}

	for _, action := range service.ControlAction {
		action := action // go1.21: per-iteration copy for the closure below
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: action + " 系统服务",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService(opts.configPath)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return fmt.Errorf("%s 服务失败: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "服务 %s 已%s\n", serviceName, action)
				return nil
			},
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "查看服务状态",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService(opts.configPath)
				if err != nil {
					return err
				}
				status, err := s.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), statusText(status))
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "由服务管理器调用",
			Args:   cobra.NoArgs,
			Hidden: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService(opts.configPath)
				if err != nil {
					return err
				}
				return s.Run()
			},
		},
	)
	return cmd
}
