package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dushixiang/sshwatchdog/internal/config"
	"github.com/dushixiang/sshwatchdog/internal/logger"
	"github.com/spf13/cobra"
)

// version 可在编译时覆盖:
//
//	go build -ldflags "-X github.com/dushixiang/sshwatchdog/internal/cli.version=1.1.0"
var version = "dev"

type options struct {
	configPath string
}

// NewRootCommand 创建命令树
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sshwatchdog",
		Short:         "检测新的 SSH 登录并调用响应插件",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "配置文件路径")

	root.AddCommand(
		newRunCommand(opts),
		newListCommand(opts),
		newWhitelistCommand(opts),
		newPluginCommand(opts),
		newServiceCommand(opts),
	)
	return root
}

// Execute 解析参数并执行对应命令
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

var now = time.Now

// PrintError 按日志相同的格式输出错误，用于日志尚未建立时
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s ERROR sshwatchdog: %v\n", now().UTC().Format(logger.TimeLayout), err)
}
