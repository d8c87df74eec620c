package cli

import (
	"github.com/dushixiang/sshwatchdog/internal/config"
	"github.com/dushixiang/sshwatchdog/internal/logger"
	"github.com/dushixiang/sshwatchdog/pkg/plugins"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPluginCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "内置响应插件，由监控进程以登录记录为参数调用",
	}

	for _, name := range plugins.Names {
		name := name // go1.21: per-iteration copy for the closure below
		cmd.AddCommand(&cobra.Command{
			Use:   name + " <登录记录>",
			Short: "执行内置插件 " + name,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}

				// 插件输出由监控进程收集，这里只写 stdout
				log, err := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level}, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				defer log.Sync()

				var locator plugins.Locator
				if cfg.Notify.GeoIPDB != "" {
					geo, err := plugins.OpenGeoIP(cfg.Notify.GeoIPDB)
					if err != nil {
						log.Warn("打开 GeoIP 数据库失败", zap.Error(err))
					} else {
						defer geo.Close()
						locator = geo
					}
				}

				return plugins.NewNotifier(cfg.Notify, locator, log).Run(cmd.Context(), name, args[0])
			},
		})
	}
	return cmd
}
