package cli

import (
	"fmt"

	"github.com/dushixiang/sshwatchdog/internal/config"
	"github.com/dushixiang/sshwatchdog/pkg/sshmonitor"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newWhitelistCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "管理白名单地址",
	}

	open := func() (*sshmonitor.Whitelist, error) {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		return sshmonitor.NewWhitelist(afero.NewOsFs(), cfg.Whitelist, nil), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "列出白名单地址",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				w, err := open()
				if err != nil {
					return err
				}
				addrs, err := w.List()
				if err != nil {
					return err
				}
				for _, addr := range addrs {
					fmt.Fprintln(cmd.OutOrStdout(), addr)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <地址>...",
			Short: "添加白名单地址",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				w, err := open()
				if err != nil {
					return err
				}
				for _, addr := range args {
					if err := w.Add(addr); err != nil {
						return fmt.Errorf("添加 %s 失败: %w", addr, err)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <地址>...",
			Short: "移除白名单地址",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				w, err := open()
				if err != nil {
					return err
				}
				for _, addr := range args {
					if err := w.Remove(addr); err != nil {
						return fmt.Errorf("移除 %s 失败: %w", addr, err)
					}
				}
				return nil
			},
		},
	)
	return cmd
}
