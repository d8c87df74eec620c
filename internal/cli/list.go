package cli

import (
	"fmt"

	"github.com/dushixiang/sshwatchdog/internal/config"
	"github.com/dushixiang/sshwatchdog/pkg/sshmonitor"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "执行一次会话探针并输出当前登录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			listing, err := cfg.NewLister().List(cmd.Context())
			if err != nil {
				return err
			}

			whitelist := sshmonitor.NewWhitelist(afero.NewOsFs(), cfg.Whitelist, nil)
			allowed, err := whitelist.Load()
			if err != nil {
				cmd.PrintErrln(err)
			}

			out := cmd.OutOrStdout()
			for _, login := range sshmonitor.SplitListing(listing) {
				// 仅用于显示，监控循环把空串当作普通记录
				if login == "" {
					continue
				}
				addr := sshmonitor.SourceAddress(login)
				mark := " "
				if _, ok := allowed[addr]; ok && addr != "" {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\t%s\n", mark, login, addr)
			}
			return nil
		},
	}
}
