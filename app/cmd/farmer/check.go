package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"farmer/app/pkg/utils/randx"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var checkProxies bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config and accounts files, optionally probing every proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loaded := loadAssets(opts, randx.New())
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "config ok, %d accounts\n", len(loaded.accounts))

			newBackend := backendFactory(&loaded.config)
			timeout := time.Duration(loaded.config.Http.ProxyCheckTimeout) * time.Second

			failed := 0
			for _, acc := range loaded.accounts {
				if acc.Proxy == nil {
					fmt.Fprintf(out, "%s: direct\n", acc.Session)
					continue
				}
				if !checkProxies {
					fmt.Fprintf(out, "%s: %s\n", acc.Session, acc.Proxy.Redacted())
					continue
				}

				client, err := newBackend(acc)
				if err != nil {
					return err
				}
				ip, err := client.CheckProxy(cmd.Context(), loaded.config.Http.ProxyCheckUrl, timeout)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %s FAILED %v\n", acc.Session, acc.Proxy.Redacted(), err)
					continue
				}
				fmt.Fprintf(out, "%s: %s ip %s\n", acc.Session, acc.Proxy.Redacted(), ip)
			}

			if failed > 0 {
				return fmt.Errorf("%d proxies failed the check", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkProxies, "probe", false, "send a request through every account proxy")

	return cmd
}
