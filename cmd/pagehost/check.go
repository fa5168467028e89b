package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sjaconsulting/static-page-handler/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print the resolved route table",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	routes, err := cfg.RouteTable()
	if err != nil {
		return err
	}

	allowList, err := cfg.ReadAllowList()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	hosts := make([]string, 0, len(routes))
	for host := range routes {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	for _, host := range hosts {
		fmt.Fprintf(out, "%s\n", host)

		paths := make([]string, 0, len(routes[host]))
		for path := range routes[host] {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			marker := ""
			if allowList.Contains(path) {
				marker = "  [public read]"
			}
			fmt.Fprintf(out, "  %s -> %s%s\n", path, routes[host][path], marker)
		}
	}

	if cfg.Auth.Secret == "" {
		fmt.Fprintln(out, "warning: no auth secret configured, writes are disabled")
	}

	fmt.Fprintf(out, "ok: %d host(s), %d allow-listed path(s)\n", len(hosts), len(cfg.AllowList))
	return nil
}
