// Copyright 2025 The Weft Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"sort"
	"strings"

	"github.com/mpvl/unique"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"weft.dev/go/internal/config"
)

func newRoutesCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "list the routes of every configured app",
		Long: `Routes loads the configuration file and prints one line per route,
grouped by app, including the metrics endpoint when it is enabled.
The hostname column shows each app's patterns sorted and
deduplicated; the app serving unmatched hostnames is marked
(default).`,
		RunE: mkRunE(c, runRoutes),
	}
	return cmd
}

func runRoutes(cmd *Command, args []string) error {
	cfg, err := config.Load(flagConfig.String(cmd))
	if err != nil {
		return err
	}

	metricsApp := cfg.Metrics.App
	if metricsApp == "" {
		metricsApp = cfg.DefaultApp().Name
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"APP", "HOSTNAMES", "METHOD", "PATTERN", "HANDLER"})
	for _, a := range cfg.Apps {
		hosts := append([]string(nil), a.Hostnames...)
		sort.Strings(hosts)
		unique.Strings(&hosts)
		host := strings.Join(hosts, ", ")
		if a.Default {
			if host == "" {
				host = "(default)"
			} else {
				host += " (default)"
			}
		}

		for _, rt := range a.Routes {
			method := rt.Method
			if method == "" {
				method = "ANY"
			}
			table.Append([]string{a.Name, host, method, rt.Pattern, rt.Handler})
		}
		if cfg.Metrics.Enabled && a.Name == metricsApp {
			table.Append([]string{a.Name, host, "GET", cfg.Metrics.Path, "metrics"})
		}
	}
	table.Render()
	return nil
}
