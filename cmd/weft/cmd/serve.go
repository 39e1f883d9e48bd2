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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"weft.dev/go/internal/config"
	"weft.dev/go/web"
)

func newServeCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the configured server until interrupted",
		Long: `Serve loads the configuration file, binds the configured listeners
and serves the configured apps until the process receives SIGINT or
SIGTERM.

With --watch the configuration file is monitored and the server is
restarted gracefully whenever a valid new configuration is written;
invalid configurations are logged and ignored. With --print-config
the effective configuration, defaults applied, is printed instead of
serving.`,
		RunE: mkRunE(c, runServe),
	}

	cmd.Flags().Bool(string(flagWatch), false,
		"restart on configuration file changes")
	cmd.Flags().Bool(string(flagPrintConfig), false,
		"print the effective configuration and exit")

	return cmd
}

func runServe(cmd *Command, args []string) error {
	path := flagConfig.String(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if flagPrintConfig.Bool(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "%# v\n", pretty.Formatter(cfg))
		return nil
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reload := make(chan *config.Config, 1)
	if flagWatch.Bool(cmd) {
		err := config.Watch(ctx, path, log, func(next *config.Config) {
			select {
			case reload <- next:
			default:
			}
		})
		if err != nil {
			return err
		}
	}

	for {
		srv, err := web.NewServer(cfg, log)
		if err != nil {
			return err
		}
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- srv.Run(runCtx) }()

		select {
		case next := <-reload:
			// Drain the old server completely before binding the new
			// one: they share listen addresses.
			cancel()
			if err := <-done; err != nil {
				return err
			}
			cfg = next
			log.Info("restarting with new configuration")
		case err := <-done:
			cancel()
			return err
		}
	}
}
