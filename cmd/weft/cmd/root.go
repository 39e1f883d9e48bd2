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
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"weft.dev/go/internal/config"
	"weft.dev/go/internal/logs"
)

type runFunction func(cmd *Command, args []string) error

func mkRunE(c *Command, f runFunction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c.Command = cmd
		return f(c, args)
	}
}

// newRootCmd creates the base command when called without any subcommands.
func newRootCmd() *Command {
	cmd := &cobra.Command{
		Use:   "weft",
		Short: "weft serves configured apps over HTTP",
		Long: `weft is an HTTP server that dispatches requests to named apps by
hostname and path, as described by a YAML configuration file.

Beyond serving, the tool can list the routes a configuration defines
and render JSON or YAML documents the way the server's debug handler
and access log do, with shared and cyclic structure made explicit.`,

		SilenceUsage: true,
	}

	c := &Command{Command: cmd, root: cmd}

	subCommands := []*cobra.Command{
		newServeCmd(c),
		newRoutesCmd(c),
		newRenderCmd(c),
		newVersionCmd(c),
	}

	addGlobalFlags(cmd.PersistentFlags())

	for _, sub := range subCommands {
		cmd.AddCommand(sub)
	}

	return c
}

// Main runs the weft tool and returns the code for passing to os.Exit.
func Main() int {
	err := mainErr(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func mainErr(ctx context.Context, args []string) error {
	cmd := New(args)
	return cmd.Run(ctx)
}

// A Command wraps the active cobra command, giving subcommand
// implementations access to the root and its persistent flags.
type Command struct {
	// The currently active command.
	*cobra.Command

	root *cobra.Command
}

// New returns a command ready to Run with the given arguments.
func New(args []string) *Command {
	cmd := newRootCmd()
	cmd.root.SetArgs(args)
	return cmd
}

func (c *Command) SetOutput(w io.Writer) {
	c.root.SetOut(w)
	c.root.SetErr(w)
}

func (c *Command) SetInput(r io.Reader) {
	c.root.SetIn(r)
}

func (c *Command) Run(ctx context.Context) error {
	return c.root.ExecuteContext(ctx)
}

// newLogger builds the process logger from the configuration's log
// section. The --log-level flag takes precedence over the configured
// level.
func newLogger(cmd *Command, cfg *config.Config) (*logrus.Logger, error) {
	level := cfg.Log.Level
	if s := flagLogLevel.String(cmd); s != "" {
		level = s
	}
	return logs.Setup(logs.Options{
		Level:      level,
		Format:     cfg.Log.Format,
		Dir:        cfg.Log.Dir,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}
