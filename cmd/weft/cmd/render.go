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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"weft.dev/go/internal/core/convert"
	"weft.dev/go/internal/core/inspect"
)

func newRenderCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "render a JSON or YAML document as a value graph",
		Long: `Render reads a document, converts it to a value graph and prints it
the way the server's debug handler and access log do. JSON input is
accepted as a YAML subset.

With no argument, or with "-", the document is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: mkRunE(c, runRender),
	}

	cmd.Flags().String(string(flagFormat), "text",
		"output format (text|json)")
	cmd.Flags().Int(string(flagMaxDepth), 0,
		"render containers nested deeper than this as placeholders (0 means no bound)")
	cmd.Flags().Int(string(flagMaxItems), 0,
		"elements or fields shown per container (0 means no bound)")

	return cmd
}

func runRender(cmd *Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var x interface{}
	if err := yaml.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	v, err := convert.FromGo(x)
	if err != nil {
		return err
	}

	p := &inspect.Profile{
		MaxDepth: flagMaxDepth.Int(cmd),
		MaxItems: flagMaxItems.Int(cmd),
		Indent:   "  ",
	}

	var out string
	switch format := flagFormat.String(cmd); format {
	case "text":
		out, err = p.Text(v)
	case "json":
		p.Indent = ""
		out, err = p.JSON(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func readInput(cmd *Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
