/*
Copyright The Smol Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"smol.sh/smol/pkg/action"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cli/require"
	"smol.sh/smol/pkg/relocation"
)

const relocateDesc = `
Rewrite a jar so that the packages named by --rule move into a new namespace.

The relocated copy is written below the download directory and its path is
printed. Relocating the same file with the same rules again returns the
recorded copy without rewriting it.
`

func newRelocateCmd(root *rootOptions, out io.Writer) *cobra.Command {
	var rules relocation.Set
	var coordinate string

	cmd := &cobra.Command{
		Use:   "relocate JAR",
		Short: "move the packages of a jar into a new namespace",
		Long:  relocateDesc,
		Args:  require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := root.newConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			client := action.NewRelocate(cfg)
			client.Rules = rules
			if coordinate != "" {
				if client.Coordinate, err = artifact.ParseCoordinate(coordinate); err != nil {
					return err
				}
			}
			p, err := client.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, p)
			return nil
		},
	}

	f := cmd.Flags()
	addRuleFlag(f, &rules)
	f.StringVar(&coordinate, "coordinate", "", "coordinate the jar is recorded under (default local:NAME:0)")

	return cmd
}
