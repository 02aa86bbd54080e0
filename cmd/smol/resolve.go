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
	"io"

	"github.com/spf13/cobra"

	"smol.sh/smol/pkg/action"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cli/output"
	"smol.sh/smol/pkg/cli/require"
	"smol.sh/smol/pkg/mirror"
)

const resolveDesc = `
Find where a coordinate (group:artifact:version[:classifier]) can be
downloaded from.

Repositories are searched in the order they are given with --repo; Maven
Central is searched when none is given. Nothing is downloaded.
`

func newResolveCmd(root *rootOptions, out io.Writer) *cobra.Command {
	var repos []string
	var outfmt output.Format

	cmd := &cobra.Command{
		Use:   "resolve COORDINATE",
		Short: "find where a coordinate can be downloaded from",
		Long:  resolveDesc,
		Args:  require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := artifact.ParseCoordinate(args[0])
			if err != nil {
				return err
			}
			cfg, closer, err := root.newConfig(cmd, action.WithSelector(mirror.DeclarationOrder{}))
			if err != nil {
				return err
			}
			defer closer.Close()

			client := action.NewResolve(cfg)
			client.Repositories = repositories(repos)
			loc, err := client.Run(cmd.Context(), c)
			if err != nil {
				return err
			}
			return outfmt.Write(out, &locationWriter{c, loc})
		},
	}

	cmd.Flags().StringArrayVarP(&repos, "repo", "r", nil, "repository base URL (can specify multiple)")
	bindOutputFlag(cmd, &outfmt)

	return cmd
}

type locationElement struct {
	Coordinate string `json:"coordinate"`
	*artifact.ResolvedLocation
}

type locationWriter struct {
	coordinate artifact.Coordinate
	location   *artifact.ResolvedLocation
}

func (w *locationWriter) WriteTable(out io.Writer) error {
	table := output.NewTable("COORDINATE", w.coordinate.String())
	table.AddRow("REPOSITORY", w.location.Repository)
	if w.location.Aggregator {
		table.AddRow("AGGREGATOR", "true")
		return output.EncodeTable(out, table)
	}
	table.AddRow("URL", w.location.DownloadURL)
	if w.location.ChecksumURL != "" {
		table.AddRow("CHECKSUM", w.location.ChecksumURL)
	}
	if w.location.SignatureURL != "" {
		table.AddRow("SIGNATURE", w.location.SignatureURL)
	}
	return output.EncodeTable(out, table)
}

func (w *locationWriter) WriteJSON(out io.Writer) error {
	return output.EncodeJSON(out, locationElement{w.coordinate.String(), w.location})
}

func (w *locationWriter) WriteYAML(out io.Writer) error {
	return output.EncodeYAML(out, locationElement{w.coordinate.String(), w.location})
}
