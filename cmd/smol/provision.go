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
	"os"

	"github.com/spf13/cobra"

	"smol.sh/smol/pkg/action"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cli/output"
	"smol.sh/smol/pkg/cli/require"
	"smol.sh/smol/pkg/manifest"
	"smol.sh/smol/pkg/resolver"
)

const provisionDesc = `
Resolve, download and verify every dependency listed in a manifest.

Dependencies carrying relocation rules are rewritten into their new namespace.
Failures of optional dependencies are reported but do not fail the command.
With --classpath only the list of loadable files is printed, separated by the
platform path list separator.
`

type provisionOptions struct {
	manifest  string
	classpath bool
	noColor   bool
	outfmt    output.Format
}

func newProvisionCmd(root *rootOptions, out io.Writer) *cobra.Command {
	o := &provisionOptions{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "resolve every dependency of a manifest",
		Long:  provisionDesc,
		Args:  require.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(o.manifest)
			if err != nil {
				return err
			}
			deps, err := m.Resolve()
			if err != nil {
				return err
			}
			if _, set := os.LookupEnv("SMOL_APPLICATION"); m.Application != "" && !set {
				settings.SetApplication(m.Application)
			}

			cfg, closer, err := root.newConfig(cmd,
				action.WithSelector(m.Selector()),
				action.WithGetterOptions(m.GetterOptions()...),
			)
			if err != nil {
				return err
			}
			defer closer.Close()

			cp := &action.Classpath{}
			client := action.NewProvision(cfg)
			client.Loader = cp
			report, runErr := client.Run(cmd.Context(), deps)
			if report == nil {
				return runErr
			}

			if o.classpath {
				fmt.Fprintln(out, cp.String())
				return runErr
			}
			if err := o.outfmt.Write(out, &provisionWriter{report.Batch, o.noColor}); err != nil {
				return err
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.manifest, "file", "f", manifest.DefaultFile, "dependency manifest (YAML, JSON or TOML)")
	f.BoolVar(&o.classpath, "classpath", false, "print the loadable files only")
	f.BoolVar(&o.noColor, "no-color", false, "disable colored status output")
	bindOutputFlag(cmd, &o.outfmt)

	return cmd
}

type provisionElement struct {
	Coordinate string           `json:"coordinate"`
	Status     string           `json:"status"`
	Optional   bool             `json:"optional,omitempty"`
	Error      string           `json:"error,omitempty"`
	Record     *artifact.Record `json:"record,omitempty"`
}

type provisionWriter struct {
	batch   *resolver.Batch
	noColor bool
}

func (w *provisionWriter) WriteTable(out io.Writer) error {
	table := output.NewTable(
		output.ColorizeHeader("COORDINATE", w.noColor),
		output.ColorizeHeader("STATUS", w.noColor),
		output.ColorizeHeader("VERIFIED", w.noColor),
		output.ColorizeHeader("RELOCATED", w.noColor),
		output.ColorizeHeader("PATH", w.noColor),
	)
	for _, o := range w.batch.Outcomes {
		status := output.ColorizeStatus(artifact.KindOf(o.Err), o.Err != nil, w.noColor)
		if o.Err != nil {
			table.AddRow(o.Dependency.Coordinate.String(), status, "", "", "")
			continue
		}
		table.AddRow(o.Dependency.Coordinate.String(), status, o.Record.Verified, o.Record.Relocated, o.Record.LocalPath)
	}
	return output.EncodeTable(out, table)
}

func (w *provisionWriter) WriteJSON(out io.Writer) error {
	return output.EncodeJSON(out, w.elements())
}

func (w *provisionWriter) WriteYAML(out io.Writer) error {
	return output.EncodeYAML(out, w.elements())
}

func (w *provisionWriter) elements() []provisionElement {
	// Initialize the array so no results returns an empty array instead of null
	elements := make([]provisionElement, 0, len(w.batch.Outcomes))
	for _, o := range w.batch.Outcomes {
		e := provisionElement{
			Coordinate: o.Dependency.Coordinate.String(),
			Status:     "resolved",
			Optional:   o.Dependency.Optional,
			Record:     o.Record,
		}
		if o.Err != nil {
			e.Status = artifact.KindOf(o.Err).String()
			e.Error = o.Err.Error()
		}
		elements = append(elements, e)
	}
	return elements
}
