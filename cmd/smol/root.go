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
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/action"
)

var globalUsage = `Fetch, verify and relocate the runtime dependencies of an application.

Common actions for smol:

- smol provision:  resolve every dependency of a manifest
- smol resolve:    find where a coordinate can be downloaded from
- smol verify:     check a file against a checksum
- smol relocate:   move the packages of a jar into a new namespace

Environment variables:

| Name                           | Description                                                         |
|--------------------------------|---------------------------------------------------------------------|
| $SMOL_APPLICATION              | application name, separates download directories                    |
| $SMOL_CA_FILE                  | set a CA bundle trusted for HTTPS repositories                      |
| $SMOL_CACHE_HOME               | set an alternative location for storing cached files                |
| $SMOL_CERT_FILE                | set the client certificate sent to HTTPS repositories               |
| $SMOL_CONFIG_HOME              | set an alternative location for storing smol configuration          |
| $SMOL_DEBUG                    | indicate whether or not smol is running in debug mode               |
| $SMOL_DOWNLOAD_DIR             | set the download directory                                          |
| $SMOL_INSECURE_SKIP_TLS_VERIFY | skip certificate checks for HTTPS repositories                      |
| $SMOL_KEY_FILE                 | set the key of the client certificate                               |
| $SMOL_KEYRING                  | set the OpenPGP keyring used to check signatures                    |
| $SMOL_PRE_RESOLUTION           | set the path to a manifest of pinned artifact locations             |
| $SMOL_TIMEOUT                  | set the timeout of network requests                                 |
| $SMOL_VERIFY                   | set the verification policy (strict or passthrough)                 |
| $SMOL_WORKERS                  | set the number of dependencies resolved concurrently                |
`

type rootOptions struct {
	logFile string
}

func newRootCmd(out io.Writer, args []string) (*cobra.Command, error) {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "smol",
		Short:         "The runtime dependency fetcher.",
		Long:          globalUsage,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := cmd.PersistentFlags()

	settings.AddFlags(flags)
	flags.StringVar(&opts.logFile, "log-file", "", "also write debug logs to this file")

	// We can safely ignore any errors that flags.Parse encounters since
	// those errors will be caught later during the call to cmd.Execution.
	// This call is required to gather configuration information prior to
	// execution.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Parse(args)

	// Add subcommands
	cmd.AddCommand(
		newProvisionCmd(opts, out),
		newResolveCmd(opts, out),
		newVerifyCmd(opts, out),
		newRelocateCmd(opts, out),
		newVersionCmd(out),
	)

	return cmd, nil
}

// newConfig initializes an action configuration from the global settings.
// The caller closes the returned closer once the command is done.
func (o *rootOptions) newConfig(cmd *cobra.Command, initOpts ...action.InitOption) (*action.Configuration, io.Closer, error) {
	log, closer, err := o.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	cfg := &action.Configuration{}
	if err := cfg.Init(settings, log, initOpts...); err != nil {
		closer.Close()
		return nil, nil, err
	}
	return cfg, closer, nil
}

func (o *rootOptions) logger(stderr io.Writer) (logrus.FieldLogger, io.Closer, error) {
	console := logging.NewLogger(stderr, settings.Debug)
	if o.logFile == "" {
		return console, closerFunc(func() error { return nil }), nil
	}
	f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to open log file")
	}
	return logging.Fanout(console, logging.NewLogger(f, true)), f, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
