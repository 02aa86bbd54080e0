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

package main // import "smol.sh/smol/cmd/smol"

import (
	"fmt"
	"os"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cli"
)

var settings = cli.New()

func main() {
	cmd, err := newRootCmd(os.Stdout, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps failures to distinct statuses so that wrappers can tell a
// bad configuration from a failed download.
func exitCode(err error) int {
	switch artifact.KindOf(err) {
	case artifact.KindConfiguration:
		return 2
	case artifact.KindNotFound:
		return 3
	case artifact.KindVerification:
		return 4
	default:
		return 1
	}
}
