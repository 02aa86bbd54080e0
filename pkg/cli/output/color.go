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

package output

import (
	"github.com/fatih/color"

	"smol.sh/smol/pkg/artifact"
)

// ColorizeStatus returns the status column of a resolved or failed artifact.
func ColorizeStatus(kind artifact.Kind, failed bool, noColor bool) string {
	status := "resolved"
	if failed {
		status = kind.String()
	}
	if noColor {
		return status
	}

	switch {
	case !failed:
		return color.GreenString(status)
	case kind == artifact.KindNotFound:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

// ColorizeHeader returns a colorized version of a header string
func ColorizeHeader(header string, noColor bool) string {
	// Disable color if requested
	if noColor {
		return header
	}

	// Use bold for headers
	return color.New(color.Bold).Sprint(header)
}
