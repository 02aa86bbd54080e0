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

package cli

import (
	"fmt"

	"smol.sh/smol/pkg/verifier"
)

// InvalidSettingError names a setting that cannot be used as given.
type InvalidSettingError struct {
	Setting string
	Reason  string
}

func (e InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid setting %s: %s", e.Setting, e.Reason)
}

// Validate checks the settings and returns one error per unusable field.
func (s *EnvSettings) Validate() []error {
	errs := make([]error, 0)

	if s.DownloadDir == "" {
		appendError(&errs, "DownloadDir", "must not be empty")
	}
	if s.Timeout <= 0 {
		appendError(&errs, "Timeout", "must be positive")
	}
	if s.Workers < 1 {
		appendError(&errs, "Workers", "must be at least 1")
	}
	if _, err := verifier.ParsePolicy(s.Verify); err != nil {
		appendError(&errs, "Verify", err.Error())
	}
	if s.RequireSignature && s.Keyring == "" {
		appendError(&errs, "RequireSignature", "needs a keyring")
	}
	if (s.CertFile == "") != (s.KeyFile == "") {
		appendError(&errs, "CertFile", "a client certificate needs both a cert file and a key file")
	}

	return errs
}

func appendError(errs *[]error, field, reason string) {
	*errs = append(*errs, InvalidSettingError{Setting: field, Reason: reason})
}
