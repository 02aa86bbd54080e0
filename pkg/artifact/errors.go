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

package artifact

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why a coordinate could not be provisioned.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound means no repository serves the coordinate.
	KindNotFound
	// KindDownload means the transfer failed (status, timeout, I/O).
	KindDownload
	// KindVerification means the artifact could not be authenticated.
	KindVerification
	// KindRelocation means namespace rewriting could not produce a stable output.
	KindRelocation
	// KindConfiguration means a malformed coordinate, manifest or setting.
	KindConfiguration
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown failure",
	KindNotFound:      "resolution not found",
	KindDownload:      "download failure",
	KindVerification:  "verification failure",
	KindRelocation:    "relocation failure",
	KindConfiguration: "configuration error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Error is a failure attributed to a single coordinate.
type Error struct {
	Kind       Kind
	Coordinate Coordinate
	Err        error
}

func (e *Error) Error() string {
	var msg string
	if e.Coordinate == (Coordinate{}) {
		msg = e.Kind.String()
	} else {
		msg = fmt.Sprintf("%s for %s", e.Kind, e.Coordinate)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Cause implements the github.com/pkg/errors causer interface.
func (e *Error) Cause() error { return e.Err }

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, artifact.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Coordinate == Coordinate{} || t.Coordinate == e.Coordinate)
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrDownload      = &Error{Kind: KindDownload}
	ErrVerification  = &Error{Kind: KindVerification}
	ErrRelocation    = &Error{Kind: KindRelocation}
	ErrConfiguration = &Error{Kind: KindConfiguration}
)

func newError(k Kind, c Coordinate, err error) error {
	return &Error{Kind: k, Coordinate: c, Err: err}
}

// NewNotFound reports that no repository serves c.
func NewNotFound(c Coordinate, err error) error { return newError(KindNotFound, c, err) }

// NewDownloadFailure reports a failed transfer of c.
func NewDownloadFailure(c Coordinate, err error) error { return newError(KindDownload, c, err) }

// NewVerificationFailure reports that c could not be authenticated.
func NewVerificationFailure(c Coordinate, err error) error {
	return newError(KindVerification, c, err)
}

// NewRelocationFailure reports that relocating c did not converge.
func NewRelocationFailure(c Coordinate, err error) error { return newError(KindRelocation, c, err) }

// NewConfigurationError reports malformed input.
func NewConfigurationError(c Coordinate, err error) error {
	return newError(KindConfiguration, c, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// WithCoordinate attributes err to c. Errors that already carry a kind keep
// it; anything else is classified as fallback.
func WithCoordinate(c Coordinate, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Coordinate == c {
			return err
		}
		return &Error{Kind: e.Kind, Coordinate: c, Err: e.Err}
	}
	return newError(fallback, c, err)
}
