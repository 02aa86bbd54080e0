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

/*
Package relocation rewrites the namespace of artifacts.

A relocation moves the classes of one package into another so that a
dependency cannot collide with the host or with other dependencies. Every
relocation is recorded in a Ledger keyed by the input artifact and the
rule Set, which makes repeating a relocation free.
*/
package relocation // import "smol.sh/smol/pkg/relocation"

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/fileutil"
	"smol.sh/smol/internal/flight"
	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/checksum"
)

const (
	// OutputDir holds relocated artifacts inside the download directory.
	OutputDir = "relocated"
	// LedgerDir holds the ledger inside the download directory.
	LedgerDir = "ledger"
)

// maxAttempts bounds the rewrites of a single request.
const maxAttempts = 2

// Request asks for Input, the artifact of Coordinate, to be relocated with Set.
type Request struct {
	Coordinate artifact.Coordinate
	Input      string
	Set        Set
}

// Helper relocates artifacts and keeps the ledger.
type Helper struct {
	// Dir receives relocated artifacts.
	Dir      string
	Ledger   *Ledger
	Rewriter Rewriter
	Log      logrus.FieldLogger

	group flight.Group[string]
	// afterCommit is called after each ledger commit.
	afterCommit func(LedgerEntry)
}

// New creates a Helper storing outputs and the ledger under downloadDir.
func New(downloadDir string, rw Rewriter, log logrus.FieldLogger) *Helper {
	return &Helper{
		Dir:      filepath.Join(downloadDir, OutputDir),
		Ledger:   OpenLedger(filepath.Join(downloadDir, LedgerDir)),
		Rewriter: rw,
		Log:      log,
	}
}

// Relocate returns the path of the relocated copy of req.Input.
//
// When the ledger already records an output for the same input and set, and
// that output is unchanged on disk, it is returned without rewriting.
// Otherwise the artifact is rewritten, published, and committed to the
// ledger. The published output is then checked against the ledger; one
// mismatch causes a second rewrite, a second mismatch is a RelocationFailure.
// An empty set returns the input unchanged.
func (h *Helper) Relocate(ctx context.Context, req Request) (string, error) {
	if len(req.Set) == 0 {
		return req.Input, nil
	}
	if err := req.Set.Validate(); err != nil {
		return "", artifact.NewConfigurationError(req.Coordinate, err)
	}

	inputDigest, err := digest(req.Input)
	if err != nil {
		return "", artifact.NewRelocationFailure(req.Coordinate, err)
	}
	artifactID := req.Coordinate.String() + "@" + inputDigest
	setID := req.Set.ID()

	out, err := h.group.Do(ctx, artifactID+"\x00"+setID, func(ctx context.Context) (string, error) {
		return h.relocate(ctx, req, artifactID, setID)
	})
	if err != nil {
		return "", artifact.WithCoordinate(req.Coordinate, artifact.KindRelocation, err)
	}
	return out, nil
}

func (h *Helper) relocate(ctx context.Context, req Request, artifactID, setID string) (string, error) {
	log := logging.OrDiscard(h.Log).WithFields(logrus.Fields{"coordinate": req.Coordinate.String(), "set": setID[:12]})

	if out, ok := h.recorded(artifactID, setID); ok {
		log.WithField("path", out).Debug("relocation found in ledger")
		return out, nil
	}

	output, err := h.outputPath(req, setID)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sum, err := h.rewrite(ctx, req, output)
		if err != nil {
			return "", err
		}
		entry := LedgerEntry{Artifact: artifactID, SetID: setID, Output: output, Checksum: sum}
		if err := h.Ledger.Commit(entry); err != nil {
			return "", err
		}
		if h.afterCommit != nil {
			h.afterCommit(entry)
		}

		if out, ok := h.recorded(artifactID, setID); ok {
			log.WithField("path", out).Debug("relocated")
			return out, nil
		}
		log.WithField("attempt", attempt).Warn("relocated output does not match the ledger")
	}
	return "", artifact.NewRelocationFailure(req.Coordinate, errors.Errorf("relocated output of %s did not match its ledger entry after %d attempts", req.Input, maxAttempts))
}

// recorded returns the ledger output for the key if it is intact on disk.
func (h *Helper) recorded(artifactID, setID string) (string, bool) {
	e, ok, err := h.Ledger.Lookup(artifactID, setID)
	if err != nil || !ok || !fileutil.Exists(e.Output) {
		return "", false
	}
	sum, err := digest(e.Output)
	if err != nil || !checksum.Equal(sum, e.Checksum) {
		return "", false
	}
	return e.Output, true
}

// rewrite produces output through a temporary file and returns its digest.
func (h *Helper) rewrite(ctx context.Context, req Request, output string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), filepath.Base(output)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hash := checksum.SHA256.New()
	if err := h.Rewriter.Rewrite(ctx, req.Input, io.MultiWriter(tmp, hash), req.Set); err != nil {
		tmp.Close()
		return "", artifact.NewRelocationFailure(req.Coordinate, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return "", err
	}
	if err := fileutil.RenameWithFallback(tmpName, output); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// outputPath is {Dir}/{groupPath}/{artifact}/{version}/{name}-{set}.{ext}.
func (h *Helper) outputPath(req Request, setID string) (string, error) {
	base := filepath.Base(req.Input)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + "-" + setID[:16] + ext
	rel := path.Join(req.Coordinate.GroupPath(), req.Coordinate.Artifact, req.Coordinate.Version, name)
	return securejoin.SecureJoin(h.Dir, filepath.FromSlash(rel))
}

func digest(p string) (string, error) {
	return (&checksum.Calculator{Algorithm: checksum.SHA256}).DigestFile(p)
}
