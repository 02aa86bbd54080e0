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

package relocation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"smol.sh/smol/internal/fileutil"
)

// LedgerEntry records the output produced for one artifact and rule set.
type LedgerEntry struct {
	// Artifact identifies the input: coordinate and input digest.
	Artifact string `json:"artifact"`
	SetID    string `json:"set"`
	Output   string `json:"output"`
	// Checksum is the SHA-256 of Output when it was committed.
	Checksum string `json:"checksum"`
}

// Ledger is the persistent record of relocations already performed.
//
// Every key is stored in its own file and replaced atomically, so a crash
// leaves either the previous entry or the new one. Concurrent writers of the
// same key race; the last one wins, which is harmless because entries are
// re-derivable.
type Ledger struct {
	dir string
}

// OpenLedger returns the ledger stored in dir.
func OpenLedger(dir string) *Ledger {
	return &Ledger{dir: dir}
}

func (l *Ledger) path(artifactID, setID string) string {
	h := sha256.Sum256([]byte(artifactID + "\x00" + setID))
	return filepath.Join(l.dir, hex.EncodeToString(h[:])+".json")
}

// Lookup returns the entry for (artifactID, setID).
func (l *Ledger) Lookup(artifactID, setID string) (LedgerEntry, bool, error) {
	b, err := os.ReadFile(l.path(artifactID, setID))
	if err != nil {
		if os.IsNotExist(err) {
			return LedgerEntry{}, false, nil
		}
		return LedgerEntry{}, false, errors.Wrap(err, "unable to read relocation ledger")
	}
	var e LedgerEntry
	if err := json.Unmarshal(b, &e); err != nil || e.Artifact != artifactID || e.SetID != setID {
		// Unreadable entries are treated as absent and get rewritten.
		return LedgerEntry{}, false, nil
	}
	return e, true, nil
}

// Commit stores e, replacing any previous entry for the same key.
func (l *Ledger) Commit(e LedgerEntry) error {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(fileutil.AtomicWriteFile(l.path(e.Artifact, e.SetID), bytes.NewReader(b), 0644), "unable to commit relocation ledger entry")
}
