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

package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// AtomicWriteFile atomically (as atomic as os.Rename allows) writes a file to a
// disk. The temporary file is removed if anything fails, so filename either
// keeps its previous content or receives all of reader.
func AtomicWriteFile(filename string, reader io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(filepath.Split(filename))
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	if _, err := io.Copy(tempFile, reader); err != nil {
		tempFile.Close() // return value is ignored as we are already on error path
		os.Remove(tempName)
		return err
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Chmod(tempName, mode); err != nil {
		os.Remove(tempName)
		return err
	}

	if err := RenameWithFallback(tempName, filename); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

// RenameWithFallback attempts to rename a file, and falls back to copying
// when the rename crosses devices.
func RenameWithFallback(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var terr *os.LinkError
	if !errors.As(err, &terr) || terr.Err != syscall.EXDEV {
		return errors.Wrapf(err, "cannot rename %s to %s", src, dst)
	}

	if err := copyFile(src, dst); err != nil {
		return errors.Wrapf(err, "cannot copy %s to %s", src, dst)
	}
	return errors.Wrapf(os.Remove(src), "cannot delete %s", src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	return AtomicWriteFile(dst, in, fi.Mode())
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
