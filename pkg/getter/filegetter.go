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

package getter

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileGetter reads file:// URLs, used for local repository directories.
type FileGetter struct {
	opts getterOptions
}

// NewFileGetter constructs a Getter for file:// URLs.
func NewFileGetter(options ...Option) (Getter, error) {
	var g FileGetter
	for _, opt := range options {
		opt(&g.opts)
	}
	return &g, nil
}

// Get reads the whole file behind href.
func (g *FileGetter) Get(ctx context.Context, href string, options ...Option) (*bytes.Buffer, error) {
	r, err := g.Open(ctx, href, options...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", href)
	}
	return buf, nil
}

// Open opens the file behind href.
func (g *FileGetter) Open(ctx context.Context, href string, _ ...Option) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := localPath(href)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fileError(href, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fileError(href, err)
	}
	if fi.IsDir() {
		f.Close()
		return nil, errors.Wrapf(ErrNotFound, "%s is a directory", href)
	}
	return f, nil
}

// Head reports whether a regular file exists at href.
func (g *FileGetter) Head(ctx context.Context, href string, _ ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := localPath(href)
	if err != nil {
		return err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return fileError(href, err)
	}
	if fi.IsDir() {
		return errors.Wrapf(ErrNotFound, "%s is a directory", href)
	}
	return nil
}

func localPath(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URL %q", href)
	}
	if u.Scheme != "file" {
		return "", errors.Errorf("unsupported scheme %q for file getter", u.Scheme)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return filepath.FromSlash(p), nil
}

func fileError(href string, err error) error {
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNotFound, "failed to fetch %s", href)
	}
	return errors.Wrapf(err, "failed to fetch %s", href)
}
