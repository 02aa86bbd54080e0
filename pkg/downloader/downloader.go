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

package downloader

import (
	"context"
	"io"
	"net/url"
	"path"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/fileutil"
	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/getter"
)

// Downloader fetches artifacts into Dir.
type Downloader struct {
	// Dir is the download directory. Staged artifacts live under
	// {Dir}/{groupPath}/{artifact}/{version}/.
	Dir     string
	Getters getter.Providers
	// Options are passed to every getter call.
	Options []getter.Option
	Log     logrus.FieldLogger
}

// New creates a Downloader storing artifacts under dir.
func New(dir string, providers getter.Providers, log logrus.FieldLogger, options ...getter.Option) *Downloader {
	return &Downloader{Dir: dir, Getters: providers, Options: options, Log: log}
}

// Fetch streams href into dest. On any failure, including cancellation,
// nothing is left at dest that was not there before.
func (d *Downloader) Fetch(ctx context.Context, href, dest string) error {
	g, err := d.Getters.ForURL(href)
	if err != nil {
		return artifact.NewConfigurationError(artifact.Coordinate{}, err)
	}

	body, err := g.Open(ctx, href, d.Options...)
	if err != nil {
		return artifact.NewDownloadFailure(artifact.Coordinate{}, err)
	}
	defer body.Close()

	if err := fileutil.AtomicWriteFile(dest, &contextReader{ctx: ctx, r: body}, 0644); err != nil {
		return artifact.NewDownloadFailure(artifact.Coordinate{}, errors.Wrapf(err, "failed to download %s", href))
	}
	d.logger().WithFields(logrus.Fields{"url": href, "path": dest}).Debug("downloaded")
	return nil
}

// PathFor returns the staging path of the file at href for coordinate c.
// The file name is taken from the last element of the URL path.
func (d *Downloader) PathFor(c artifact.Coordinate, href string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", artifact.NewConfigurationError(c, errors.Wrapf(err, "invalid URL %q", href))
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = c.Artifact + "-" + c.Version + ".jar"
	}
	rel := path.Join(c.GroupPath(), c.Artifact, c.Version, name)
	p, err := securejoin.SecureJoin(d.Dir, filepath.FromSlash(rel))
	if err != nil {
		return "", artifact.NewConfigurationError(c, err)
	}
	return p, nil
}

// Stage makes the artifact at href available locally and returns its path.
// A file already published at the staging path is reused without any
// network access; the caller is expected to authenticate it either way.
func (d *Downloader) Stage(ctx context.Context, c artifact.Coordinate, href string) (string, bool, error) {
	dest, err := d.PathFor(c, href)
	if err != nil {
		return "", false, err
	}
	if fileutil.Exists(dest) {
		d.logger().WithFields(logrus.Fields{"coordinate": c.String(), "path": dest}).Debug("reusing staged artifact")
		return dest, true, nil
	}
	if err := d.Fetch(ctx, href, dest); err != nil {
		return "", false, artifact.WithCoordinate(c, artifact.KindDownload, err)
	}
	return dest, false, nil
}

func (d *Downloader) logger() logrus.FieldLogger {
	return logging.OrDiscard(d.Log)
}

// contextReader stops a copy at the next read once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
