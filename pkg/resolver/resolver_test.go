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

package resolver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/downloader"
	"smol.sh/smol/pkg/enquirer"
	"smol.sh/smol/pkg/getter"
	"smol.sh/smol/pkg/preresolution"
	"smol.sh/smol/pkg/relocation"
	"smol.sh/smol/pkg/verifier"
)

const (
	coreSHA1 = "c6236f38d2398565506e9be29a649939c1dda7f3"
	utilSHA1 = "1e50a76d6dd59850ab935da1f1aff1c331e1a3f2"
)

var (
	core    = artifact.Coordinate{Group: "com.example", Artifact: "core", Version: "1.0"}
	util    = artifact.Coordinate{Group: "com.example", Artifact: "util", Version: "2.0"}
	missing = artifact.Coordinate{Group: "com.example", Artifact: "missing", Version: "1.0"}
	bom     = artifact.Coordinate{Group: "com.example", Artifact: "bom", Version: "1.0"}
)

// repoServer serves repository files and counts every request.
type repoServer struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string]string
	hits  int
}

func newRepoServer(t *testing.T, files map[string]string) *repoServer {
	t.Helper()
	rs := &repoServer{files: files}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.hits++
		body, ok := rs.files[r.URL.Path]
		rs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			io.WriteString(w, body)
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *repoServer) repos() []artifact.Repository {
	return []artifact.Repository{{URL: rs.URL + "/repo/"}}
}

func (rs *repoServer) requests() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.hits
}

func defaultFiles() map[string]string {
	return map[string]string{
		"/repo/com/example/core/1.0/core-1.0.jar":      "core jar",
		"/repo/com/example/core/1.0/core-1.0.jar.sha1": coreSHA1,
		"/repo/com/example/util/2.0/util-2.0.jar":      "util jar",
		"/repo/com/example/util/2.0/util-2.0.jar.sha1": utilSHA1 + "  util-2.0.jar\n",
		"/repo/com/example/bom/1.0/bom-1.0.pom":        "<project/>",
	}
}

func newResolver(t *testing.T, dir string, policy verifier.Policy, pre preresolution.Provider, rel Relocator) *Resolver {
	t.Helper()
	providers := getter.Getters()
	v, err := verifier.New(verifier.Config{Policy: policy, Getters: providers})
	require.NoError(t, err)
	return New(pre, enquirer.New(providers, nil), downloader.New(dir, providers, nil), v, rel, nil)
}

func TestResolveDownloadsAndVerifies(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)

	rec, err := r.Resolve(context.Background(), Dependency{Coordinate: core, Repositories: rs.repos()})
	require.NoError(t, err)
	assert.True(t, rec.Verified)
	assert.False(t, rec.Relocated)
	assert.Equal(t, coreSHA1, rec.Checksum)
	assert.True(t, rec.Loadable())
	assert.Equal(t, rs.URL+"/repo/com/example/core/1.0/core-1.0.jar", rec.Location.DownloadURL)

	data, err := os.ReadFile(rec.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "core jar", string(data))
}

func TestResolveIsMemoized(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)
	dep := Dependency{Coordinate: core, Repositories: rs.repos()}

	first, err := r.Resolve(context.Background(), dep)
	require.NoError(t, err)
	before := rs.requests()

	second, err := r.Resolve(context.Background(), dep)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, before, rs.requests(), "a resolved dependency makes no further requests")
}

func TestResolveConcurrentCallsCollapse(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)
	dep := Dependency{Coordinate: core, Repositories: rs.repos()}

	var wg sync.WaitGroup
	records := make([]*artifact.Record, 8)
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := r.Resolve(context.Background(), dep)
			assert.NoError(t, err)
			records[i] = rec
		}(i)
	}
	wg.Wait()
	for _, rec := range records {
		assert.Same(t, records[0], rec)
	}
}

func TestResolveSharedDownloadOutlivesCancelledCaller(t *testing.T) {
	files := defaultFiles()
	jar := "/repo/com/example/core/1.0/core-1.0.jar"
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var once sync.Once
	releaseAll := func() { once.Do(func() { close(release) }) }

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			return
		}
		if r.URL.Path == jar {
			select {
			case entered <- struct{}{}:
			default:
			}
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	defer releaseAll()

	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)
	dep := Dependency{Coordinate: core, Repositories: []artifact.Repository{{URL: srv.URL + "/repo"}}}
	key := recordKey{coordinate: core}.String()

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(first, dep)
		firstErr <- err
	}()
	<-entered

	type outcome struct {
		rec *artifact.Record
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		rec, err := r.Resolve(context.Background(), dep)
		second <- outcome{rec, err}
	}()
	require.Eventually(t, func() bool { return r.group.Waiting(key) == 2 }, 5*time.Second, time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	releaseAll()

	got := <-second
	require.NoError(t, got.err)
	assert.True(t, got.rec.Verified)
	data, err := os.ReadFile(got.rec.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "core jar", string(data))
}

func TestResolveAllIsolatesFailures(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)

	deps := []Dependency{
		{Coordinate: core, Repositories: rs.repos()},
		{Coordinate: missing, Repositories: rs.repos()},
		{Coordinate: util, Repositories: rs.repos()},
	}
	b := r.ResolveAll(context.Background(), deps)
	require.Len(t, b.Outcomes, 3)

	records := b.Records()
	require.Len(t, records, 2)
	assert.Equal(t, core, records[0].Coordinate)
	assert.Equal(t, util, records[1].Coordinate)

	failures := b.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, missing, failures[0].Dependency.Coordinate)
	assert.True(t, errors.Is(failures[0].Err, artifact.ErrNotFound))
	assert.Equal(t, map[artifact.Kind]int{artifact.KindNotFound: 1}, b.FailuresByKind())

	err := b.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing.String())

	deps[1].Optional = true
	assert.NoError(t, r.ResolveAll(context.Background(), deps).Err())
}

func TestResolveAllUsesBoundedPool(t *testing.T) {
	var inflight, peak int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)
	r.Workers = 2
	var deps []Dependency
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		deps = append(deps, Dependency{
			Coordinate:   artifact.Coordinate{Group: "com.example", Artifact: name, Version: "1.0"},
			Repositories: []artifact.Repository{{URL: srv.URL}},
		})
	}

	done := make(chan *Batch)
	go func() { done <- r.ResolveAll(context.Background(), deps) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&inflight) == 2 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	b := <-done

	assert.Len(t, b.Failures(), 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestResolveVerificationFailureRemovesArtifact(t *testing.T) {
	files := defaultFiles()
	files["/repo/com/example/core/1.0/core-1.0.jar.sha1"] = utilSHA1
	rs := newRepoServer(t, files)
	dir := t.TempDir()
	r := newResolver(t, dir, verifier.Strict, nil, nil)

	_, err := r.Resolve(context.Background(), Dependency{Coordinate: core, Repositories: rs.repos()})
	require.Error(t, err)
	assert.Equal(t, artifact.KindVerification, artifact.KindOf(err))
	assert.Contains(t, err.Error(), core.String())

	staged := filepath.Join(dir, "com", "example", "core", "1.0", "core-1.0.jar")
	_, statErr := os.Stat(staged)
	assert.True(t, os.IsNotExist(statErr), "an unverified artifact must not stay in the download directory")
}

func TestResolveWithoutChecksum(t *testing.T) {
	files := defaultFiles()
	delete(files, "/repo/com/example/core/1.0/core-1.0.jar.sha1")

	tests := []struct {
		name     string
		policy   verifier.Policy
		wantErr  bool
		verified bool
	}{
		{name: "strict rejects", policy: verifier.Strict, wantErr: true},
		{name: "passthrough accepts unverified", policy: verifier.Passthrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newRepoServer(t, files)
			r := newResolver(t, t.TempDir(), tt.policy, nil, nil)
			rec, err := r.Resolve(context.Background(), Dependency{Coordinate: core, Repositories: rs.repos()})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, artifact.ErrVerification))
				return
			}
			require.NoError(t, err)
			assert.False(t, rec.Verified)
			assert.Equal(t, coreSHA1, rec.Checksum)
		})
	}
}

func TestResolvePinnedSkipsRepositories(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	pinned := preresolution.Map{
		core: {URL: rs.URL + "/repo/com/example/core/1.0/core-1.0.jar", Checksum: coreSHA1, Algorithm: "sha1"},
		bom:  {Aggregator: true},
	}
	r := newResolver(t, t.TempDir(), verifier.Strict, pinned, nil)
	r.Locator = nil

	rec, err := r.Resolve(context.Background(), Dependency{Coordinate: core})
	require.NoError(t, err)
	assert.True(t, rec.Verified)
	assert.Equal(t, 1, rs.requests(), "only the pinned artifact is downloaded")

	rec, err = r.Resolve(context.Background(), Dependency{Coordinate: bom})
	require.NoError(t, err)
	assert.True(t, rec.Location.Aggregator)
	assert.False(t, rec.Loadable())

	_, err = r.Resolve(context.Background(), Dependency{Coordinate: util})
	assert.Equal(t, artifact.KindConfiguration, artifact.KindOf(err))
}

func TestResolveAggregator(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	dir := t.TempDir()
	r := newResolver(t, dir, verifier.Strict, nil, nil)

	rec, err := r.Resolve(context.Background(), Dependency{Coordinate: bom, Repositories: rs.repos()})
	require.NoError(t, err)
	assert.True(t, rec.Location.Aggregator)
	assert.Empty(t, rec.LocalPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "aggregators download nothing")
}

func TestResolveRelocates(t *testing.T) {
	rs := newRepoServer(t, defaultFiles())
	dir := t.TempDir()

	var rewrites int32
	rw := relocation.RewriterFunc(func(_ context.Context, input string, out io.Writer, _ relocation.Set) error {
		atomic.AddInt32(&rewrites, 1)
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		_, err = out.Write(append([]byte("relocated "), data...))
		return err
	})
	r := newResolver(t, dir, verifier.Strict, nil, relocation.New(dir, rw, nil))

	set := relocation.Set{{From: "com.example", To: "shaded.com.example"}}
	rec, err := r.Resolve(context.Background(), Dependency{Coordinate: core, Repositories: rs.repos(), Relocations: set})
	require.NoError(t, err)
	assert.True(t, rec.Relocated)
	assert.True(t, rec.Verified)
	data, err := os.ReadFile(rec.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "relocated core jar", string(data))

	plain, err := r.Resolve(context.Background(), Dependency{Coordinate: core, Repositories: rs.repos()})
	require.NoError(t, err)
	assert.False(t, plain.Relocated)
	assert.NotEqual(t, rec.LocalPath, plain.LocalPath)

	// A fresh resolver over the same directory reuses the ledger.
	again := newResolver(t, dir, verifier.Strict, nil, relocation.New(dir, rw, nil))
	rec2, err := again.Resolve(context.Background(), Dependency{Coordinate: core, Repositories: rs.repos(), Relocations: set})
	require.NoError(t, err)
	assert.Equal(t, rec.LocalPath, rec2.LocalPath)
	assert.Equal(t, int32(1), atomic.LoadInt32(&rewrites))
}

func TestResolveRejectsBadInput(t *testing.T) {
	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)

	_, err := r.Resolve(context.Background(), Dependency{Coordinate: artifact.Coordinate{Group: "g"}})
	assert.Equal(t, artifact.KindConfiguration, artifact.KindOf(err))

	_, err = r.Resolve(context.Background(), Dependency{Coordinate: core, Relocations: relocation.Set{{From: "", To: "x"}}})
	assert.Equal(t, artifact.KindConfiguration, artifact.KindOf(err))
}

func TestResolveFailuresAreRetried(t *testing.T) {
	files := defaultFiles()
	rs := newRepoServer(t, files)
	r := newResolver(t, t.TempDir(), verifier.Strict, nil, nil)
	dep := Dependency{Coordinate: core, Repositories: rs.repos()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, dep)
	require.Error(t, err)

	rec, err := r.Resolve(context.Background(), dep)
	require.NoError(t, err)
	assert.True(t, rec.Verified)
}
