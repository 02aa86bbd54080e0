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
Package cli describes the operating environment for the smol CLI.

Settings are read once from the environment and may be overridden by flags.
The result is handed to action.Configuration, which freezes it.
*/
package cli // import "smol.sh/smol/pkg/cli"

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"smol.sh/smol/pkg/getter"
	"smol.sh/smol/pkg/resolver"
	"smol.sh/smol/pkg/smolpath"
)

// DefaultVerifyPolicy is used when SMOL_VERIFY is not set.
const DefaultVerifyPolicy = "strict"

// EnvSettings describes all of the environment settings.
type EnvSettings struct {
	// Debug indicates whether or not smol is running in Debug mode.
	Debug bool
	// Application namespaces the default download directory.
	Application string
	// DownloadDir is where artifacts, the checksum cache and the ledger live.
	DownloadDir string
	// Timeout bounds every network request.
	Timeout time.Duration
	// Workers is the number of dependencies resolved concurrently.
	Workers int
	// Verify is the verification policy, "strict" or "passthrough".
	Verify string
	// PreResolution is the path to a pinned resolution manifest.
	PreResolution string
	// Keyring is the path to an OpenPGP public keyring.
	Keyring string
	// RequireSignature fails artifacts without a detached signature.
	RequireSignature bool
	// CAFile adds trusted certificates for HTTPS repositories.
	CAFile string
	// CertFile and KeyFile are a client certificate for HTTPS repositories.
	CertFile string
	KeyFile  string
	// InsecureSkipTLSVerify disables server certificate checks.
	InsecureSkipTLSVerify bool
}

func New() *EnvSettings {
	env := &EnvSettings{
		Application:   envOr("SMOL_APPLICATION", "default"),
		Verify:        envOr("SMOL_VERIFY", DefaultVerifyPolicy),
		PreResolution: os.Getenv("SMOL_PRE_RESOLUTION"),
		Keyring:       envOr("SMOL_KEYRING", defaultKeyring()),
		Timeout:       envDurationOr("SMOL_TIMEOUT", getter.DefaultHTTPTimeout*time.Second),
		Workers:       envIntOr("SMOL_WORKERS", resolver.DefaultWorkers),
		CAFile:        os.Getenv("SMOL_CA_FILE"),
		CertFile:      os.Getenv("SMOL_CERT_FILE"),
		KeyFile:       os.Getenv("SMOL_KEY_FILE"),
	}
	env.DownloadDir = envOr("SMOL_DOWNLOAD_DIR", smolpath.DownloadDir(env.Application))
	env.Debug, _ = strconv.ParseBool(os.Getenv("SMOL_DEBUG"))
	env.RequireSignature, _ = strconv.ParseBool(os.Getenv("SMOL_REQUIRE_SIGNATURE"))
	env.InsecureSkipTLSVerify, _ = strconv.ParseBool(os.Getenv("SMOL_INSECURE_SKIP_TLS_VERIFY"))
	return env
}

// AddFlags binds flags to the given flagset.
func (s *EnvSettings) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&s.Debug, "debug", s.Debug, "enable verbose output")
	fs.StringVar(&s.DownloadDir, "download-dir", s.DownloadDir, "directory holding downloaded and relocated artifacts")
	fs.DurationVar(&s.Timeout, "timeout", s.Timeout, "time to wait for any individual network request")
	fs.IntVar(&s.Workers, "workers", s.Workers, "number of dependencies resolved concurrently")
	fs.StringVar(&s.Verify, "verify", s.Verify, `verification policy: "strict" rejects artifacts without a checksum, "passthrough" accepts them unverified`)
	fs.StringVar(&s.PreResolution, "pre-resolution", s.PreResolution, "path to a manifest of pinned artifact locations")
	fs.StringVar(&s.Keyring, "keyring", s.Keyring, "OpenPGP keyring used to check artifact signatures")
	fs.BoolVar(&s.RequireSignature, "require-signature", s.RequireSignature, "reject artifacts without a signature when a keyring is set")
	fs.StringVar(&s.CAFile, "ca-file", s.CAFile, "verify certificates of HTTPS-enabled repositories using this CA bundle")
	fs.StringVar(&s.CertFile, "cert-file", s.CertFile, "identify to HTTPS-enabled repositories using this SSL certificate file")
	fs.StringVar(&s.KeyFile, "key-file", s.KeyFile, "identify to HTTPS-enabled repositories using this SSL key file")
	fs.BoolVar(&s.InsecureSkipTLSVerify, "insecure-skip-tls-verify", s.InsecureSkipTLSVerify, "skip TLS certificate checks for repositories")
}

// SetApplication switches the application. The download directory follows
// unless it was chosen explicitly.
func (s *EnvSettings) SetApplication(name string) {
	if s.DownloadDir == smolpath.DownloadDir(s.Application) {
		s.DownloadDir = smolpath.DownloadDir(name)
	}
	s.Application = name
}

// defaultKeyring is the keyring in the smol config directory, if one exists.
func defaultKeyring() string {
	if _, err := os.Stat(smolpath.Keyring()); err == nil {
		return smolpath.Keyring()
	}
	return ""
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envIntOr(name string, def int) int {
	if name == "" {
		return def
	}
	envVal := envOr(name, strconv.Itoa(def))
	ret, err := strconv.Atoi(envVal)
	if err != nil {
		return def
	}
	return ret
}

func envDurationOr(name string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// EnvVars returns the settings in their environment variable form.
func (s *EnvSettings) EnvVars() map[string]string {
	return map[string]string{
		"SMOL_BIN":               os.Args[0],
		"SMOL_CACHE_HOME":        smolpath.CachePath(""),
		"SMOL_CONFIG_HOME":       smolpath.ConfigPath(""),
		"SMOL_DEBUG":             fmt.Sprint(s.Debug),
		"SMOL_APPLICATION":       s.Application,
		"SMOL_DOWNLOAD_DIR":      s.DownloadDir,
		"SMOL_TIMEOUT":           s.Timeout.String(),
		"SMOL_WORKERS":           strconv.Itoa(s.Workers),
		"SMOL_VERIFY":            s.Verify,
		"SMOL_PRE_RESOLUTION":    s.PreResolution,
		"SMOL_KEYRING":           s.Keyring,
		"SMOL_REQUIRE_SIGNATURE": fmt.Sprint(s.RequireSignature),
		"SMOL_CA_FILE":           s.CAFile,
		"SMOL_CERT_FILE":         s.CertFile,
		"SMOL_KEY_FILE":          s.KeyFile,

		"SMOL_INSECURE_SKIP_TLS_VERIFY": fmt.Sprint(s.InsecureSkipTLSVerify),
	}
}
