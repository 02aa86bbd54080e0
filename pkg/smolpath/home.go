// Copyright The Smol Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package smolpath builds the paths of smol's configuration and caches.
package smolpath // import "smol.sh/smol/pkg/smolpath"

const lp = lazypath("smol")

// ConfigPath returns the path where smol stores configuration.
func ConfigPath(elem ...string) string {
	return lp.configPath(elem...)
}

// CachePath returns the path where smol stores cached objects.
func CachePath(elem ...string) string {
	return lp.cachePath(elem...)
}

// DownloadDir returns the default download directory of an application.
// Artifacts of different applications never share a directory.
func DownloadDir(application string) string {
	if application == "" {
		application = "default"
	}
	return CachePath("downloads", application)
}

// Keyring returns the default OpenPGP keyring location.
func Keyring() string {
	return ConfigPath("pubring.gpg")
}
