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

// Package downloader streams artifacts into the local download directory.
//
// Downloads are written to a temporary file next to their destination and
// renamed into place only once the transfer has completed, so the published
// staging path never holds a partial artifact. The downloader does not retry.
package downloader // import "smol.sh/smol/pkg/downloader"
