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

package action

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Loader makes a provisioned file available to the host runtime.
type Loader interface {
	MakeLoadable(path string) error
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) error

// MakeLoadable calls f.
func (f LoaderFunc) MakeLoadable(path string) error {
	return f(path)
}

// Classpath is a Loader that collects paths in the order they are loaded.
type Classpath struct {
	mu    sync.Mutex
	paths []string
}

// MakeLoadable appends path to the classpath.
func (c *Classpath) MakeLoadable(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "cannot load")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
	return nil
}

// Paths returns the loaded paths.
func (c *Classpath) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

// String joins the paths with the platform list separator.
func (c *Classpath) String() string {
	return strings.Join(c.Paths(), string(os.PathListSeparator))
}
