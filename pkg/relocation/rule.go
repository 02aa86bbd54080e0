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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Rule moves every name under the package From to the package To.
//
// Packages are written in dotted form ("com.google.gson"). Includes and
// Excludes are glob patterns over dotted class names, where '*' stays within
// one package segment and '**' crosses segments. An empty Includes matches
// everything under From.
type Rule struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// ParseRule parses "from=to".
func ParseRule(s string) (Rule, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok {
		return Rule{}, errors.Errorf("relocation rule %q is not in the form from=to", s)
	}
	r := Rule{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	return r, r.Validate()
}

// Validate checks that the rule names two distinct, well formed packages.
func (r Rule) Validate() error {
	for _, p := range []string{r.From, r.To} {
		if p == "" {
			return errors.New("relocation rule needs both a source and a target package")
		}
		for _, seg := range strings.Split(p, ".") {
			if seg == "" || strings.IndexFunc(seg, func(c rune) bool { return !isNameRune(c) }) >= 0 {
				return errors.Errorf("%q is not a valid package name", p)
			}
		}
	}
	if r.From == r.To {
		return errors.Errorf("relocation of %q onto itself", r.From)
	}
	return nil
}

// Set is an ordered list of rules. Earlier rules take precedence.
type Set []Rule

// ID identifies the set by its content. Sets with the same rules in the same
// order have the same ID.
func (s Set) ID() string {
	h := sha256.New()
	field := func(v string) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(v)))
		h.Write(n[:])
		h.Write([]byte(v))
	}
	for _, r := range s {
		field(r.From)
		field(r.To)
		field(strings.Join(r.Includes, "\x00"))
		field(strings.Join(r.Excludes, "\x00"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks every rule and its patterns.
func (s Set) Validate() error {
	_, err := s.compile()
	return err
}

type compiledRule struct {
	from, to         string
	fromPath, toPath string
	includes         []glob.Glob
	excludes         []glob.Glob
}

// remapper rewrites names in dotted, internal (slash) and descriptor form.
type remapper struct {
	rules []compiledRule
}

func (s Set) compile() (*remapper, error) {
	m := &remapper{}
	for i, r := range s {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
		cr := compiledRule{
			from:     r.From,
			to:       r.To,
			fromPath: strings.ReplaceAll(r.From, ".", "/"),
			toPath:   strings.ReplaceAll(r.To, ".", "/"),
		}
		for _, p := range r.Includes {
			g, err := glob.Compile(p, '.')
			if err != nil {
				return nil, errors.Wrapf(err, "rule %d: bad include pattern %q", i, p)
			}
			cr.includes = append(cr.includes, g)
		}
		for _, p := range r.Excludes {
			g, err := glob.Compile(p, '.')
			if err != nil {
				return nil, errors.Wrapf(err, "rule %d: bad exclude pattern %q", i, p)
			}
			cr.excludes = append(cr.excludes, g)
		}
		m.rules = append(m.rules, cr)
	}
	return m, nil
}

func (r *compiledRule) accepts(className string) bool {
	className = strings.TrimSuffix(className, ".class")
	if len(r.includes) > 0 {
		ok := false
		for _, g := range r.includes {
			if g.Match(className) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, g := range r.excludes {
		if g.Match(className) {
			return false
		}
	}
	return true
}

func isNameRune(c rune) bool {
	return c == '_' || c == '$' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNameByte(c byte) bool {
	return c < 0x80 && isNameRune(rune(c))
}

// startsName reports whether a name may begin at s[i]. A name begins after
// any byte that cannot be part of a qualified name, or after the 'L' of a
// type descriptor such as "(Lcom/example/Foo;)V". The 'L' may follow
// primitive and array descriptors, as in "(I[BLcom/example/Foo;)V".
func startsName(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	if !isNameByte(prev) && prev != '.' && prev != '/' {
		return true
	}
	if prev != 'L' {
		return false
	}
	j := i - 2
	for j >= 0 && (isPrimitiveDescriptor(s[j]) || s[j] == '[') {
		j--
	}
	return j < 0 || !isNameByte(s[j]) && s[j] != '.' && s[j] != '/'
}

func isPrimitiveDescriptor(c byte) bool {
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return true
	}
	return false
}

// nameEnd returns the end of the qualified name starting at i.
func nameEnd(s string, i int) int {
	for i < len(s) && (isNameByte(s[i]) || s[i] == '.' || s[i] == '/') {
		i++
	}
	return i
}

// Map rewrites every name in s that falls under one of the rules. It
// reports whether anything changed.
func (m *remapper) Map(s string) (string, bool) {
	if len(m.rules) == 0 {
		return s, false
	}
	var b strings.Builder
	changed := false
	last := 0
	for i := 0; i < len(s); i++ {
		if !startsName(s, i) {
			continue
		}
		if n, repl, ok := m.matchAt(s, i); ok {
			b.WriteString(s[last:i])
			b.WriteString(repl)
			last = i + n
			i += n - 1
			changed = true
		}
	}
	if !changed {
		return s, false
	}
	b.WriteString(s[last:])
	return b.String(), true
}

// matchAt tries each rule at s[i] and returns the length of the replaced
// prefix and its replacement.
func (m *remapper) matchAt(s string, i int) (int, string, bool) {
	rest := s[i:]
	for k := range m.rules {
		r := &m.rules[k]
		for _, form := range [...]struct {
			from, to string
			sep      byte
		}{{r.fromPath, r.toPath, '/'}, {r.from, r.to, '.'}} {
			if !strings.HasPrefix(rest, form.from) {
				continue
			}
			n := len(form.from)
			if n < len(rest) && rest[n] != form.sep && (isNameByte(rest[n]) || rest[n] == '.' || rest[n] == '/') {
				continue
			}
			name := rest[:nameEnd(rest, 0)]
			if !r.accepts(strings.ReplaceAll(name, "/", ".")) {
				continue
			}
			return n, form.to, true
		}
	}
	return 0, "", false
}

// MapClassName maps a single dotted or internal class name, as found in
// service files and entry names.
func (m *remapper) MapClassName(name string) (string, bool) {
	if n, repl, ok := m.matchAt(name, 0); ok {
		return repl + name[n:], true
	}
	return name, false
}
