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

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cli/output"
	"smol.sh/smol/pkg/relocation"
)

const outputFlag = "output"

// bindOutputFlag will add the output flag to the given command and bind the
// value to the given format pointer
func bindOutputFlag(cmd *cobra.Command, varRef *output.Format) {
	cmd.Flags().VarP(newOutputValue(output.Table, varRef), outputFlag, "o",
		fmt.Sprintf("prints the output in the specified format. Allowed values: %s", strings.Join(output.Formats(), ", ")))
}

type outputValue output.Format

func newOutputValue(defaultValue output.Format, p *output.Format) *outputValue {
	*p = defaultValue
	return (*outputValue)(p)
}

func (o *outputValue) String() string {
	// It is much cleaner looking (and technically less allocations) to just
	// convert to a string rather than type asserting to the underlying
	// output.Format
	return string(*o)
}

func (o *outputValue) Type() string {
	return "format"
}

func (o *outputValue) Set(s string) error {
	outfmt, err := output.ParseFormat(s)
	if err != nil {
		return err
	}
	*o = outputValue(outfmt)
	return nil
}

// ruleValue collects repeated --rule from=to flags.
type ruleValue struct {
	rules *relocation.Set
}

func (r ruleValue) String() string {
	if r.rules == nil {
		return "[]"
	}
	s := make([]string, 0, len(*r.rules))
	for _, rule := range *r.rules {
		s = append(s, rule.From+"="+rule.To)
	}
	return "[" + strings.Join(s, ",") + "]"
}

func (r ruleValue) Type() string {
	return "rule"
}

func (r ruleValue) Set(s string) error {
	rule, err := relocation.ParseRule(s)
	if err != nil {
		return err
	}
	*r.rules = append(*r.rules, rule)
	return nil
}

func addRuleFlag(f *pflag.FlagSet, rules *relocation.Set) {
	f.Var(ruleValue{rules}, "rule", "relocation rule in the form from.package=to.package (can specify multiple)")
}

// repositories converts --repo flags, keeping the order they were given in.
func repositories(urls []string) []artifact.Repository {
	repos := make([]artifact.Repository, 0, len(urls))
	for _, u := range urls {
		repos = append(repos, artifact.Repository{URL: u})
	}
	return repos
}
