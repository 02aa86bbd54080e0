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
	"io"

	"github.com/spf13/cobra"

	"smol.sh/smol/pkg/action"
	"smol.sh/smol/pkg/cli/require"
)

const verifyDesc = `
Verify that a local file matches a checksum.

The expected digest is read from a checksum file (--checksum-url) or given
literally (--checksum). Without either, the file is rejected under the strict
policy and accepted unverified under the passthrough policy. When a keyring
is configured, --signature-url names a detached signature to check as well.
`

func newVerifyCmd(root *rootOptions, out io.Writer) *cobra.Command {
	client := &action.Verify{}

	cmd := &cobra.Command{
		Use:   "verify PATH",
		Short: "verify that a file matches its checksum",
		Long:  verifyDesc,
		Args:  require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := root.newConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			v := action.NewVerify(cfg)
			v.ChecksumURL = client.ChecksumURL
			v.Checksum = client.Checksum
			v.Algorithm = client.Algorithm
			v.SignatureURL = client.SignatureURL
			res, err := v.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Verified: %t\n", res.Verified)
			fmt.Fprintf(out, "%s: %s\n", res.Algorithm, res.Checksum)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&client.ChecksumURL, "checksum-url", "", "URL of the published checksum file")
	f.StringVar(&client.Checksum, "checksum", "", "expected digest in hexadecimal")
	f.StringVar(&client.Algorithm, "algorithm", "", "digest algorithm (md5, sha1, sha256, sha512, sha3-256, blake2b-256, blake3)")
	f.StringVar(&client.SignatureURL, "signature-url", "", "URL of a detached OpenPGP signature")

	return cmd
}
