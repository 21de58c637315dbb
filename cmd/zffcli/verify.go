package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kenneth/zffcore/internal/container"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/zcrypto"
)

func newVerifyCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "verify <stem> <object-number>",
		Short: "Recompute a physical object's digests and compare against its footer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stem := args[0]
			objectNumber, err := parseObjectNumber(args[1])
			if err != nil {
				return err
			}

			c, err := container.Open(".", stem)
			if err != nil {
				return fmt.Errorf("open container: %w", err)
			}
			defer c.Close()

			obj, err := c.OpenObject(objectNumber, password)
			if err != nil {
				return fmt.Errorf("open object %d: %w", objectNumber, err)
			}
			if obj.Physical == nil {
				return fmt.Errorf("object %d is not a physical object", objectNumber)
			}

			blake3Hasher := zcrypto.NewBlake3Hasher()
			sha256Hasher := sha256.New()

			const bufSize = 1 << 20
			buf := make([]byte, bufSize)
			var offset int64
			total := int64(obj.Physical.LengthOfData)
			for offset < total {
				want := buf
				if remaining := total - offset; remaining < bufSize {
					want = buf[:remaining]
				}
				n, rerr := obj.ReadAt(want, offset)
				if n > 0 {
					blake3Hasher.Write(want[:n])
					sha256Hasher.Write(want[:n])
					offset += int64(n)
				}
				if rerr != nil && rerr != io.EOF {
					return fmt.Errorf("read object %d at %d: %w", objectNumber, offset, rerr)
				}
				if rerr == io.EOF {
					break
				}
			}

			ok := true
			if hv, found := obj.Physical.HashHeader.ByType(object.HashTypeBlake3); found {
				if !bytes.Equal(hv.Digest, blake3Hasher.Sum(nil)) {
					ok = false
					fmt.Fprintln(cmd.OutOrStdout(), "blake3: MISMATCH")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "blake3: OK")
				}
			}
			if hv, found := obj.Physical.HashHeader.ByType(object.HashTypeSHA256); found {
				if !bytes.Equal(hv.Digest, sha256Hasher.Sum(nil)) {
					ok = false
					fmt.Fprintln(cmd.OutOrStdout(), "sha256: MISMATCH")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "sha256: OK")
				}
			}
			if !ok {
				return fmt.Errorf("object %d failed verification", objectNumber)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for an encrypted object's whole-header key wrap")
	return cmd
}
