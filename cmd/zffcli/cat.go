package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenneth/zffcore/internal/container"
)

func newCatCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "cat <stem> <object-number>",
		Short: "Write a physical object's plaintext to stdout",
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

			const bufSize = 1 << 20
			buf := make([]byte, bufSize)
			var offset int64
			total := int64(obj.Physical.LengthOfData)
			for offset < total {
				want := buf
				if remaining := total - offset; remaining < bufSize {
					want = buf[:remaining]
				}
				n, err := obj.ReadAt(want, offset)
				if n > 0 {
					if _, werr := os.Stdout.Write(want[:n]); werr != nil {
						return werr
					}
					offset += int64(n)
				}
				if err != nil && err != io.EOF {
					return fmt.Errorf("read object %d at %d: %w", objectNumber, offset, err)
				}
				if err == io.EOF {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for an encrypted object's whole-header key wrap")
	return cmd
}

func parseObjectNumber(s string) (uint64, error) {
	var n uint64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid object number %q: %w", s, err)
	}
	return n, nil
}
