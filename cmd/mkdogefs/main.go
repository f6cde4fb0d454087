// Command mkdogefs formats a blank device image as a DogeFS filesystem
// (spec §6, §4.8).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m13253/dogefs/internal/mkfs"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "mkdogefs DEVFILE",
		Short:        "Format a blank device image as a DogeFS filesystem",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := mkfs.Options{
				BlockSize:     v.GetUint64("block-size"),
				JournalBlocks: v.GetUint64("journal-blocks"),
			}
			return mkfs.FormatWithOptions(args[0], cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Uint64("block-size", 0, "override the formatter's block size (default 4096)")
	cmd.Flags().Uint64("journal-blocks", 0, "override the journal region's length in blocks (default 256)")
	_ = v.BindPFlag("block-size", cmd.Flags().Lookup("block-size"))
	_ = v.BindPFlag("journal-blocks", cmd.Flags().Lookup("journal-blocks"))

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mkdogefs: %v\n", err)
		os.Exit(1)
	}
}
