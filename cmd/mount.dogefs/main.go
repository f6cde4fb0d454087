// Command mount.dogefs services a DogeFS mount until signalled (spec §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/m13253/dogefs/internal/filesystem"
	"github.com/m13253/dogefs/internal/fuseadapter"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mount.dogefs DEVFILE MOUNTPOINT",
		Short:        "Mount a DogeFS device image at a directory",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func serve(ctx context.Context, devFile, mountpoint string) error {
	fs, err := filesystem.Mount(devFile)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	server := fuseutil.NewFileSystemServer(&fuseadapter.FS{Filesystem: fs})
	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName: "dogefs",
		Options: map[string]string{
			"allow_other": "",
		},
		EnableNoOpendirSupport: true,
	})
	if err != nil {
		return fmt.Errorf("fuse.Mount: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mfs.Join(ctx)
	})
	g.Go(func() error {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-c:
			return fuse.Unmount(mountpoint)
		case <-ctx.Done():
			return nil
		}
	})
	return g.Wait()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mount.dogefs: %v\n", err)
		os.Exit(1)
	}
}
