//go:build linux
// +build linux

package framerfs

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Mount mounts framerfs at mountPoint over store. It blocks until the
// process receives SIGINT/SIGTERM.
func Mount(mountPoint string, store FrameStore) error {
	root := &Root{Store: store}
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:    false,
			FsName:   "framerfs",
			ReadOnly: true,
		},
	}
	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		log.Println("framerfs: unmounting")
		_ = server.Unmount()
	}()

	server.Wait()
	stop()
	return nil
}

// MountBackground mounts framerfs without blocking; call the returned func
// to unmount, or cancel ctx.
func MountBackground(ctx context.Context, mountPoint string, store FrameStore) (unmount func(), err error) {
	root := &Root{Store: store}
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:    false,
			FsName:   "framerfs",
			ReadOnly: true,
		},
	}
	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		_ = server.Unmount()
	}()

	return func() { _ = server.Unmount() }, nil
}
