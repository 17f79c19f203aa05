//go:build !linux
// +build !linux

package framerfs

import (
	"context"
	"fmt"
)

// Mount is unavailable on non-Linux builds because framerfs depends on go-fuse.
func Mount(mountPoint string, store FrameStore) error {
	return fmt.Errorf("framerfs mount is only supported on linux builds")
}

// MountBackground is unavailable on non-Linux builds because framerfs
// depends on go-fuse.
func MountBackground(_ context.Context, mountPoint string, store FrameStore) (func(), error) {
	return nil, fmt.Errorf("framerfs mount is only supported on linux builds")
}
