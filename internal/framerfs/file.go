//go:build linux
// +build linux

package framerfs

import (
	"context"
	"log"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// frameFileNode is a single emitted frame's read-only file.
type frameFileNode struct {
	fs.Inode
	store         FrameStore
	flow          string
	pictureNumber int64
	size          int64
}

var _ fs.NodeGetattrer = (*frameFileNode)(nil)
var _ fs.NodeReader = (*frameFileNode)(nil)
var _ fs.NodeOpener = (*frameFileNode)(nil)

// Getattr reports the frame's byte length as listed by the FrameStore,
// without fetching its bytes.
func (n *frameFileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Size = uint64(n.size)
	out.Mode = fuse.S_IFREG | 0444
	out.SetTimes(nil, &time.Time{}, nil)
	return 0
}

func (n *frameFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *frameFileNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= n.size {
		return fuse.ReadResultData(dest[:0]), 0
	}
	end := off + int64(len(dest))
	if end > n.size {
		end = n.size
	}
	got, err := n.store.ReadFrame(n.flow, n.pictureNumber, off, dest[:end-off])
	if err != nil {
		log.Printf("framerfs: read flow=%q picture=%d off=%d err=%v", n.flow, n.pictureNumber, off, err)
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:got]), 0
}
