//go:build linux
// +build linux

package framerfs

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// flowDirNode lists every emitted frame for one input flow definition.
type flowDirNode struct {
	fs.Inode
	store FrameStore
	flow  string
}

var _ fs.NodeLookuper = (*flowDirNode)(nil)
var _ fs.NodeReaddirer = (*flowDirNode)(nil)

func (d *flowDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	frames, ok := d.store.Frames(d.flow)
	if !ok {
		return fs.NewListDirStream(nil), 0
	}
	entries := make([]fuse.DirEntry, 0, len(frames))
	for _, f := range frames {
		entries = append(entries, fuse.DirEntry{
			Name: FileName(f.PictureNumber),
			Mode: fuse.S_IFREG,
			Ino:  inoFromString("frame:" + d.flow + ":" + FileName(f.PictureNumber)),
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (d *flowDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	frames, ok := d.store.Frames(d.flow)
	if !ok {
		return nil, syscall.ENOENT
	}
	for _, f := range frames {
		if FileName(f.PictureNumber) != name {
			continue
		}
		node := &frameFileNode{store: d.store, flow: d.flow, pictureNumber: f.PictureNumber, size: f.ByteLength}
		ch := d.NewInode(ctx, node, fs.StableAttr{
			Mode: fuse.S_IFREG,
			Ino:  inoFromString("frame:" + d.flow + ":" + name),
		})
		out.Mode = fuse.S_IFREG | 0444
		out.SetEntryTimeout(1 * time.Second)
		out.SetAttrTimeout(1 * time.Second)
		return ch, 0
	}
	return nil, syscall.ENOENT
}
