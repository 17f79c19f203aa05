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

// Root is the FUSE root: one subdirectory per known flow definition.
type Root struct {
	fs.Inode
	Store FrameStore
}

var _ fs.NodeLookuper = (*Root)(nil)
var _ fs.NodeReaddirer = (*Root)(nil)

func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	flows := r.Store.Flows()
	entries := make([]fuse.DirEntry, 0, len(flows))
	for _, flow := range flows {
		entries = append(entries, fuse.DirEntry{
			Name: flow,
			Mode: fuse.S_IFDIR,
			Ino:  inoFromString("flow:" + flow),
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if _, ok := r.Store.Frames(name); !ok {
		return nil, syscall.ENOENT
	}
	node := &flowDirNode{store: r.Store, flow: name}
	ch := r.NewInode(ctx, node, fs.StableAttr{
		Mode: fuse.S_IFDIR,
		Ino:  inoFromString("flow:" + name),
	})
	out.Mode = fuse.S_IFDIR | 0755
	out.SetEntryTimeout(1 * time.Second)
	out.SetAttrTimeout(1 * time.Second)
	return ch, 0
}
