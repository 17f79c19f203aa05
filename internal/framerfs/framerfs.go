// Package framerfs exposes emitted frames through a read-only FUSE
// filesystem for debugging: one directory per input flow definition, one
// file per emitted frame, named by its zero-padded picture number. Bytes
// are fetched from a FrameStore on demand; Getattr never touches frame
// bytes, only Read does.
package framerfs

import "fmt"

// FrameInfo is the metadata framerfs needs about one indexed frame, without
// its bytes.
type FrameInfo struct {
	PictureNumber int64
	ByteLength    int64
}

// FrameStore is the read side framerfs needs: which flows are known, which
// frames belong to a flow, and how to fetch one frame's bytes.
type FrameStore interface {
	// Flows returns the set of flow definition strings that currently have
	// indexed frames, in no particular order.
	Flows() []string

	// Frames returns every known frame for flow, ok is false if flow is
	// unknown.
	Frames(flow string) (frames []FrameInfo, ok bool)

	// ReadFrame copies up to len(dest) bytes of the frame's data starting at
	// off into dest and returns how many bytes were copied.
	ReadFrame(flow string, pictureNumber int64, off int64, dest []byte) (int, error)
}

// FileName renders a frame's file name inside its flow's directory.
func FileName(pictureNumber int64) string {
	return fmt.Sprintf("%09d.pic", pictureNumber)
}
