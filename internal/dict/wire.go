package dict

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Marshal returns a copy of d's on-buffer wire bytes, suitable for handing
// to another process or storing for later replay.
func Marshal(d *Dict) []byte {
	out := make([]byte, d.size)
	copy(out, d.buf[:d.size])
	return out
}

// MarshalCompressed brotli-compresses d's wire bytes, for cheaper
// transmission or archival (e.g. alongside a frame's index entry).
func MarshalCompressed(d *Dict) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(d.buf[:d.size]); err != nil {
		return nil, fmt.Errorf("dict: marshal compressed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("dict: marshal compressed: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal allocates a dictionary from mgr sized to fit wire and copies it
// in, validating that the bytes decode into a well-formed record sequence
// terminated by End. Unlike the internal invariants enforced elsewhere in
// this package (which are programmer errors when violated), wire is
// untrusted external input, so a malformed buffer is reported as an error
// rather than a panic.
func Unmarshal(mgr *Mgr, wire []byte) (*Dict, error) {
	if err := validate(wire); err != nil {
		return nil, err
	}
	d, ok := mgr.Alloc(len(wire))
	if !ok {
		return nil, fmt.Errorf("dict: unmarshal: allocation failed")
	}
	copy(d.buf, wire)
	d.size = len(wire)
	return d, nil
}

// UnmarshalCompressed reverses MarshalCompressed.
func UnmarshalCompressed(mgr *Mgr, compressed []byte) (*Dict, error) {
	r := brotli.NewReader(bytes.NewReader(compressed))
	wire, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dict: unmarshal compressed: %w", err)
	}
	return Unmarshal(mgr, wire)
}

// validate walks wire as a record sequence and confirms it is well formed
// and End-terminated, without allocating anything.
func validate(wire []byte) error {
	if len(wire) == 0 || wire[len(wire)-1] != byte(TypeEnd) {
		return fmt.Errorf("dict: unmarshal: missing trailing End byte")
	}
	off := 0
	for off < len(wire)-1 {
		rec, ok := parseRecord(wire, off)
		if !ok {
			return fmt.Errorf("dict: unmarshal: corrupt record at offset %d", off)
		}
		off += rec.span
	}
	if off != len(wire)-1 {
		return fmt.Errorf("dict: unmarshal: trailing garbage before End")
	}
	return nil
}
