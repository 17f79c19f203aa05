// Package uref implements the attribute-carrying frame record: a carrier
// pairing an inline attribute dictionary with an opaque block of payload
// bytes, with typed accessors for the clock and flow attributes FRAMER
// needs.
package uref

import (
	"encoding/binary"
	"fmt"

	"github.com/studoret/upipe/internal/dict"
)

// Uref pairs a dictionary (metadata) with a block (payload). Both are
// shared-owned: never mutated once a reference has been handed to more
// than one owner.
type Uref struct {
	Dict  *dict.Dict
	Block []byte
}

// New allocates an empty Uref backed by mgr, with no payload block.
func New(mgr *dict.Mgr) (*Uref, bool) {
	d, ok := mgr.Alloc(0)
	if !ok {
		return nil, false
	}
	return &Uref{Dict: d}, true
}

// Dup duplicates u's dictionary and shares u's block (block buffers are
// themselves shared-owned; duplicating a Uref never copies payload bytes).
func Dup(u *Uref) (*Uref, bool) {
	d, ok := dict.Dup(u.Dict)
	if !ok {
		return nil, false
	}
	return &Uref{Dict: d, Block: u.Block}, true
}

// Free releases u's dictionary back to its manager. u must not be used
// afterward.
func (u *Uref) Free() {
	u.Dict.Free()
	u.Dict = nil
	u.Block = nil
}

func shorthand(name string) (dict.Type, dict.Type) {
	code, base, ok := dict.Shorthand(name)
	if !ok {
		panic(fmt.Sprintf("uref: %q is not a known shorthand attribute", name))
	}
	return code, base
}

func (u *Uref) getUint64(name string) (uint64, bool) {
	code, _ := shorthand(name)
	v, ok := u.Dict.Get("", code)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

func (u *Uref) setUint64(name string, val uint64) bool {
	code, _ := shorthand(name)
	v, ok := u.Dict.Set("", code, 8)
	if !ok {
		return false
	}
	binary.BigEndian.PutUint64(v, val)
	return true
}

func (u *Uref) deleteAttr(name string) bool {
	code, _ := shorthand(name)
	return u.Dict.Delete("", code)
}

func (u *Uref) getString(name string) (string, bool) {
	code, _ := shorthand(name)
	v, ok := u.Dict.Get("", code)
	if !ok {
		return "", false
	}
	if n := len(v); n > 0 && v[n-1] == 0 {
		v = v[:n-1]
	}
	return string(v), true
}

func (u *Uref) setString(name, val string) bool {
	code, _ := shorthand(name)
	v, ok := u.Dict.Set("", code, len(val)+1)
	if !ok {
		return false
	}
	copy(v, val)
	v[len(val)] = 0
	return true
}

func (u *Uref) getVoid(name string) bool {
	code, _ := shorthand(name)
	_, ok := u.Dict.Get("", code)
	return ok
}

func (u *Uref) setVoid(name string) bool {
	code, _ := shorthand(name)
	_, ok := u.Dict.Set("", code, 0)
	return ok
}

func (u *Uref) getRational(name string) (dict.Rational, bool) {
	code, _ := shorthand(name)
	v, ok := u.Dict.Get("", code)
	if !ok {
		return dict.Rational{}, false
	}
	return dict.Rational{
		Num: int64(binary.BigEndian.Uint64(v[:8])),
		Den: int64(binary.BigEndian.Uint64(v[8:])),
	}, true
}

func (u *Uref) setRational(name string, r dict.Rational) bool {
	code, _ := shorthand(name)
	v, ok := u.Dict.Set("", code, 16)
	if !ok {
		return false
	}
	binary.BigEndian.PutUint64(v[:8], uint64(r.Num))
	binary.BigEndian.PutUint64(v[8:], uint64(r.Den))
	return true
}

// Flags (VOID presence attributes).
func (u *Uref) HasDiscontinuity() bool { return u.getVoid("f.disc") }
func (u *Uref) SetDiscontinuity() bool { return u.setVoid("f.disc") }
func (u *Uref) HasRandomAccess() bool  { return u.getVoid("f.random") }
func (u *Uref) SetRandomAccess() bool  { return u.setVoid("f.random") }
func (u *Uref) HasError() bool         { return u.getVoid("f.error") }
func (u *Uref) SetError() bool         { return u.setVoid("f.error") }
func (u *Uref) IsBlockStart() bool     { return u.getVoid("b.start") }
func (u *Uref) SetBlockStart() bool    { return u.setVoid("b.start") }
func (u *Uref) IsBlockEnd() bool       { return u.getVoid("b.end") }
func (u *Uref) SetBlockEnd() bool      { return u.setVoid("b.end") }
func (u *Uref) IsProgressive() bool    { return u.getVoid("p.progressive") }
func (u *Uref) SetProgressive() bool   { return u.setVoid("p.progressive") }
func (u *Uref) HasTopField() bool      { return u.getVoid("p.tf") }
func (u *Uref) SetTopField() bool      { return u.setVoid("p.tf") }
func (u *Uref) HasBottomField() bool   { return u.getVoid("p.bf") }
func (u *Uref) SetBottomField() bool   { return u.setVoid("p.bf") }
func (u *Uref) IsTopFieldFirst() bool  { return u.getVoid("p.tff") }
func (u *Uref) SetTopFieldFirst() bool { return u.setVoid("p.tff") }

// Flow definition strings.
func (u *Uref) FlowDef() (string, bool)          { return u.getString("f.def") }
func (u *Uref) SetFlowDef(v string) bool         { return u.setString("f.def", v) }
func (u *Uref) RawDef() (string, bool)           { return u.getString("f.rawdef") }
func (u *Uref) SetRawDef(v string) bool          { return u.setString("f.rawdef", v) }
func (u *Uref) Program() (string, bool)          { return u.getString("f.program") }
func (u *Uref) SetProgram(v string) bool         { return u.setString("f.program", v) }
func (u *Uref) Lang() (string, bool)             { return u.getString("f.lang") }
func (u *Uref) SetLang(v string) bool            { return u.setString("f.lang", v) }

// Clock attributes.
func (u *Uref) Systime() (uint64, bool)            { return u.getUint64("k.systime") }
func (u *Uref) SetSystime(v uint64) bool           { return u.setUint64("k.systime", v) }
func (u *Uref) SystimeRap() (uint64, bool)         { return u.getUint64("k.systime.rap") }
func (u *Uref) SetSystimeRap(v uint64) bool        { return u.setUint64("k.systime.rap", v) }
func (u *Uref) PTS() (uint64, bool)                { return u.getUint64("k.pts") }
func (u *Uref) SetPTS(v uint64) bool               { return u.setUint64("k.pts", v) }
func (u *Uref) DeletePTS() bool                    { return u.deleteAttr("k.pts") }
func (u *Uref) PTSOrig() (uint64, bool)            { return u.getUint64("k.pts.orig") }
func (u *Uref) SetPTSOrig(v uint64) bool           { return u.setUint64("k.pts.orig", v) }
func (u *Uref) DeletePTSOrig() bool                { return u.deleteAttr("k.pts.orig") }
func (u *Uref) PTSSys() (uint64, bool)             { return u.getUint64("k.pts.sys") }
func (u *Uref) SetPTSSys(v uint64) bool            { return u.setUint64("k.pts.sys", v) }
func (u *Uref) DeletePTSSys() bool                 { return u.deleteAttr("k.pts.sys") }
func (u *Uref) DTS() (uint64, bool)                { return u.getUint64("k.dts") }
func (u *Uref) SetDTS(v uint64) bool               { return u.setUint64("k.dts", v) }
func (u *Uref) DTSOrig() (uint64, bool)            { return u.getUint64("k.dts.orig") }
func (u *Uref) SetDTSOrig(v uint64) bool           { return u.setUint64("k.dts.orig", v) }
func (u *Uref) DTSSys() (uint64, bool)             { return u.getUint64("k.dts.sys") }
func (u *Uref) SetDTSSys(v uint64) bool            { return u.setUint64("k.dts.sys", v) }
func (u *Uref) VBVDelay() (uint64, bool)           { return u.getUint64("k.vbvdelay") }
func (u *Uref) SetVBVDelay(v uint64) bool          { return u.setUint64("k.vbvdelay", v) }
func (u *Uref) Duration() (uint64, bool)           { return u.getUint64("k.duration") }
func (u *Uref) SetDuration(v uint64) bool          { return u.setUint64("k.duration", v) }

// Picture geometry.
func (u *Uref) PictureNumber() (uint64, bool)    { return u.getUint64("p.num") }
func (u *Uref) SetPictureNumber(v uint64) bool   { return u.setUint64("p.num", v) }
func (u *Uref) HSize() (uint64, bool)            { return u.getUint64("p.hsize") }
func (u *Uref) SetHSize(v uint64) bool           { return u.setUint64("p.hsize", v) }
func (u *Uref) VSize() (uint64, bool)            { return u.getUint64("p.vsize") }
func (u *Uref) SetVSize(v uint64) bool           { return u.setUint64("p.vsize", v) }
func (u *Uref) HSizeVisible() (uint64, bool)     { return u.getUint64("p.hsizevis") }
func (u *Uref) SetHSizeVisible(v uint64) bool    { return u.setUint64("p.hsizevis", v) }
func (u *Uref) VSizeVisible() (uint64, bool)     { return u.getUint64("p.vsizevis") }
func (u *Uref) SetVSizeVisible(v uint64) bool    { return u.setUint64("p.vsizevis", v) }
func (u *Uref) HPosition() (uint64, bool)        { return u.getUint64("p.hposition") }
func (u *Uref) SetHPosition(v uint64) bool       { return u.setUint64("p.hposition", v) }
func (u *Uref) VPosition() (uint64, bool)        { return u.getUint64("p.vposition") }
func (u *Uref) SetVPosition(v uint64) bool       { return u.setUint64("p.vposition", v) }
func (u *Uref) Aspect() (dict.Rational, bool)    { return u.getRational("p.aspect") }
func (u *Uref) SetAspect(r dict.Rational) bool   { return u.setRational("p.aspect", r) }
