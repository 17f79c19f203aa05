package dict

// shortEntry is one row of the static shorthand registry: shorthand code
// ShorthandBase+1+i names entry i. Ordering here is the wire contract --
// any sender/receiver pair must agree on this exact table.
type shortEntry struct {
	name string
	base Type
}

// Shorts is the canonical shorthand table. Do not reorder existing entries;
// append new ones only, or every previously-serialized dictionary on the
// wire becomes misreadable.
var Shorts = []shortEntry{
	{"f.disc", TypeVoid},
	{"f.random", TypeVoid},
	{"f.error", TypeVoid},

	{"f.def", TypeString},
	{"f.rawdef", TypeString},
	{"f.program", TypeString},
	{"f.lang", TypeString},

	{"k.systime", TypeUnsigned},
	{"k.systime.rap", TypeUnsigned},
	{"k.pts", TypeUnsigned},
	{"k.pts.orig", TypeUnsigned},
	{"k.pts.sys", TypeUnsigned},
	{"k.dts", TypeUnsigned},
	{"k.dts.orig", TypeUnsigned},
	{"k.dts.sys", TypeUnsigned},
	{"k.vbvdelay", TypeUnsigned},
	{"k.duration", TypeUnsigned},

	{"b.start", TypeVoid},
	{"b.end", TypeVoid},

	{"p.num", TypeUnsigned},
	{"p.hsize", TypeUnsigned},
	{"p.vsize", TypeUnsigned},
	{"p.hsizevis", TypeUnsigned},
	{"p.vsizevis", TypeUnsigned},
	{"p.hposition", TypeUnsigned},
	{"p.vposition", TypeUnsigned},

	{"p.aspect", TypeRational},

	{"p.progressive", TypeVoid},
	{"p.tf", TypeVoid},
	{"p.bf", TypeVoid},
	{"p.tff", TypeVoid},
}

var shortsByName = func() map[string]Type {
	m := make(map[string]Type, len(Shorts))
	for i, e := range Shorts {
		m[e.name] = ShorthandBase + 1 + Type(i)
	}
	return m
}()

// Name looks up shorthand code in Shorts, returning the attribute's
// canonical name and base type. It rejects code <= ShorthandBase and any
// code whose index falls outside the table uniformly -- there is no
// off-by-one special case between the lower and upper bound.
func Name(code Type) (name string, base Type, ok bool) {
	if code <= ShorthandBase {
		return "", 0, false
	}
	idx := int(code) - int(ShorthandBase) - 1
	if idx < 0 || idx >= len(Shorts) {
		return "", 0, false
	}
	e := Shorts[idx]
	return e.name, e.base, true
}

// Shorthand looks up the shorthand code and base type for a well-known
// attribute name, e.g. "k.pts". It returns ok=false for names not present
// in Shorts (those must be stored long-form instead).
func Shorthand(name string) (code Type, base Type, ok bool) {
	code, ok = shortsByName[name]
	if !ok {
		return 0, 0, false
	}
	_, base, _ = Name(code)
	return code, base, true
}
