package dict

import "testing"

func TestName_BoundsRejectUniformly(t *testing.T) {
	cases := []Type{
		0,
		ShorthandBase,
		ShorthandBase + Type(len(Shorts)) + 1,
		255,
	}
	for _, code := range cases {
		if _, _, ok := Name(code); ok {
			t.Errorf("Name(%d) = ok, want rejected", code)
		}
	}
}

func TestName_RoundTripsWithShorthand(t *testing.T) {
	for _, e := range Shorts {
		code, base, ok := Shorthand(e.name)
		if !ok {
			t.Fatalf("Shorthand(%q) not found", e.name)
		}
		name, gotBase, ok := Name(code)
		if !ok {
			t.Fatalf("Name(%d) for %q not found", code, e.name)
		}
		if name != e.name || gotBase != e.base || base != e.base {
			t.Errorf("round trip mismatch for %q: name=%q base=%v", e.name, name, gotBase)
		}
	}
}

func TestShorthand_UnknownName(t *testing.T) {
	if _, _, ok := Shorthand("no.such.attribute"); ok {
		t.Fatal("Shorthand found an entry for an unknown name")
	}
}
