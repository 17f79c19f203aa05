package framerfs

import "testing"

func TestFileName(t *testing.T) {
	cases := []struct {
		picture int64
		want    string
	}{
		{0, "000000000.pic"},
		{42, "000000042.pic"},
		{123456789, "123456789.pic"},
	}
	for _, c := range cases {
		if got := FileName(c.picture); got != c.want {
			t.Errorf("FileName(%d) = %q, want %q", c.picture, got, c.want)
		}
	}
}
