package wc

import "testing"

func TestPathJoin(t *testing.T) {
	if got := pathJoin("", "a"); got != "a" {
		t.Fatalf("pathJoin(\"\", \"a\") = %q, want %q", got, "a")
	}
	if got := pathJoin("a", "b"); got != "a/b" {
		t.Fatalf("pathJoin(\"a\", \"b\") = %q, want %q", got, "a/b")
	}
}

func TestPathJoinPanicsOnEmptyLeaf(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty leaf name")
		}
	}()
	pathJoin("a", "")
}

func TestPathDir(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"a", ""},
		{"a/b", "a"},
		{"a/b/c", "a/b"},
	}
	for _, c := range cases {
		if got := pathDir(c.path); got != c.want {
			t.Errorf("pathDir(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestPathBase(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{"a/b", "b"},
		{"a/b/c", "c"},
	}
	for _, c := range cases {
		if got := pathBase(c.path); got != c.want {
			t.Errorf("pathBase(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestPathIsOrUnder(t *testing.T) {
	if !pathIsOrUnder("a/b", "") {
		t.Error("every path should be under the empty root")
	}
	if !pathIsOrUnder("a", "a") {
		t.Error("a path should be or-under itself")
	}
	if !pathIsOrUnder("a/b", "a") {
		t.Error("a/b should be under a")
	}
	if pathIsOrUnder("ab", "a") {
		t.Error("ab should not be considered under a")
	}
}

func TestPathLess(t *testing.T) {
	cases := []struct {
		first, second string
		want          bool
	}{
		{"", "a", true},
		{"a", "", false},
		{"a", "b", true},
		{"b", "a", false},
		{"a", "a/b", true},
		{"a/b", "a/c", true},
	}
	for _, c := range cases {
		if got := pathLess(c.first, c.second); got != c.want {
			t.Errorf("pathLess(%q, %q) = %v, want %v", c.first, c.second, got, c.want)
		}
	}
}
