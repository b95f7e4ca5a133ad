package module

import (
	"errors"
	"testing"
)

func TestParseUsePath(t *testing.T) {
	cases := []struct {
		input       string
		navigations int
		path        string
	}{
		{".foo", 0, "foo"},
		{"..foo", 1, "foo"},
		{"....bar", 3, "bar"},
		{".data.txt", 0, "data.txt"},
	}
	for _, c := range cases {
		parsed, err := ParseUsePath(c.input)
		if err != nil {
			t.Errorf("ParseUsePath(%q): %v", c.input, err)
			continue
		}
		if parsed.ParentNavigations != c.navigations || parsed.Path != c.path {
			t.Errorf("ParseUsePath(%q) = %+v, want %d navigations and %q",
				c.input, parsed, c.navigations, c.path)
		}
	}
}

func TestParseUsePathRejectsInvalidTargets(t *testing.T) {
	for _, input := range []string{"", "foo", ".foo/bar", ".foo bar"} {
		if _, err := ParseUsePath(input); !errors.Is(err, ErrInvalidUsePath) {
			t.Errorf("ParseUsePath(%q) = %v, want an invalid use path error", input, err)
		}
	}
}

func TestResolveRelativeTo(t *testing.T) {
	current := New("example", "a", "b")

	sibling, err := mustParse(t, ".c").ResolveRelativeTo(current)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !sibling.Equal(New("example", "a", "b", "c")) {
		t.Fatalf("resolved to %s", sibling)
	}

	parent, err := mustParse(t, "..c").ResolveRelativeTo(current)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !parent.Equal(New("example", "a", "c")) {
		t.Fatalf("resolved to %s", parent)
	}
}

func TestResolveRejectsEscapingThePackage(t *testing.T) {
	current := New("example", "main")
	_, err := mustParse(t, "...foo").ResolveRelativeTo(current)
	if !errors.Is(err, ErrTooManyParentNavigations) {
		t.Fatalf("expected too many parent navigations, got %v", err)
	}
}

func TestResolveMarksDottedTargetsAsAssets(t *testing.T) {
	current := New("example", "main")
	resolved, err := mustParse(t, ".logo.png").ResolveRelativeTo(current)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Kind != KindAsset {
		t.Fatalf("expected an asset module, got %v", resolved.Kind)
	}
}

func mustParse(t *testing.T, input string) UsePath {
	t.Helper()
	parsed, err := ParseUsePath(input)
	if err != nil {
		t.Fatalf("ParseUsePath(%q): %v", input, err)
	}
	return parsed
}
