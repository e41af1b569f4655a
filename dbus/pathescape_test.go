package dbus

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakePath(t *testing.T) {
	cases := []struct {
		root       string
		components []string
		want       string
	}{
		{"/com/example", []string{"foo.bar"}, "/com/example/foo_2ebar"},
		{"/x", []string{"a/b"}, "/x/a_2fb"},
		{"/x", []string{"abc"}, "/x/abc"},
	}

	for _, tc := range cases {
		got := MakePath(tc.root, tc.components...)
		assert.Equal(t, tc.want, got)
	}
}

func TestMakePath_ConformsToObjectPathGrammar(t *testing.T) {
	re := regexp.MustCompile(`^/[A-Za-z0-9_]+$`)

	inputs := []string{"foo.bar", "a/b", "abc", "!@#$%^&*()", "_", "already_escaped_2e"}
	for _, in := range inputs {
		got := MakePath("/x", in)
		assert.Regexp(t, re, got)
	}
}

func TestMakePath_UnderscoreIsNotRoundTrippable(t *testing.T) {
	got := MakePath("/x", "_")
	assert.Equal(t, "/x/_5f", got, "literal underscore must be escaped, not preserved")
}

func TestMakePath_MultipleComponents(t *testing.T) {
	got := MakePath("/com/example", "a b", "c.d")
	assert.Equal(t, "/com/example/a_20b/c_2ed", got)
}
