package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeEmptyLineYieldsSingleEmptyToken(t *testing.T) {
	assert.Equal(t, []string{""}, Tokenize(""))
}

func TestTokenizeTokenCountIsSpacesPlusOne(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"run", []string{"run"}},
		{"run /bin/echo hi", []string{"run", "/bin/echo", "hi"}},
		{"a  b", []string{"a", "", "b"}},
		{" run", []string{"", "run"}},
		{"run ", []string{"run", ""}},
		{"  ", []string{"", "", ""}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Tokenize(c.line), "line %q", c.line)
	}
}

func TestParseClassifiesVerbs(t *testing.T) {
	assert.Equal(t, Command{Verb: Run, Args: []string{"/bin/echo", "hi"}}, Parse("run /bin/echo hi"))
	assert.Equal(t, Command{Verb: Out, Args: []string{"0"}}, Parse("out 0"))
	assert.Equal(t, Command{Verb: Quit, Args: []string{}}, Parse("quit"))
	assert.Equal(t, Command{Verb: Empty}, Parse(""))
}

func TestParseUnknownVerbIsPassedThrough(t *testing.T) {
	got := Parse("frobnicate 1 2")
	assert.Equal(t, Verb("frobnicate"), got.Verb)
}
