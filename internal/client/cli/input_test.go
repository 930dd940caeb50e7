package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptLine_TrimsInput(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("  Trattoria Uno  \n"))

	got, err := promptLine(r, "Venue name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Uno", got)
	assert.Contains(t, out.String(), "Venue name")
}

func TestPromptLine_PartialLineAtEOF(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("no newline"))

	got, err := promptLine(r, "p", &out)
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)
}

func TestPromptMultiline_StopsOnEmptyLine(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("line one\nline two\n\nignored\n"))

	got, err := promptMultiline(r, "Notes", &out)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
}

func TestPromptPairs_CollectsUntilEmpty(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("cuisine=neapolitan\nvibe=quiet\n\n"))

	got, err := promptPairs(r, "Metadata", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"cuisine=neapolitan", "vibe=quiet"}, got)
}

func TestPromptPassword_UsesSeam(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	var out bytes.Buffer
	pw, err := promptPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(pw))
	assert.Contains(t, out.String(), "Enter password")
}
