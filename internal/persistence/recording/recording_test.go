package recording

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/input"
)

func sample() input.Recording {
	return input.Recording{
		{Keys: input.Of(input.KeyD, input.KeyLShift)},
		{Keys: input.Of(input.KeyW)},
		{Gap: true},
		{},
		{Keys: input.Of(input.KeyA, input.KeyS)},
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string][2]any{
		"run.txt":       {FormatText, false},
		"run.txt.zst":   {FormatText, true},
		"dir/RUN.JSON":  {FormatJSON, false},
		"run.json.zst":  {FormatJSON, true},
		"inputs":        {FormatText, false},
		"archive/x.zst": {FormatText, true},
	}
	for path, want := range cases {
		f, c := FormatOf(path)
		assert.Equal(t, want[0], f, path)
		assert.Equal(t, want[1], c, path)
	}
}

func TestWriteRead_AllFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "a.txt.zst", "a.json", "a.json.zst"} {
		path := filepath.Join(dir, "nested", name)
		require.NoError(t, Write(path, sample()), name)
		got, err := Read(path)
		require.NoError(t, err, name)
		assert.Equal(t, sample(), got, name)
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestEncode_TextAndJSONShapes(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, Encode(&text, FormatText, sample()))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	assert.Equal(t, []string{"# timewarp inputs v1", "D+LSHIFT", "W", "|", "-", "A+S"}, lines)

	var js bytes.Buffer
	require.NoError(t, Encode(&js, FormatJSON, sample()))
	assert.JSONEq(t, `[["D","LSHIFT"],["W"],null,[],["A","S"]]`, js.String())

	js.Reset()
	require.NoError(t, Encode(&js, FormatJSON, nil))
	assert.JSONEq(t, `[]`, js.String())
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "missing.txt"))
	assert.True(t, os.IsNotExist(err))

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("D\nJUMP\n"), 0o644))
	_, err = Read(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.txt")

	badJSON := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badJSON, []byte(`[["Q"]]`), 0o644))
	_, err = Read(badJSON)
	assert.Error(t, err)
}
