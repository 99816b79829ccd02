package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxoffice/internal/resolve"
)

func TestWriteMatches_Table(t *testing.T) {
	matches := []resolve.Match{
		{Name: "Christopher Nolan", ID: "1", Score: 90.9},
		{Name: "Steven Spielberg", ID: "2", Score: 31.2},
	}

	var buf bytes.Buffer
	require.NoError(t, writeMatches(&buf, "table", matches, 60))

	out := buf.String()
	assert.Contains(t, out, "Christopher Nolan")
	assert.Contains(t, out, "90.9")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
}

func TestWriteMatches_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMatches(&buf, "table", nil, 60))
	assert.Equal(t, "No director candidates.\n", buf.String())

	buf.Reset()
	require.NoError(t, writeMatches(&buf, "json", nil, 60))
	assert.JSONEq(t, "[]", buf.String())
}

func TestWriteMatches_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMatches(&buf, "json", []resolve.Match{{Name: "A", ID: "7", Score: 100}}, 60))

	var got []resolve.Match
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []resolve.Match{{Name: "A", ID: "7", Score: 100}}, got)
}

func TestWriteMatches_UnknownFormat(t *testing.T) {
	err := writeMatches(&bytes.Buffer{}, "csv", nil, 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")
}

func TestMatchCommand_EndToEnd(t *testing.T) {
	directors, movies := writeTables(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"match", "--directors", directors, "--movies", movies,
		"--director", "spielberg", "--top", "1", "--output", "json"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var got []resolve.Match
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Steven Spielberg", got[0].Name)
	assert.InDelta(t, 90.0, got[0].Score, 1e-9)
}
