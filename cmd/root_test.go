package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"predict", "batch", "match", "serve", "runs", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "boxoffice", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	for _, name := range []string{"directors", "movies"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestPredictCommand_Flags(t *testing.T) {
	for _, name := range []string{"director", "budget", "output", "record"} {
		require.NotNil(t, predictCmd.Flags().Lookup(name), "predict should have --%s", name)
	}
	assert.Equal(t, "text", predictCmd.Flags().Lookup("output").DefValue)
	assert.Equal(t, "o", predictCmd.Flags().Lookup("output").Shorthand)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "output", "concurrency", "record"} {
		require.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s", name)
	}
	assert.Equal(t, "table", batchCmd.Flags().Lookup("output").DefValue)
	assert.Equal(t, "0", batchCmd.Flags().Lookup("concurrency").DefValue)
}

func TestMatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"director", "top", "output"} {
		require.NotNil(t, matchCmd.Flags().Lookup(name), "match should have --%s", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestRunsListCommand_Flags(t *testing.T) {
	for _, name := range []string{"outcome", "director", "limit"} {
		assert.NotNil(t, runsListCmd.Flags().Lookup(name), "runs list should have --%s", name)
	}
	assert.Equal(t, "50", runsListCmd.Flags().Lookup("limit").DefValue)
}
