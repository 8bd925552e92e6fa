package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "photorate version 0.1.0 (build: dev)\n", out.String())
}

func TestMigrateRejectsMemoryStore(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE", "memory")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "--log-level", "error"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "postgres store")
}
