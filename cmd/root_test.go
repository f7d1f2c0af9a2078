package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{
		"run", "dedupe", "classify", "enrich", "import",
		"workspace", "report", "serve", "migrate", "migrate-ids",
	}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "dataops-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	flag := runCmd.Flags().Lookup("pass")
	require.NotNil(t, flag, "run command should have --pass flag")

	forceFlag := runCmd.Flags().Lookup("force")
	require.NotNil(t, forceFlag, "run command should have --force flag")
	assert.Equal(t, "false", forceFlag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestEnrichCommand_HasSubcommands(t *testing.T) {
	cmds := enrichCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"people", "companies", "retries", "refresh-industry"} {
		assert.True(t, names[name], "expected enrich subcommand %q not found", name)
	}
}

func TestWorkspaceCommand_HasSubcommands(t *testing.T) {
	cmds := workspaceCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"audit", "repair", "merge"} {
		assert.True(t, names[name], "expected workspace subcommand %q not found", name)
	}
}

func TestReportCommand_HasSubcommands(t *testing.T) {
	cmds := reportCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"runs", "summary", "export"} {
		assert.True(t, names[name], "expected report subcommand %q not found", name)
	}
}
