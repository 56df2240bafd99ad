package cmd

import (
	"strings"
	"testing"
)

// ============================================================
// Root command
// ============================================================

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "notabene" {
		t.Errorf("Use = %q, want notabene", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty Short description")
	}

	subcommands := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		subcommands[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "ask", "migrate", "version"} {
		if !subcommands[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version command error = %v", err)
	}
}

func TestIngestCmd_RequiresTenant(t *testing.T) {
	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "notes.md"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error when --tenant is missing")
	}
}
