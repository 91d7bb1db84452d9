package main

import "testing"

func TestRootCommandDefaultsToServe(t *testing.T) {
	cmd := newCommand()

	if cmd.Action == nil {
		t.Fatal("root command has no action; bare invocation must start the server")
	}
	for _, name := range []string{"serve", "export", "mcp"} {
		if cmd.Command(name) == nil {
			t.Fatalf("subcommand %q missing", name)
		}
	}
}
