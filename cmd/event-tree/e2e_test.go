package main

import (
	"encoding/json"
	"os/exec"
	"strings"
	"testing"

	"github.com/stupiduntilnot/notesassist/internal/db"
)

// TestE2E_TreeOutput builds the binary and runs it against a seeded database,
// verifying tree and JSON output modes and the --id, --session, -L and
// --no-payload flags.
func TestE2E_TreeOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := t.TempDir() + "/event-tree"
	build := exec.Command("go", "build", "-o", binPath, ".")
	build.Dir = "."
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}

	dbPath := t.TempDir() + "/e2e.db"
	database, err := db.OpenDB(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InitSchema(database); err != nil {
		t.Fatal(err)
	}
	seedSessionTree(t, database)
	database.Close()

	t.Run("default_full_tree", func(t *testing.T) {
		out, err := exec.Command(binPath, "--db", dbPath).CombinedOutput()
		if err != nil {
			t.Fatalf("exit error: %v\n%s", err, out)
		}
		output := string(out)
		for _, want := range []string{"session.started", "examples.sampled", "turn.completed", "log.cleared", "├──"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("session_flag", func(t *testing.T) {
		out, err := exec.Command(binPath, "--db", dbPath, "--session", "s-1", "-L", "2").CombinedOutput()
		if err != nil {
			t.Fatalf("exit error: %v\n%s", err, out)
		}
		output := string(out)
		if strings.Contains(output, "context.assembled") {
			t.Errorf("context.assembled should be hidden at -L 2:\n%s", output)
		}
		if !strings.Contains(output, "[...]") {
			t.Errorf("expected [...] for truncated nodes:\n%s", output)
		}
	})

	t.Run("id_flag_subtree", func(t *testing.T) {
		out, err := exec.Command(binPath, "--db", dbPath, "--id", "8").CombinedOutput()
		if err != nil {
			t.Fatalf("exit error: %v\n%s", err, out)
		}
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) != 3 || !strings.Contains(lines[0], "submission.started") {
			t.Errorf("expected submission subtree:\n%s", out)
		}
	})

	t.Run("json_output", func(t *testing.T) {
		out, err := exec.Command(binPath, "--db", dbPath, "-json", "-no-payload").CombinedOutput()
		if err != nil {
			t.Fatalf("exit error: %v\n%s", err, out)
		}
		var je jsonEvent
		if err := json.Unmarshal(out, &je); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if je.EventType != "session.started" || len(je.Children) != 6 {
			t.Errorf("unexpected root %s with %d children", je.EventType, len(je.Children))
		}
		if je.Payload != nil {
			t.Errorf("expected no payload with -no-payload, got %v", je.Payload)
		}
	})
}
