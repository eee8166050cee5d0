package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestProcessCmd_Text(t *testing.T) {
	path := writeFile(t, "notes.txt", "hello from a file")

	out, err := execute(t, "process", path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, "hello from a file") {
		t.Errorf("expected file content in output, got %q", out)
	}
}

func TestProcessCmd_JSON(t *testing.T) {
	ok := writeFile(t, "a.txt", "alpha")
	missing := filepath.Join(t.TempDir(), "missing.txt")

	out, err := execute(t, "process", "--json", ok, missing)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var results []resultJSON
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != "ok" || !strings.Contains(results[0].Text, "alpha") {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Status != "error" || results[1].Error == "" {
		t.Errorf("expected failed second result, got %+v", results[1])
	}
}

func TestProcessCmd_Adapter(t *testing.T) {
	path := writeFile(t, "a.txt", "alpha")

	out, err := execute(t, "process", "--adapter", "claude", "--prompt", "summarize", path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, `"role": "user"`) || !strings.Contains(out, "summarize") {
		t.Errorf("expected claude message JSON, got %q", out)
	}
}

func TestProcessCmd_UnknownAdapter(t *testing.T) {
	path := writeFile(t, "a.txt", "alpha")
	if _, err := execute(t, "process", "--adapter", "fax", path); err == nil {
		t.Fatal("expected adaptation error")
	}
}

func TestProcessCmd_RequiresArgs(t *testing.T) {
	if _, err := execute(t, "process"); err == nil {
		t.Fatal("expected error without identifiers")
	}
}

func TestRunCmd(t *testing.T) {
	path := writeFile(t, "a.txt", "alpha")

	out, err := execute(t, "run", "load.text | present.text", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "alpha") {
		t.Errorf("expected text in output, got %q", out)
	}
}

func TestRunCmd_InvalidExpression(t *testing.T) {
	path := writeFile(t, "a.txt", "alpha")
	if _, err := execute(t, "run", "load.nosuchverb", path); err == nil {
		t.Fatal("expected error for unknown verb")
	}
}

func TestVerbsCmd(t *testing.T) {
	out, err := execute(t, "verbs")
	if err != nil {
		t.Fatalf("verbs: %v", err)
	}
	for _, want := range []string{"VERB", "load.text", "present.markdown", "adapt.claude"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestVerbsCmd_JSON(t *testing.T) {
	out, err := execute(t, "verbs", "--json")
	if err != nil {
		t.Fatalf("verbs: %v", err)
	}
	var infos []map[string]any
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) == 0 {
		t.Fatal("expected verbs")
	}
}

func TestConfigFlag(t *testing.T) {
	cfg := writeFile(t, "attach.yaml", "pipeline:\n  default_adapter: nope\n")
	if _, err := execute(t, "--config", cfg, "verbs"); err == nil {
		t.Fatal("expected validation error from config file")
	}
}
