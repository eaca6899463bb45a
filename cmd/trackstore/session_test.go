package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	storeerrors "github.com/vango-go/trackstore/internal/errors"
	"github.com/vango-go/trackstore/pkg/store"
)

func newTestREPL(t *testing.T, initial map[string]any) (*repl, *bytes.Buffer) {
	t.Helper()
	st, err := store.New("test", initial, nil)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	var out bytes.Buffer
	return newREPL(context.Background(), st, &out), &out
}

func runScript(t *testing.T, r *repl, lines ...string) {
	t.Helper()
	if err := r.run(strings.NewReader(strings.Join(lines, "\n") + "\n")); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestREPLSetAndGet(t *testing.T) {
	r, out := newTestREPL(t, map[string]any{"user": map[string]any{"name": "a"}})
	runScript(t, r,
		"set user.name Ann",
		"set user.age 31",
		"get user.name",
		"get user.age",
	)

	got := out.String()
	if !strings.Contains(got, `"Ann"`) || !strings.Contains(got, "31") {
		t.Errorf("output = %q", got)
	}
	if age := r.store.State(nil).Map("user").Get("age"); age != 31 {
		t.Errorf("age = %#v, want int 31", age)
	}
}

func TestREPLWatchNotifiesOnlyOnChange(t *testing.T) {
	r, out := newTestREPL(t, map[string]any{"count": 0, "other": 0})
	runScript(t, r,
		"watch count",
		"inc other",
		"inc count",
		"set count 1",
		"dec count 3",
	)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"watch 1: count",
		"[1] count = 0",
		"[1] count = 1",
		"[1] count = -2",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestREPLUnwatch(t *testing.T) {
	r, out := newTestREPL(t, map[string]any{"count": 0})
	runScript(t, r,
		"watch count",
		"unwatch 1",
		"inc count",
	)
	if strings.Contains(out.String(), "count = 1") {
		t.Errorf("unwatched subscriber was notified: %q", out.String())
	}
	if edges := r.store.Container().Tracker().Edges(); edges != 0 {
		t.Errorf("Edges() = %d, want 0", edges)
	}
}

func TestREPLLists(t *testing.T) {
	r, out := newTestREPL(t, map[string]any{"todos": []any{}})
	runScript(t, r,
		"watch todos.length",
		`push todos {"title": "a", "done": false}`,
		`push todos {"title": "b", "done": false}`,
		`set todos.0 {"title": "a", "done": true}`,
		"del todos.0",
		"get todos.0.title",
		"set todos.0.done true",
	)

	got := out.String()
	for _, want := range []string{
		"[1] todos.length = 0",
		"[1] todos.length = 1",
		"[1] todos.length = 2",
		`"b"`,
		"goes through a list element",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	todos := r.store.State(nil).List("todos")
	if todos.Len() != 1 {
		t.Errorf("len(todos) = %d, want 1", todos.Len())
	}
}

func TestREPLErrors(t *testing.T) {
	tests := []struct {
		line string
		code string
	}{
		{"bogus", "T200"},
		{"get missing", "T201"},
		{"get a..b", "T201"},
		{"set . 1", "T201"},
		{"push count 1", "T201"},
		{"inc name", "T201"},
		{"unwatch 9", "T200"},
		{"set list.5 1", "T004"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r, _ := newTestREPL(t, map[string]any{"count": 0, "name": "x", "list": []any{1}})
			_, err := r.exec(tt.line)
			if got := storeerrors.Code(err); got != tt.code {
				t.Errorf("Code() = %q, want %q (err = %v)", got, tt.code, err)
			}
		})
	}
}

func TestREPLQuitStops(t *testing.T) {
	r, out := newTestREPL(t, map[string]any{"count": 0})
	runScript(t, r, "quit", "inc count")
	if got := r.store.State(nil).Get("count"); got != 0 {
		t.Errorf("count = %v, want 0", got)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPLStopsWhenContextEndsDuringRead(t *testing.T) {
	st, err := store.New("test", map[string]any{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	r := newREPL(ctx, st, &out)

	in, w := io.Pipe()
	defer w.Close()

	result := make(chan error, 1)
	go func() { result <- r.run(in) }()

	cancel()
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() still blocked on input after the context ended")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", 42},
		{"1.5", 1.5},
		{"true", true},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.raw)
		if err != nil {
			t.Fatalf("parseValue(%q) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}

	v, _ := parseValue(`{"n": 1, "xs": [2]}`)
	m := v.(map[string]any)
	if m["n"] != 1 || m["xs"].([]any)[0] != 2 {
		t.Errorf("nested numbers = %#v", m)
	}

	if _, err := parseValue(""); err == nil {
		t.Error("parseValue(\"\") should fail")
	}
}

func TestLoadState(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "seed.json")
	yamlPath := filepath.Join(dir, "seed.yaml")
	os.WriteFile(jsonPath, []byte(`{"count": 2, "tags": ["a"]}`), 0644)
	os.WriteFile(yamlPath, []byte("count: 2\ntags:\n  - a\n"), 0644)

	for _, path := range []string{jsonPath, yamlPath} {
		state, err := loadState(path)
		if err != nil {
			t.Fatalf("loadState(%s) error = %v", path, err)
		}
		if state["count"] != 2 {
			t.Errorf("%s: count = %#v, want int 2", filepath.Base(path), state["count"])
		}
	}

	bad := filepath.Join(dir, "seed.yaml2")
	os.WriteFile(bad, []byte("x: 1"), 0644)
	if _, err := loadState(bad); storeerrors.Code(err) != "T202" {
		t.Errorf("unknown extension error = %v", err)
	}
	if _, err := loadState(filepath.Join(dir, "missing.json")); storeerrors.Code(err) != "T202" {
		t.Errorf("missing file error = %v", err)
	}

	list := filepath.Join(dir, "list.json")
	os.WriteFile(list, []byte(`[1, 2]`), 0644)
	if _, err := loadState(list); storeerrors.Code(err) != "T202" {
		t.Errorf("non-object error = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Errorf("output = %q, want %q", out.String(), version)
	}
}
