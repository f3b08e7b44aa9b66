package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func job(in, out, profilePath string) string {
	return fmt.Sprintf(`
schema_version: v1
input: { path: %q, has_header: true }
output: { path: %q, type: csv }
profile: { enabled: true, format: json, path: %q }
steps:
  - javascript:
      columns: [first, last]
      output: full_name
      workers: 2
      source: |
        values[0] + " " + values[1]
  - javascript:
      columns: [full_name]
      return_type: number
      output: name_length
      source: full_name.length
`, in, out, profilePath)
}

func TestRunEndToEnd(t *testing.T) {
	for _, chunk := range []string{"0", "1"} {
		t.Run("chunk="+chunk, func(t *testing.T) {
			dir := t.TempDir()
			in := writeFile(t, dir, "in.csv", "first,last\nada,lovelace\nalan,turing\n")
			out := filepath.Join(dir, "out.csv")
			prof := filepath.Join(dir, "profile.json")
			cfg := writeFile(t, dir, "job.yaml", job(in, out, prof))

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), []string{"--config", cfg, "--chunk-size", chunk}, &stdout, &stderr)
			if code != 0 {
				t.Fatalf("exit %d: %s", code, stderr.String())
			}
			b, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			want := "first,last,full_name,name_length\nada,lovelace,ada lovelace,12\nalan,turing,alan turing,11\n"
			if string(b) != want {
				t.Fatalf("output:\n%s", b)
			}
			p, err := os.ReadFile(prof)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(p), `"name": "full_name"`) || !strings.Contains(string(p), `"rows": 2`) {
				t.Fatalf("profile:\n%s", p)
			}
		})
	}
}

func TestRunFailingRowsKeepGoing(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "n\n1\n2\n3\n")
	out := filepath.Join(dir, "out.jsonl")
	cfg := writeFile(t, dir, "job.json", fmt.Sprintf(`{
  "schema_version": "v1",
  "input": {"path": %q, "has_header": true},
  "output": {"path": %q, "type": "jsonl"},
  "steps": [{"javascript": {"columns": ["n"], "return_type": "NUMBER", "output": "double",
    "source": "if (n === 2) { throw new Error('boom'); } n * 2"}}]
}`, in, out))
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--config", cfg}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	b, _ := os.ReadFile(out)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 || lines[0] != `{"double":2,"n":1}` || lines[1] != `{"n":2}` || lines[2] != `{"double":6,"n":3}` {
		t.Fatalf("output:\n%s", b)
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", "schema_version: v1\ninput: {path: x.csv}\noutput: {path: y.csv}\nsteps:\n  - javascript: {columns: [a], source: 'a + 1'}\n")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--config", good, "--validate"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok: 1 script step(s) compiled") {
		t.Fatalf("stdout %q", stdout.String())
	}

	bad := writeFile(t, dir, "bad.yaml", "schema_version: v1\ninput: {path: x.csv}\noutput: {path: y.csv}\nsteps:\n  - javascript: {source: 'function ('}\n")
	stdout.Reset()
	stderr.Reset()
	if code := run(context.Background(), []string{"--config", bad, "--validate"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stderr.String(), "syntax error") {
		t.Fatalf("stderr %q", stderr.String())
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Fatalf("no config: exit %d", code)
	}
	if code := run(context.Background(), []string{"--version"}, &stdout, &stderr); code != 0 || !strings.HasPrefix(stdout.String(), "jsjanitor ") {
		t.Fatalf("version: exit %d %q", code, stdout.String())
	}
	if code := run(context.Background(), []string{"--bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("bad flag: exit %d", code)
	}
}

func TestRunUnknownColumn(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a\n1\n")
	cfg := writeFile(t, dir, "job.yaml", fmt.Sprintf("schema_version: v1\ninput: {path: %q, has_header: true}\noutput: {path: %q}\nsteps:\n  - javascript: {columns: [missing]}\n", in, filepath.Join(dir, "o.csv")))
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--config", cfg}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stderr.String(), "missing") {
		t.Fatalf("stderr %q", stderr.String())
	}
}
