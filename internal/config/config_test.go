package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const yamlJob = `
schema_version: v1
input: { path: in.csv, has_header: true }
output: { path: out.jsonl, type: jsonl }
profile: { enabled: true, format: yaml }
steps:
  - javascript:
      columns: [first_name, last_name]
      return_type: STRING
      output: full_name
      workers: 4
      timeout: 250ms
      source: |
        values[0] + " " + values[1]
`

func TestLoadYAML(t *testing.T) {
	job, err := Load(writeFile(t, "job.yaml", yamlJob))
	if err != nil {
		t.Fatal(err)
	}
	if job.Input.Path != "in.csv" || !job.Input.HasHeader || job.Input.Type != "csv" || job.Input.Delimiter != "," {
		t.Fatalf("input %+v", job.Input)
	}
	if job.Output.Type != "jsonl" || job.Profile.TopK != 5 || job.Profile.Format != "yaml" || job.Metrics.Job != "jsjanitor" {
		t.Fatalf("job %+v", job)
	}
	steps, err := job.DecodeSteps()
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 || steps[0].Kind != StepJavaScript {
		t.Fatalf("steps %+v", steps)
	}
	js := steps[0].JavaScript
	if js.Timeout != 250*time.Millisecond || js.Workers != 4 || js.Output != "full_name" || len(js.Columns) != 2 || js.ReturnType != "STRING" {
		t.Fatalf("javascript step %+v", js)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JANITOR__OUTPUT__TYPE", "parquet")
	t.Setenv("JANITOR__CHUNK_SIZE", "500")
	job, err := Load(writeFile(t, "job.yaml", yamlJob))
	if err != nil {
		t.Fatal(err)
	}
	if job.Output.Type != "parquet" || job.ChunkSize != 500 {
		t.Fatalf("overrides not applied: %+v", job)
	}
}

func TestLoadTOMLAndJSON(t *testing.T) {
	tomlJob := `
[input]
path = "in.csv"

[output]
path = "out.csv"

[[steps]]
[steps.javascript]
columns = ["a"]
source = "a"
return_type = "number"
`
	job, err := Load(writeFile(t, "job.toml", tomlJob))
	if err != nil {
		t.Fatal(err)
	}
	steps, err := job.DecodeSteps()
	if err != nil || len(steps) != 1 || steps[0].JavaScript.ReturnType != "number" {
		t.Fatalf("toml steps %+v %v", steps, err)
	}

	jsonJob := `{"input":{"path":"in.jsonl","type":"jsonl"},"output":{"path":"out.csv"},"steps":[{"javascript":{"source":"1"}}]}`
	job, err = Load(writeFile(t, "job.json", jsonJob))
	if err != nil {
		t.Fatal(err)
	}
	if job.Input.Type != "jsonl" || len(job.Steps) != 1 {
		t.Fatalf("json job %+v", job)
	}
}

func TestLoadRejectsBadJobs(t *testing.T) {
	for name, body := range map[string]string{
		"schema.yaml":  "schema_version: v2\ninput: {path: a}\noutput: {path: b}\n",
		"nopath.yaml":  "output: {path: b}\n",
		"type.yaml":    "input: {path: a, type: xml}\noutput: {path: b}\n",
		"profile.yaml": "input: {path: a}\noutput: {path: b}\nprofile: {format: html}\n",
	} {
		if _, err := Load(writeFile(t, name, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestDecodeStepsErrors(t *testing.T) {
	job := Job{Steps: []map[string]any{
		{"trim": map[string]any{"column": "a"}},
		{"javascript": map[string]any{"source": "1"}},
	}}
	steps, err := job.DecodeSteps()
	if !errors.Is(err, ErrUnknownStep) || len(steps) != 1 {
		t.Fatalf("steps %v err %v", steps, err)
	}
	job = Job{Steps: []map[string]any{{"javascript": map[string]any{"sourse": "1"}}}}
	if _, err := job.DecodeSteps(); err == nil {
		t.Fatal("misspelled key should fail")
	}
}

func TestDelim(t *testing.T) {
	if Delim("") != ',' || Delim(";") != ';' || Delim("\t") != '\t' {
		t.Fatal("delim")
	}
}
