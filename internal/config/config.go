package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	SupportedSchema = "v1"
	// EnvPrefix selects override variables, e.g. JANITOR__OUTPUT__TYPE=jsonl.
	EnvPrefix = "JANITOR__"
	envDelim  = "__"
)

type Input struct {
	Path       string `koanf:"path"`
	Type       string `koanf:"type"` // csv|jsonl|parquet (default csv)
	HasHeader  bool   `koanf:"has_header"`
	Delimiter  string `koanf:"delimiter"`
	SampleRows int    `koanf:"sample_rows"`
}

type Output struct {
	Path      string `koanf:"path"`
	Type      string `koanf:"type"` // csv|jsonl|parquet (default csv)
	Delimiter string `koanf:"delimiter"`
}

type Profile struct {
	Enabled bool   `koanf:"enabled"`
	TopK    int    `koanf:"top_k"`
	Format  string `koanf:"format"` // text|json|yaml
	Path    string `koanf:"path"`   // empty means stderr
}

type Metrics struct {
	Listen      string `koanf:"listen"`
	Pushgateway string `koanf:"pushgateway"`
	Job         string `koanf:"job"`
}

// Job is a complete cleaning run: where rows come from, the steps applied to
// them and where they go.
type Job struct {
	SchemaVersion string           `koanf:"schema_version"`
	Input         Input            `koanf:"input"`
	Output        Output           `koanf:"output"`
	ChunkSize     int              `koanf:"chunk_size"`
	Profile       Profile          `koanf:"profile"`
	Metrics       Metrics          `koanf:"metrics"`
	Steps         []map[string]any `koanf:"steps"`
}

// Load reads a job file and merges JANITOR__ environment overrides on top.
// The format follows the extension: .yaml/.yml, .toml, otherwise JSON.
func Load(path string) (Job, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return Job{}, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, envDelim, envKey), nil); err != nil {
		return Job{}, fmt.Errorf("load env: %w", err)
	}

	var job Job
	if err := k.Unmarshal("", &job); err != nil {
		return Job{}, err
	}
	if job.SchemaVersion == "" {
		job.SchemaVersion = SupportedSchema
	}
	if job.SchemaVersion != SupportedSchema {
		return Job{}, fmt.Errorf("job schema_version %q not supported (want %q)", job.SchemaVersion, SupportedSchema)
	}
	applyDefaults(&job)
	if err := job.validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".toml":
		return tomlParser{}
	default:
		return json.Parser()
	}
}

// tomlParser adapts go-toml to koanf.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]any) ([]byte, error) { return toml.Marshal(m) }

func applyDefaults(j *Job) {
	if j.Input.Type == "" {
		j.Input.Type = "csv"
	}
	if j.Output.Type == "" {
		j.Output.Type = "csv"
	}
	if j.Input.Delimiter == "" {
		j.Input.Delimiter = ","
	}
	if j.Output.Delimiter == "" {
		j.Output.Delimiter = ","
	}
	if j.Input.SampleRows <= 0 {
		j.Input.SampleRows = 100
	}
	if j.ChunkSize < 0 {
		j.ChunkSize = 0
	}
	if j.Profile.TopK <= 0 {
		j.Profile.TopK = 5
	}
	if j.Profile.Format == "" {
		j.Profile.Format = "text"
	}
	if j.Metrics.Job == "" {
		j.Metrics.Job = "jsjanitor"
	}
}

func (j Job) validate() error {
	if j.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if j.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	for _, t := range []string{j.Input.Type, j.Output.Type} {
		switch t {
		case "csv", "jsonl", "parquet":
		default:
			return fmt.Errorf("unsupported io type %q", t)
		}
	}
	switch j.Profile.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported profile format %q", j.Profile.Format)
	}
	return nil
}

// Delim returns the first rune of a delimiter setting, or ',' when unset.
func Delim(s string) rune {
	for _, r := range s {
		return r
	}
	return ','
}
