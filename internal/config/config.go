package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint       = "http://localhost:11434"
	DefaultTimeout        = 1800
	DefaultResultsDir     = "results"
	DefaultEvalResultsDir = "eval_results"
	DefaultImage          = "ollama/ollama:latest"
	DefaultVolume         = "ollama"

	envPrefix = "LETTERBENCH_"
)

// now is swapped in tests to make generated identifiers predictable.
var now = time.Now

// RunConfig configures a generation run.
type RunConfig struct {
	Model      string    `yaml:"model" json:"model"`
	DataFile   string    `yaml:"data_file" json:"data_file"`
	PromptFile string    `yaml:"prompt_file" json:"prompt_file"`
	RunID      string    `yaml:"run_id" json:"run_id"`
	Endpoint   string    `yaml:"endpoint" json:"endpoint"`
	Timeout    int       `yaml:"timeout" json:"timeout"`
	ResultsDir string    `yaml:"results_dir" json:"results_dir"`
	Container  Container `yaml:"container" json:"container"`
}

// EvalConfig configures an evaluation of a previous run.
type EvalConfig struct {
	Model             string    `yaml:"model" json:"model"`
	DataFile          string    `yaml:"data_file" json:"data_file"`
	PromptFile        string    `yaml:"prompt_file" json:"prompt_file"`
	SummaryPromptFile string    `yaml:"summary_prompt_file" json:"summary_prompt_file,omitempty"`
	RunID             string    `yaml:"run_id" json:"run_id"`
	EvalID            string    `yaml:"eval_id" json:"eval_id"`
	Endpoint          string    `yaml:"endpoint" json:"endpoint"`
	Timeout           int       `yaml:"timeout" json:"timeout"`
	ResultsDir        string    `yaml:"results_dir" json:"results_dir"`
	EvalResultsDir    string    `yaml:"eval_results_dir" json:"eval_results_dir"`
	Weights           Weights   `yaml:"weights" json:"weights"`
	Container         Container `yaml:"container" json:"container"`
}

// Weights are the per-dimension weights of the overall rubric score. They
// are expected to sum to 1.
type Weights struct {
	Completeness     float64 `yaml:"completeness" json:"completeness"`
	Accuracy         float64 `yaml:"accuracy" json:"accuracy"`
	NoHallucinations float64 `yaml:"no_hallucinations" json:"no_hallucinations"`
	ClinicalSafety   float64 `yaml:"clinical_safety" json:"clinical_safety"`
	Coherence        float64 `yaml:"coherence" json:"coherence"`
}

var DefaultWeights = Weights{
	Completeness:     0.25,
	Accuracy:         0.30,
	NoHallucinations: 0.20,
	ClinicalSafety:   0.20,
	Coherence:        0.05,
}

func (w Weights) IsZero() bool {
	return w == Weights{}
}

func (w Weights) Sum() float64 {
	return w.Completeness + w.Accuracy + w.NoHallucinations + w.ClinicalSafety + w.Coherence
}

// Container describes an optional Ollama container started for the
// duration of a command.
type Container struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Image     string `yaml:"image" json:"image,omitempty"`
	Volume    string `yaml:"volume" json:"volume,omitempty"`
	PullModel bool   `yaml:"pull_model" json:"pull_model"`
}

// overrides are read from LETTERBENCH_* environment variables and win over
// the config file.
type overrides struct {
	Model      string `env:"MODEL"`
	Endpoint   string `env:"ENDPOINT"`
	Timeout    int    `env:"TIMEOUT"`
	ResultsDir string `env:"RESULTS_DIR"`
}

type options struct {
	lookuper envconfig.Lookuper
}

type Option func(*options)

// WithLookuper replaces the process environment as the source of overrides.
func WithLookuper(l envconfig.Lookuper) Option {
	return func(o *options) { o.lookuper = l }
}

func LoadRun(ctx context.Context, path string, opts ...Option) (*RunConfig, error) {
	var cfg RunConfig
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	ov, err := loadOverrides(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}
	applyOverrides(ov, &cfg.Model, &cfg.Endpoint, &cfg.Timeout, &cfg.ResultsDir)
	if err := validateRun(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func LoadEval(ctx context.Context, path string, opts ...Option) (*EvalConfig, error) {
	var cfg EvalConfig
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	ov, err := loadOverrides(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}
	applyOverrides(ov, &cfg.Model, &cfg.Endpoint, &cfg.Timeout, &cfg.ResultsDir)
	if err := validateEval(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// decode reads JSON or YAML. JSON documents go through encoding/json so that
// tab-indented files are accepted.
func decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func loadOverrides(ctx context.Context, opts []Option) (overrides, error) {
	o := options{lookuper: envconfig.OsLookuper()}
	for _, opt := range opts {
		opt(&o)
	}
	var ov overrides
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &ov,
		Lookuper: envconfig.PrefixLookuper(envPrefix, o.lookuper),
	})
	return ov, err
}

func applyOverrides(ov overrides, model, endpoint *string, timeout *int, resultsDir *string) {
	if ov.Model != "" {
		*model = ov.Model
	}
	if ov.Endpoint != "" {
		*endpoint = ov.Endpoint
	}
	if ov.Timeout != 0 {
		*timeout = ov.Timeout
	}
	if ov.ResultsDir != "" {
		*resultsDir = ov.ResultsDir
	}
}

func validateRun(cfg *RunConfig) error {
	if err := requireFields(
		field{"model", cfg.Model},
		field{"data_file", cfg.DataFile},
		field{"prompt_file", cfg.PromptFile},
	); err != nil {
		return err
	}
	if cfg.RunID == "" {
		cfg.RunID = "run_" + now().Format("20060102_150405")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = DefaultResultsDir
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	defaultContainer(&cfg.Container)
	return nil
}

func validateEval(cfg *EvalConfig) error {
	if err := requireFields(
		field{"model", cfg.Model},
		field{"data_file", cfg.DataFile},
		field{"prompt_file", cfg.PromptFile},
		field{"run_id", cfg.RunID},
	); err != nil {
		return err
	}
	if cfg.EvalID == "" {
		cfg.EvalID = "eval_" + now().Format("20060102_150405")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = DefaultResultsDir
	}
	if cfg.EvalResultsDir == "" {
		cfg.EvalResultsDir = DefaultEvalResultsDir
	}
	if cfg.Weights.IsZero() {
		cfg.Weights = DefaultWeights
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	defaultContainer(&cfg.Container)
	return nil
}

type field struct {
	name  string
	value string
}

func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultContainer(c *Container) {
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.Volume == "" {
		c.Volume = DefaultVolume
	}
}

// TimeoutDuration is the per-request inference timeout.
func (c *RunConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *EvalConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Rows lists the resolved settings for display before a run.
func (c *RunConfig) Rows() [][]string {
	return [][]string{
		{"model", c.Model},
		{"data_file", c.DataFile},
		{"prompt_file", c.PromptFile},
		{"run_id", c.RunID},
		{"endpoint", c.Endpoint},
		{"timeout", fmt.Sprintf("%ds", c.Timeout)},
		{"results_dir", c.ResultsDir},
		{"container", containerRow(c.Container)},
	}
}

func (c *EvalConfig) Rows() [][]string {
	summary := c.SummaryPromptFile
	if summary == "" {
		summary = "(none)"
	}
	return [][]string{
		{"model", c.Model},
		{"data_file", c.DataFile},
		{"prompt_file", c.PromptFile},
		{"summary_prompt_file", summary},
		{"run_id", c.RunID},
		{"eval_id", c.EvalID},
		{"endpoint", c.Endpoint},
		{"timeout", fmt.Sprintf("%ds", c.Timeout)},
		{"results_dir", c.ResultsDir},
		{"eval_results_dir", c.EvalResultsDir},
		{"weights", fmt.Sprintf("completeness=%.2f accuracy=%.2f no_hallucinations=%.2f clinical_safety=%.2f coherence=%.2f",
			c.Weights.Completeness, c.Weights.Accuracy, c.Weights.NoHallucinations, c.Weights.ClinicalSafety, c.Weights.Coherence)},
		{"container", containerRow(c.Container)},
	}
}

func containerRow(c Container) string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s (volume %s)", c.Image, c.Volume)
}
