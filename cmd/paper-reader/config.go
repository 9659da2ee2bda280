// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reader/internal/acquire"
	"github.com/pdiddy/paper-reader/internal/clean"
	"github.com/pdiddy/paper-reader/internal/convert"
	"github.com/pdiddy/paper-reader/internal/extract"
	"github.com/pdiddy/paper-reader/internal/ledger"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/pipeline"
	"github.com/pdiddy/paper-reader/internal/resilience"
	"github.com/pdiddy/paper-reader/internal/secrets"
	"github.com/pdiddy/paper-reader/internal/server"
	"github.com/pdiddy/paper-reader/internal/sheet"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// ledgerFile is the default ledger name under the data directory.
const ledgerFile = "paper-reader.db"

// setDefaults registers every configuration key so that environment
// variables reach viper.Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "paper-reader/"+version)
	v.SetDefault("fetch.api_key", "")
	v.SetDefault("fetch.url_template", acquire.DefaultURLTemplate)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_delay", 3*time.Second)
	v.SetDefault("fetch.rate_limit", 0.0)
	v.SetDefault("fetch.placeholder_on_missing_key", false)

	v.SetDefault("parser.timeout", 5*time.Minute)
	v.SetDefault("parser.user_agent", "paper-reader/"+version)
	v.SetDefault("parser.host", convert.DefaultHost)
	v.SetDefault("parser.token", "")
	v.SetDefault("parser.trigger_path", convert.DefaultTriggerPath)
	v.SetDefault("parser.result_path", convert.DefaultResultPath)

	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.provider", string(types.ProviderOpenAI))
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")

	v.SetDefault("extract.fields_file", "")
	v.SetDefault("extract.llm_clean", false)

	def := resilience.DefaultConfig()
	v.SetDefault("breaker.enabled", def.Enabled)
	v.SetDefault("breaker.min_requests", def.MinRequests)
	v.SetDefault("breaker.failure_ratio", def.FailureRatio)
	v.SetDefault("breaker.open_timeout", def.OpenTimeout)

	for _, key := range []string{"identifiers", "library", "parsed", "cleaned", "info", "exports"} {
		v.SetDefault("paths."+key, "")
	}
	v.SetDefault("ledger.path", "")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// bindPlainEnv accepts the unprefixed variable names used by existing
// deployments alongside the PAPER_READER_ ones.
func bindPlainEnv(v *viper.Viper) {
	binds := map[string][]string{
		"llm.api_key":   {"PAPER_READER_LLM_API_KEY", "OPENAI_API_KEY"},
		"llm.base_url":  {"PAPER_READER_LLM_BASE_URL", "OPENAI_BASE_URL"},
		"llm.model":     {"PAPER_READER_LLM_MODEL", "OPENAI_MODEL"},
		"fetch.api_key": {"PAPER_READER_FETCH_API_KEY", "ELSEVIER_API_KEY"},
		"parser.host":   {"PAPER_READER_PARSER_HOST", "UNIPARSER_HOST"},
		"parser.token":  {"PAPER_READER_PARSER_TOKEN", "UNIPARSER_TOKEN"},
	}
	for key, envs := range binds {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// loadConfig reads the pipeline configuration, filling credentials from
// .secrets/ and unset paths from the data directory layout.
func loadConfig(v *viper.Viper) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	cfg.Fetch.APIKey = secretDefault(secrets.KeyElsevier, cfg.Fetch.APIKey)
	cfg.Parser.Token = secretDefault(secrets.KeyUniParser, cfg.Parser.Token)
	switch cfg.LLM.Provider {
	case types.ProviderAnthropic:
		cfg.LLM.APIKey = secretDefault(secrets.KeyAnthropic, cfg.LLM.APIKey)
	case types.ProviderOpenAI, "":
		cfg.LLM.Provider = types.ProviderOpenAI
		cfg.LLM.APIKey = secretDefault(secrets.KeyOpenAI, cfg.LLM.APIKey)
	default:
		return cfg, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	cfg.Paths = fillPaths(cfg.Paths, pipeline.DefaultPaths(v.GetString("data_dir")))
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = filepath.Join(v.GetString("data_dir"), ledgerFile)
	}
	return cfg, nil
}

func fillPaths(p, def types.PathsConfig) types.PathsConfig {
	pick := func(s, d string) string {
		if s == "" {
			return d
		}
		return s
	}
	return types.PathsConfig{
		Identifiers: pick(p.Identifiers, def.Identifiers),
		Library:     pick(p.Library, def.Library),
		Parsed:      pick(p.Parsed, def.Parsed),
		Cleaned:     pick(p.Cleaned, def.Cleaned),
		Info:        pick(p.Info, def.Info),
		Exports:     pick(p.Exports, def.Exports),
	}
}

// app holds the long-lived pieces shared by every run of one process.
type app struct {
	cfg      types.PipelineConfig
	log      logrus.FieldLogger
	schema   types.Schema
	breakers *resilience.Breakers
	metrics  *metrics.Metrics
	ledger   *ledger.Ledger
}

// newApp loads configuration and opens the ledger. Callers must Close it.
func newApp(v *viper.Viper, withMetrics bool) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	schema := extract.DefaultSchema()
	if cfg.Extract.FieldsFile != "" {
		schema, err = extract.LoadSchema(cfg.Extract.FieldsFile)
		if err != nil {
			return nil, err
		}
	}

	if err := pipeline.EnsureDirs(cfg.Paths); err != nil {
		return nil, err
	}

	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		schema:   schema,
		breakers: resilience.New(cfg.Breaker, log),
		ledger:   l,
	}
	if withMetrics {
		a.metrics = metrics.New()
	}
	return a, nil
}

func (a *app) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

// withOverrides applies per-run credentials on top of the loaded config.
func (a *app) withOverrides(o server.Overrides) types.PipelineConfig {
	cfg := a.cfg
	if o.OpenAIAPIKey != "" {
		cfg.LLM.APIKey = o.OpenAIAPIKey
		cfg.LLM.Provider = types.ProviderOpenAI
	}
	if o.OpenAIBaseURL != "" {
		cfg.LLM.BaseURL = o.OpenAIBaseURL
	}
	if o.ElsevierAPIKey != "" {
		cfg.Fetch.APIKey = o.ElsevierAPIKey
	}
	return cfg
}

func (a *app) parser(cfg types.PipelineConfig) *convert.Adapter {
	return convert.NewAdapter(convert.NewUniParser(nil, cfg.Parser), a.breakers, a.log)
}

// runner wires every stage for one run.
func (a *app) runner(cfg types.PipelineConfig, progress io.Writer, onStart func(runID string)) *pipeline.Runner {
	completer := extract.NewChatCompleter(cfg.LLM, a.log)
	engine := extract.NewEngine(completer, a.breakers, a.log)

	opts := pipeline.Options{
		Fetcher:   acquire.NewFetcher(nil, cfg.Fetch, a.log),
		Parser:    a.parser(cfg),
		Extractor: engine,
		Ledger:    a.ledger,
		Metrics:   a.metrics,
		Schema:    a.schema,
		Paths:     cfg.Paths,
		Log:       a.log,
		Progress:  progress,
		OnStart:   onStart,
	}
	if cfg.Extract.LLMClean {
		opts.Cleaner = clean.NewLLMCleaner(engine, a.log)
	}
	return pipeline.NewRunner(opts)
}

// identifiers returns args when given, else the configured identifier
// list. A missing list is an empty run, not an error.
func (a *app) identifiers(args []string) ([]string, error) {
	if len(args) > 0 {
		ids := make([]string, 0, len(args))
		for _, arg := range args {
			if s := strings.TrimSpace(arg); s != "" {
				ids = append(ids, s)
			}
		}
		return ids, nil
	}

	path := a.cfg.Paths.Identifiers
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		a.log.WithField("path", path).Warn("identifier list not found")
		return nil, nil
	}
	ids, err := sheet.ReadIdentifiers(path)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"path": path, "count": len(ids)}).Info("loaded identifiers")
	return ids, nil
}
