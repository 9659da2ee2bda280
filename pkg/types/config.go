package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-reader/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for the article fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the content API credential. Empty is a valid state: the
	// fetcher then reports every article as absent without network I/O.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// URLTemplate builds the request URL; {doi} and {key} are substituted.
	URLTemplate string `json:"url_template" yaml:"url_template" mapstructure:"url_template"`

	// MaxRetries is the total number of attempts for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the fixed delay between attempts (default 3s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// PlaceholderOnMissingKey writes an empty marker file at the
	// destination when no APIKey is configured.
	PlaceholderOnMissingKey bool `json:"placeholder_on_missing_key" yaml:"placeholder_on_missing_key" mapstructure:"placeholder_on_missing_key"`
}

// ParserConfig holds settings for the remote structural-parsing service.
type ParserConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Host is the parser service base URL.
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// Token is the session token shared by the trigger and result calls.
	Token string `json:"-" yaml:"-" mapstructure:"token"`

	// TriggerPath and ResultPath are appended to Host.
	TriggerPath string `json:"trigger_path" yaml:"trigger_path" mapstructure:"trigger_path"`
	ResultPath  string `json:"result_path" yaml:"result_path" mapstructure:"result_path"`
}

// LLMProvider selects the chat API used when a credential is configured.
type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the wire protocol: openai (default, also DeepSeek) or anthropic.
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider's API root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for the AI API. Empty selects stub mode.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	// FieldsFile is an optional YAML mapping of field name to description
	// replacing the default schema. Mapping order is output order.
	FieldsFile string `json:"fields_file,omitempty" yaml:"fields_file,omitempty" mapstructure:"fields_file"`

	// LLMClean enables LLM-assisted cleanup of XML sources whose parsed
	// narrative came back empty.
	LLMClean bool `json:"llm_clean" yaml:"llm_clean" mapstructure:"llm_clean"`
}

// BreakerConfig tunes the circuit breakers around the parser and LLM calls.
type BreakerConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MinRequests  uint32        `json:"min_requests" yaml:"min_requests" mapstructure:"min_requests"`
	FailureRatio float64       `json:"failure_ratio" yaml:"failure_ratio" mapstructure:"failure_ratio"`
	OpenTimeout  time.Duration `json:"open_timeout" yaml:"open_timeout" mapstructure:"open_timeout"`
}

// PathsConfig lays out the input and output directories of a run.
type PathsConfig struct {
	// Identifiers is the identifier list (.xlsx with a doi column, or .txt).
	Identifiers string `json:"identifiers" yaml:"identifiers" mapstructure:"identifiers"`

	// Library holds caller-supplied PDFs named {safe_identifier}.pdf.
	Library string `json:"library" yaml:"library" mapstructure:"library"`

	Parsed  string `json:"parsed" yaml:"parsed" mapstructure:"parsed"`
	Cleaned string `json:"cleaned" yaml:"cleaned" mapstructure:"cleaned"`
	Info    string `json:"info" yaml:"info" mapstructure:"info"`
	Exports string `json:"exports" yaml:"exports" mapstructure:"exports"`
}

// LedgerConfig locates the sqlite run ledger. An empty Path disables it.
type LedgerConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig selects the log level and output format (json or text).
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Fetch   FetchConfig      `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Parser  ParserConfig     `json:"parser" yaml:"parser" mapstructure:"parser"`
	LLM     AIConfig         `json:"llm" yaml:"llm" mapstructure:"llm"`
	Extract ExtractionConfig `json:"extract" yaml:"extract" mapstructure:"extract"`
	Breaker BreakerConfig    `json:"breaker" yaml:"breaker" mapstructure:"breaker"`
	Paths   PathsConfig      `json:"paths" yaml:"paths" mapstructure:"paths"`
	Ledger  LedgerConfig     `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Server  ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Log     LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
