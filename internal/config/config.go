package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	cfg *Config
	mu  sync.RWMutex
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Email     EmailConfig     `mapstructure:"email"`
	AI        AIConfig        `mapstructure:"ai"`
	Firecrawl FirecrawlConfig `mapstructure:"firecrawl"`
	Ticket    TicketConfig    `mapstructure:"ticket"`
}

type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite3 or mysql
	Path            string        `mapstructure:"path"`   // sqlite file
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type AIConfig struct {
	APIKey               string        `mapstructure:"api_key"`
	Model                string        `mapstructure:"model"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	MinDocContentLength  int           `mapstructure:"min_doc_content_length"`
	MaxQuickResponseDocs int           `mapstructure:"max_quick_response_docs"`
	MaxReplyDocs         int           `mapstructure:"max_reply_docs"`
	MaxRelevantDocs      int           `mapstructure:"max_relevant_docs"`
	SearchTermLimit      int           `mapstructure:"search_term_limit"`
	SnippetLength        int           `mapstructure:"snippet_length"`
}

type FirecrawlConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TicketConfig struct {
	AnalysisDelay     time.Duration `mapstructure:"analysis_delay"`
	SummaryDelay      time.Duration `mapstructure:"summary_delay"`
	IntegritySchedule string        `mapstructure:"integrity_schedule"`
	AutoAssign        bool          `mapstructure:"auto_assign"`
}

// Load reads configuration from the given yaml file, with DESKFLOW_* env
// variables overriding file values. Safe to call once at startup.
func Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DESKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults + env carry the day.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	cfg = loaded
	mu.Unlock()
	return nil
}

// Get returns the loaded configuration, or nil if Load was never called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Default returns a configuration populated with defaults only, for tests
// and tooling that never call Load.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	c := &Config{}
	_ = v.Unmarshal(c)
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "deskflow")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "deskflow.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.name", "deskflow")
	v.SetDefault("database.user", "deskflow")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.from", "support@deskflow.local")
	v.SetDefault("email.smtp.port", 587)

	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.request_timeout", 30*time.Second)
	// Empirical thresholds carried over from the first deployment; tune per
	// knowledge-base shape rather than treating them as invariants.
	v.SetDefault("ai.min_doc_content_length", 100)
	v.SetDefault("ai.max_quick_response_docs", 3)
	v.SetDefault("ai.max_reply_docs", 2)
	v.SetDefault("ai.max_relevant_docs", 5)
	v.SetDefault("ai.search_term_limit", 100)
	v.SetDefault("ai.snippet_length", 200)

	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev")
	v.SetDefault("firecrawl.timeout", 2*time.Minute)

	v.SetDefault("ticket.analysis_delay", 2*time.Second)
	v.SetDefault("ticket.summary_delay", 4*time.Second)
	v.SetDefault("ticket.integrity_schedule", "0 0 3 * * *")
	v.SetDefault("ticket.auto_assign", true)
}

// DSN builds the database connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	default:
		return d.Path
	}
}
