package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Log      LogConfig
	Auth     AuthConfig
	Platform PlatformConfig
	Engine   EngineConfig
	Memory   MemoryConfig
	LLM      LLMConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
	TriggerRateLimit   int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig protects the admin API. An empty secret leaves /api/v1 unmounted.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PlatformConfig holds the session material for the platform's private web API.
type PlatformConfig struct {
	BaseURL        string
	Username       string
	Cookies        string
	BearerToken    string
	UserAgent      string
	RequestTimeout time.Duration
	MaxRetries     int
}

// ReplyTarget is an account the bot proactively engages with.
type ReplyTarget struct {
	SearchTerm    string `json:"search_term" koanf:"search_term" validate:"required"`
	SearchContext string `json:"search_context" koanf:"search_context"`
}

type EngineConfig struct {
	SearchTerms       []string
	ReplyTargets      []ReplyTarget `validate:"dive"`
	MaxReplies        int           `validate:"gte=0"`
	PollInterval      time.Duration
	ReplyGuyInterval  time.Duration
	FollowersInterval time.Duration
	SessionLookback   time.Duration `validate:"gte=0"`
	CursorPath        string        `validate:"required"`
	AdditionalContext string
	DefaultResponse   string
	PostsPerHour      int `validate:"gte=0"`
}

type MemoryConfig struct {
	ShortTermEnabled    bool
	LongTermEnabled     bool
	MaxShortTermMsgs    int
	ShortTermTTLSec     int
	MaxLongTermResults  int
	SimilarityThreshold float64
}

type LLMConfig struct {
	APIKey         string
	Models         []string
	EmbeddingModel string
	Persona        string
}

// Load reads config.yaml (or $CONFIG_FILE), then .env, then the process
// environment. Later sources override earlier ones.
func Load() (*Config, error) {
	k := koanf.New(".")

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: stringList(k, "server.cors.allowed.origins"),
			TriggerRateLimit:   k.Int("server.trigger.rate.limit"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		Auth: AuthConfig{
			JWTSecret: k.String("auth.jwt.secret"),
		},
		Platform: PlatformConfig{
			BaseURL:     k.String("platform.base.url"),
			Username:    k.String("platform.username"),
			Cookies:     k.String("platform.cookies"),
			BearerToken: k.String("platform.bearer.token"),
			UserAgent:   k.String("platform.user.agent"),
			MaxRetries:  k.Int("platform.max.retries"),
		},
		Engine: EngineConfig{
			SearchTerms:       stringList(k, "engine.search.terms"),
			MaxReplies:        k.Int("engine.max.replies"),
			CursorPath:        k.String("engine.cursor.path"),
			AdditionalContext: k.String("engine.additional.context"),
			DefaultResponse:   k.String("engine.default.response"),
			PostsPerHour:      k.Int("engine.posts.per.hour"),
		},
		Memory: MemoryConfig{
			ShortTermEnabled:    boolOr(k, "memory.short.term.enabled", true),
			LongTermEnabled:     boolOr(k, "memory.long.term.enabled", true),
			MaxShortTermMsgs:    k.Int("memory.max.short.term.msgs"),
			ShortTermTTLSec:     k.Int("memory.short.term.ttl.sec"),
			MaxLongTermResults:  k.Int("memory.max.long.term.results"),
			SimilarityThreshold: k.Float64("memory.similarity.threshold"),
		},
		LLM: LLMConfig{
			APIKey:         k.String("llm.api.key"),
			Models:         stringList(k, "llm.models"),
			EmbeddingModel: k.String("llm.embedding.model"),
			Persona:        k.String("llm.persona"),
		},
	}

	targets, err := replyTargets(k, "engine.reply.targets")
	if err != nil {
		return nil, err
	}
	cfg.Engine.ReplyTargets = targets

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TriggerRateLimit == 0 {
		cfg.Server.TriggerRateLimit = 10
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "mentionbot"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "mentionbot"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Platform.BaseURL == "" {
		cfg.Platform.BaseURL = "https://twitter.com"
	}
	if cfg.Platform.MaxRetries == 0 {
		cfg.Platform.MaxRetries = 3
	}
	if cfg.Engine.MaxReplies == 0 {
		cfg.Engine.MaxReplies = 3
	}
	if cfg.Engine.CursorPath == "" {
		cfg.Engine.CursorPath = "last_checked_tweet.json"
	}
	if cfg.Engine.DefaultResponse == "" {
		cfg.Engine.DefaultResponse = "Hi there! I'm Rice "
	}
	if cfg.Memory.MaxShortTermMsgs == 0 {
		cfg.Memory.MaxShortTermMsgs = 20
	}
	if cfg.Memory.ShortTermTTLSec == 0 {
		cfg.Memory.ShortTermTTLSec = 7 * 24 * 3600
	}
	if cfg.Memory.MaxLongTermResults == 0 {
		cfg.Memory.MaxLongTermResults = 5
	}
	if cfg.Memory.SimilarityThreshold == 0 {
		cfg.Memory.SimilarityThreshold = 0.7
	}
	if len(cfg.LLM.Models) == 0 {
		cfg.LLM.Models = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "gemini-embedding-001"
	}

	// Parse durations
	if cfg.Auth.TokenTTL, err = duration(k, "auth.token.ttl", "720h"); err != nil {
		return nil, err
	}
	if cfg.Platform.RequestTimeout, err = duration(k, "platform.request.timeout", "30s"); err != nil {
		return nil, err
	}
	if cfg.Engine.PollInterval, err = duration(k, "engine.poll.interval", "120s"); err != nil {
		return nil, err
	}
	if cfg.Engine.ReplyGuyInterval, err = duration(k, "engine.replyguy.interval", "30m"); err != nil {
		return nil, err
	}
	if cfg.Engine.FollowersInterval, err = duration(k, "engine.followers.interval", "0s"); err != nil {
		return nil, err
	}
	if cfg.Engine.SessionLookback, err = duration(k, "engine.session.lookback", "24h"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func duration(k *koanf.Koanf, path, def string) (time.Duration, error) {
	s := k.String(path)
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

func boolOr(k *koanf.Koanf, path string, def bool) bool {
	if !k.Exists(path) {
		return def
	}
	return k.Bool(path)
}

// stringList accepts a YAML list or a comma-separated string (env vars).
func stringList(k *koanf.Koanf, path string) []string {
	raw, ok := k.Get(path).(string)
	if !ok {
		return k.Strings(path)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// replyTargets accepts a YAML list of maps or a JSON array string (env vars).
func replyTargets(k *koanf.Koanf, path string) ([]ReplyTarget, error) {
	if !k.Exists(path) {
		return nil, nil
	}
	var targets []ReplyTarget
	if raw, ok := k.Get(path).(string); ok {
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(raw), &targets); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return targets, nil
	}
	if err := k.Unmarshal(path, &targets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return targets, nil
}
