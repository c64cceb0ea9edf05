package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Logger  Logger `yaml:"logger"`
	Content struct {
		Source string `yaml:"source"` // bundled | postgres
	} `yaml:"content"`
	Storage struct {
		Backend string `yaml:"backend"` // memory | redis | postgres | sqlite
		Key     string `yaml:"key"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sqlite"`
	Session struct {
		TTL string `yaml:"ttl"` // redis liveness marker lifetime
	} `yaml:"session"`
	Exam Exam `yaml:"exam"`
}

// Logger selects zap encoder and level.
type Logger struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Exam holds mock-exam sampling and pass thresholds.
type Exam struct {
	QuestionsPerSubject int    `yaml:"questions_per_subject"`
	SubjectPassScore    int    `yaml:"subject_pass_score"`
	AveragePassScore    int    `yaml:"average_pass_score"`
	Tick                string `yaml:"tick"`
}

const (
	DefaultStorageKey          = "wrong-answers"
	DefaultQuestionsPerSubject = 20
	DefaultSubjectPassScore    = 40
	DefaultAveragePassScore    = 60
)

// Load reads YAML config from path and fills defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Defaults returns a config usable without a file: bundled content, in-memory storage.
func Defaults() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Content.Source == "" {
		c.Content.Source = "bundled"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.Key == "" {
		c.Storage.Key = DefaultStorageKey
	}
	if c.Exam.QuestionsPerSubject <= 0 {
		c.Exam.QuestionsPerSubject = DefaultQuestionsPerSubject
	}
	if c.Exam.SubjectPassScore <= 0 {
		c.Exam.SubjectPassScore = DefaultSubjectPassScore
	}
	if c.Exam.AveragePassScore <= 0 {
		c.Exam.AveragePassScore = DefaultAveragePassScore
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
