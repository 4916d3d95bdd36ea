package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		Dir string `yaml:"dir"`
	} `yaml:"quiz"`
	Session Session `yaml:"session"`
	Badges  struct {
		Path string `yaml:"path"`
	} `yaml:"badges"`
	Events Events `yaml:"events"`
	Log    Log    `yaml:"log"`
}

// Session tunes session pacing and mode sizes.
type Session struct {
	FeedbackDelay string `yaml:"feedbackDelay"`
	AdvanceDelay  string `yaml:"advanceDelay"`
	AutoAdvance   *bool  `yaml:"autoAdvance"`
	ErrorSessions int    `yaml:"errorSessions"`
	Presets       struct {
		Short  int `yaml:"short"`
		Medium int `yaml:"medium"`
		Long   int `yaml:"long"`
	} `yaml:"presets"`
}

type Events struct {
	Publisher string `yaml:"publisher"` // none, gochannel or kafka
	Brokers   string `yaml:"brokers"`
	Topic     string `yaml:"topic"`
}

// BrokerList splits the comma separated broker addresses.
func (e Events) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML config from path. Missing values get defaults.
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

func (c *Config) applyDefaults() {
	s := &c.Session
	if s.FeedbackDelay == "" {
		s.FeedbackDelay = "1200ms"
	}
	if s.AdvanceDelay == "" {
		s.AdvanceDelay = "350ms"
	}
	if s.AutoAdvance == nil {
		on := true
		s.AutoAdvance = &on
	}
	if s.ErrorSessions <= 0 {
		s.ErrorSessions = 3
	}
	if s.Presets.Short <= 0 {
		s.Presets.Short = 10
	}
	if s.Presets.Medium <= 0 {
		s.Presets.Medium = 20
	}
	if s.Presets.Long <= 0 {
		s.Presets.Long = 40
	}
	if c.Events.Publisher == "" {
		c.Events.Publisher = "none"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "quiz-events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
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
