package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Ledger struct {
		GatewayURLs       []string `yaml:"gateway_urls"`
		FailoverThreshold int      `yaml:"failover_threshold"`
	} `yaml:"ledger"`
	EventStream struct {
		WSEndpoint string `yaml:"ws_endpoint"`
		Topic      string `yaml:"topic"`
	} `yaml:"event_stream"`
	Content struct {
		APIURL string `yaml:"api_url"`
	} `yaml:"content"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if len(cfg.Ledger.GatewayURLs) == 0 {
		return nil, errors.New("ledger.gateway_urls is required")
	}
	if cfg.EventStream.WSEndpoint == "" || cfg.EventStream.Topic == "" {
		return nil, errors.New("event_stream config is incomplete")
	}
	if cfg.Content.APIURL == "" {
		return nil, errors.New("content.api_url is required")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("LEDGER_GATEWAY_URLS"); v != "" {
		cfg.Ledger.GatewayURLs = splitCommaList(v)
	}
	if v := os.Getenv("LEDGER_FAILOVER_THRESHOLD"); v != "" {
		cfg.Ledger.FailoverThreshold = atoiOr(cfg.Ledger.FailoverThreshold, v)
	}
	if v := os.Getenv("EVENT_STREAM_WS_ENDPOINT"); v != "" {
		cfg.EventStream.WSEndpoint = v
	}
	if v := os.Getenv("EVENT_STREAM_TOPIC"); v != "" {
		cfg.EventStream.Topic = v
	}
	if v := os.Getenv("CONTENT_API_URL"); v != "" {
		cfg.Content.APIURL = v
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
