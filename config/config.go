// Package config 读取服务端配置。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "CERTGEN_"

// Config controls the certificate HTTP service.
type Config struct {
	Environment        string
	Addr               string
	AssetsDir          string
	FetchTimeout       time.Duration
	MaxBackgroundBytes int64
	Workers            int
	Mail               MailConfig
}

// MailConfig 为邮件服务商配置；Endpoint 为空时不注册发送接口。
type MailConfig struct {
	Endpoint string
	APIKey   string
	From     string
}

func DefaultConfig() Config {
	return Config{
		Environment:        "development",
		Addr:               ":8080",
		AssetsDir:          ".",
		FetchTimeout:       15 * time.Second,
		MaxBackgroundBytes: 32 << 20,
		Workers:            4,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Environment == "" {
		c.Environment = defaults.Environment
	}
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.AssetsDir == "" {
		c.AssetsDir = defaults.AssetsDir
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaults.FetchTimeout
	}
	if c.MaxBackgroundBytes <= 0 {
		c.MaxBackgroundBytes = defaults.MaxBackgroundBytes
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	return c
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// MailEnabled 表示是否配置了邮件服务。
func (c Config) MailEnabled() bool {
	return strings.TrimSpace(c.Mail.Endpoint) != ""
}

// Load 从 CERTGEN_* 环境变量读取配置。
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom 使用给定的查找函数读取配置，未设置的项使用默认值。
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(envPrefix + key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Environment: get("ENV"),
		Addr:        get("ADDR"),
		AssetsDir:   get("ASSETS_DIR"),
		Mail: MailConfig{
			Endpoint: get("MAIL_ENDPOINT"),
			APIKey:   get("MAIL_API_KEY"),
			From:     get("MAIL_FROM"),
		},
	}

	if v := get("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%sFETCH_TIMEOUT 无效: %w", envPrefix, err)
		}
		cfg.FetchTimeout = d
	}
	if v := get("MAX_BACKGROUND_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%sMAX_BACKGROUND_BYTES 无效: %w", envPrefix, err)
		}
		cfg.MaxBackgroundBytes = n
	}
	if v := get("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%sWORKERS 无效: %w", envPrefix, err)
		}
		cfg.Workers = n
	}

	if cfg.Mail.Endpoint != "" && cfg.Mail.From == "" {
		return Config{}, fmt.Errorf("已配置 %sMAIL_ENDPOINT 但缺少 %sMAIL_FROM", envPrefix, envPrefix)
	}
	return cfg.withDefaults(), nil
}
