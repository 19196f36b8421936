// config - источник загрузки конфигурации клиента leiturista.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoreBolt   = "bolt"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	API      APIConfig     `yaml:"api"`
	Status   StatusConfig  `yaml:"status"`
	Session  SessionConfig `yaml:"session"`
	Store    StoreConfig   `yaml:"store"`
	Photo    PhotoConfig   `yaml:"photo"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig - локальный бэкенд мобильного интерфейса (команда serve).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// APIConfig - удалённое API коллекций.
type APIConfig struct {
	BaseURL   string          `yaml:"base_url"   env:"API_BASE_URL"   env-default:"http://localhost:8055"`
	UserAgent string          `yaml:"user_agent" env:"API_USER_AGENT" env-default:"leiturista-hidro"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// EndpointsConfig - пути эндпойнтов относительно BaseURL.
type EndpointsConfig struct {
	Login        string `yaml:"login"        env:"AUTH_LOGIN_ENDPOINT"        env-default:"/auth/login"`
	Refresh      string `yaml:"refresh"      env:"AUTH_REFRESH_ENDPOINT"      env-default:"/auth/refresh"`
	Logout       string `yaml:"logout"       env:"AUTH_LOGOUT_ENDPOINT"       env-default:"/auth/logout"`
	Files        string `yaml:"files"        env:"FILES_ENDPOINT"             env-default:"/files"`
	Condominiums string `yaml:"condominiums" env:"CONDOMINIOS_ENDPOINT"       env-default:"/items/condominios"`
	Readings     string `yaml:"readings"     env:"LEITURAS_UNIDADES_ENDPOINT" env-default:"/items/leituras_unidades"`
}

// StatusConfig - значения поля status в коллекции leituras_unidades.
type StatusConfig struct {
	Pending   string `yaml:"pending"   env:"STATUS_PENDENTE"   env-default:"pendente"`
	Submitted string `yaml:"submitted" env:"STATUS_EM_ANALISE" env-default:"em análise"`
}

// SessionConfig - параметры жизненного цикла токенов.
type SessionConfig struct {
	RefreshThreshold time.Duration `yaml:"refresh_threshold" env:"SESSION_REFRESH_THRESHOLD" env-default:"5m"`
	WatchdogInterval time.Duration `yaml:"watchdog_interval" env:"SESSION_WATCHDOG_INTERVAL" env-default:"10s"`
	// RefreshEvery - плановое продление сессии; 0 отключает.
	RefreshEvery time.Duration `yaml:"refresh_every" env:"SESSION_REFRESH_EVERY" env-default:"14m"`
}

// StoreConfig - где живут токены между запусками.
type StoreConfig struct {
	Driver    string `yaml:"driver"     env:"STORE_DRIVER"     env-default:"bolt"`
	BoltPath  string `yaml:"bolt_path"  env:"STORE_BOLT_PATH"  env-default:"leiturista.db"`
	RedisURL  string `yaml:"redis_url"  env:"STORE_REDIS_URL"  env-default:"redis://localhost:6379/0"`
	KeyPrefix string `yaml:"key_prefix" env:"STORE_KEY_PREFIX" env-default:"leiturista:"`
}

// PhotoConfig - нормализация фото счётчика перед загрузкой.
type PhotoConfig struct {
	MaxSide int `yaml:"max_side" env:"PHOTO_MAX_SIDE" env-default:"1600"`
	Quality int `yaml:"quality"  env:"PHOTO_QUALITY"  env-default:"85"`
}

// TimeoutConfig - таймауты исходящих запросов и входящих запросов UI.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"30s"`
	Service time.Duration `yaml:"service" env:"SERVICE"         env-default:"90s"`
}

// MustLoad - паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return validate(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

func validate(cfg *Config) (*Config, error) {
	switch cfg.Store.Driver {
	case StoreBolt, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api base_url is empty")
	}

	if cfg.Status.Pending == "" || cfg.Status.Submitted == "" {
		return nil, fmt.Errorf("status values must not be empty")
	}

	return cfg, nil
}
