package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TemplatesConfig struct {
	Path string
}

type EngineConfig struct {
	// MaxConcurrentComposites bounds the CPU-bound worker pool.
	// Zero means one worker per CPU.
	MaxConcurrentComposites int
	QueueDepth              int
	FetchTimeout            time.Duration
	FetchMaxBytes           int64
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	PublicURL string
}

type UsageConfig struct {
	LogRetentionDays int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	CORSOrigins []string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Templates   TemplatesConfig
	Engine      EngineConfig
	Storage     StorageConfig
	Usage       UsageConfig
}

// ArtifactUploadEnabled reports whether generated mockups should be uploaded
// to the object store instead of being returned inline as a data URL.
func (c *AppConfig) ArtifactUploadEnabled() bool {
	return c.Storage.Endpoint != "" && c.Storage.Bucket != ""
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("RIMAGIC")
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvironment(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if ms := v.GetInt("engine.fetchtimeoutms"); ms > 0 {
		cfg.Engine.FetchTimeout = time.Duration(ms) * time.Millisecond
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("loglevel", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 10)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("templates.path", "assets/templates")

	v.SetDefault("engine.maxconcurrentcomposites", 0)
	v.SetDefault("engine.queuedepth", 64)
	v.SetDefault("engine.fetchtimeout", "5s")
	v.SetDefault("engine.fetchmaxbytes", 10*1024*1024)

	v.SetDefault("storage.usessl", true)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("usage.logretentiondays", 90)
}

// bindEnvironment maps the documented flat environment variables onto the
// nested config keys. These win over config file values.
func bindEnvironment(v *viper.Viper) {
	bindings := map[string]string{
		"http.host":                       "HOST",
		"http.port":                       "PORT",
		"postgres.dsn":                    "DATABASE_URL",
		"templates.path":                  "TEMPLATES_PATH",
		"engine.maxconcurrentcomposites":  "MAX_CONCURRENT_COMPOSITES",
		"engine.fetchtimeoutms":           "FETCH_TIMEOUT_MS",
		"engine.fetchmaxbytes":            "FETCH_MAX_BYTES",
		"loglevel":                        "LOG_LEVEL",
		"corsorigins":                     "CORS_ORIGINS",
		"environment":                     "ENVIRONMENT",
		"redis.addr":                      "REDIS_ADDR",
		"redis.password":                  "REDIS_PASSWORD",
		"storage.endpoint":                "STORAGE_ENDPOINT",
		"storage.accesskey":               "STORAGE_ACCESS_KEY",
		"storage.secretkey":               "STORAGE_SECRET_KEY",
		"storage.bucket":                  "STORAGE_BUCKET",
		"storage.publicurl":               "STORAGE_PUBLIC_URL",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}
