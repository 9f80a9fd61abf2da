package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/platform/resilience"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	LogLevel           logging.Level
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	SwaggerEnabled     bool

	DBURL                   string
	DBDisablePreparedBinary bool

	RedisURL       string
	RedisKeyPrefix string

	KafkaBrokers          []string
	KafkaMatchEventsTopic string

	FootballDataBaseURL    string
	FootballDataToken      string
	FootballDataTimeout    time.Duration
	FootballDataMaxRetries int
	FootballDataCircuit    resilience.CircuitBreakerConfig

	SyncSecret  string
	AdminSecret string

	SyncDayLocation      *time.Location
	SyncFinishedLookback time.Duration
	SyncFeedWindowMargin time.Duration
	SyncLockTTL          time.Duration

	AutoSyncEnabled bool
	AutoSyncTick    time.Duration

	CronEnabled            bool
	CronSyncSpec           string
	CronPendingScoringSpec string
	PendingScoringLookback time.Duration

	ScoringWorkers   int
	SettingsCacheTTL time.Duration

	QStashEnabled       bool
	QStashBaseURL       string
	QStashToken         string
	QStashTargetBaseURL string
	QStashRetries       int
	QStashCircuit       resilience.CircuitBreakerConfig

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	PprofEnabled bool
	PprofAddr    string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                 appEnv,
		ServiceName:            getEnv("APP_SERVICE_NAME", "prediction-pool-api"),
		ServiceVersion:         getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:               getEnv("APP_HTTP_ADDR", ":8080"),
		LogLevel:               logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:     splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DBURL:                  strings.TrimSpace(getEnv("DB_URL", "")),
		RedisURL:               strings.TrimSpace(getEnv("REDIS_URL", "")),
		RedisKeyPrefix:         strings.TrimSpace(getEnv("REDIS_KEY_PREFIX", "prediction-pool")),
		KafkaBrokers:           splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaMatchEventsTopic:  strings.TrimSpace(getEnv("KAFKA_MATCH_EVENTS_TOPIC", "match.finished")),
		FootballDataBaseURL:    strings.TrimSpace(getEnv("FOOTBALL_DATA_BASE_URL", "https://api.football-data.org/v4")),
		FootballDataToken:      strings.TrimSpace(getEnv("FOOTBALL_DATA_TOKEN", "")),
		SyncSecret:             strings.TrimSpace(getEnv("SYNC_SECRET", "")),
		AdminSecret:            strings.TrimSpace(getEnv("ADMIN_SECRET", "")),
		CronSyncSpec:           strings.TrimSpace(getEnv("CRON_SYNC_SPEC", "*/5 * * * *")),
		CronPendingScoringSpec: strings.TrimSpace(getEnv("CRON_PENDING_SCORING_SPEC", "*/15 * * * *")),
		QStashBaseURL:          strings.TrimSpace(getEnv("QSTASH_BASE_URL", "https://qstash.upstash.io")),
		QStashToken:            strings.TrimSpace(getEnv("QSTASH_TOKEN", "")),
		QStashTargetBaseURL:    strings.TrimSpace(getEnv("QSTASH_TARGET_BASE_URL", "")),
		PprofAddr:              strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		PyroscopeServerAddress: strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(
			getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""),
		),
	}
	if cfg.AdminSecret == "" {
		cfg.AdminSecret = cfg.SyncSecret
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	if cfg.ReadTimeout, err = positiveDuration("APP_READ_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}
	// force-update streams the whole cycle on one response
	if cfg.WriteTimeout, err = positiveDuration("APP_WRITE_TIMEOUT", "120s"); err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}
	if cfg.SwaggerEnabled, err = parseBool("SWAGGER_ENABLED", swaggerDefault); err != nil {
		return Config{}, err
	}

	if cfg.DBDisablePreparedBinary, err = parseBool("DB_DISABLE_PREPARED_BINARY_RESULT", "true"); err != nil {
		return Config{}, err
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaMatchEventsTopic == "" {
		return Config{}, fmt.Errorf("KAFKA_MATCH_EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}

	if cfg.FootballDataTimeout, err = positiveDuration("FOOTBALL_DATA_TIMEOUT", "15s"); err != nil {
		return Config{}, err
	}
	cfg.FootballDataMaxRetries, err = getEnvAsInt("FOOTBALL_DATA_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_MAX_RETRIES: %w", err)
	}
	if cfg.FootballDataMaxRetries < 0 {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_MAX_RETRIES must be >= 0")
	}
	if cfg.FootballDataCircuit, err = loadCircuit("FOOTBALL_DATA"); err != nil {
		return Config{}, err
	}

	location := strings.TrimSpace(getEnv("SYNC_DAY_LOCATION", "UTC"))
	cfg.SyncDayLocation, err = time.LoadLocation(location)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_DAY_LOCATION: %w", err)
	}
	cfg.SyncFinishedLookback, err = time.ParseDuration(getEnv("SYNC_FINISHED_LOOKBACK", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_FINISHED_LOOKBACK: %w", err)
	}
	if cfg.SyncFinishedLookback < 0 {
		return Config{}, fmt.Errorf("SYNC_FINISHED_LOOKBACK must be >= 0")
	}
	if cfg.SyncFeedWindowMargin, err = positiveDuration("SYNC_FEED_WINDOW_MARGIN", "72h"); err != nil {
		return Config{}, err
	}
	if cfg.SyncLockTTL, err = positiveDuration("SYNC_LOCK_TTL", "2m"); err != nil {
		return Config{}, err
	}

	if cfg.AutoSyncEnabled, err = parseBool("AUTO_SYNC_ENABLED", "false"); err != nil {
		return Config{}, err
	}
	if cfg.AutoSyncTick, err = positiveDuration("AUTO_SYNC_TICK", "100ms"); err != nil {
		return Config{}, err
	}

	if cfg.CronEnabled, err = parseBool("CRON_ENABLED", "false"); err != nil {
		return Config{}, err
	}
	if cfg.CronEnabled && cfg.CronSyncSpec == "" && cfg.CronPendingScoringSpec == "" {
		return Config{}, fmt.Errorf("CRON_SYNC_SPEC or CRON_PENDING_SCORING_SPEC is required when CRON_ENABLED=true")
	}
	if cfg.PendingScoringLookback, err = positiveDuration("PENDING_SCORING_LOOKBACK", "72h"); err != nil {
		return Config{}, err
	}

	cfg.ScoringWorkers, err = getEnvAsInt("SCORING_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORING_WORKERS: %w", err)
	}
	if cfg.ScoringWorkers < 1 {
		return Config{}, fmt.Errorf("SCORING_WORKERS must be >= 1")
	}
	if cfg.SettingsCacheTTL, err = positiveDuration("SETTINGS_CACHE_TTL", "30s"); err != nil {
		return Config{}, err
	}

	if cfg.QStashEnabled, err = parseBool("QSTASH_ENABLED", "false"); err != nil {
		return Config{}, err
	}
	cfg.QStashRetries, err = getEnvAsInt("QSTASH_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_RETRIES: %w", err)
	}
	if cfg.QStashRetries < 0 {
		return Config{}, fmt.Errorf("QSTASH_RETRIES must be >= 0")
	}
	if cfg.QStashCircuit, err = loadCircuit("QSTASH"); err != nil {
		return Config{}, err
	}
	if cfg.QStashEnabled {
		if cfg.QStashToken == "" {
			return Config{}, fmt.Errorf("QSTASH_TOKEN is required when QSTASH_ENABLED=true")
		}
		if cfg.QStashTargetBaseURL == "" {
			return Config{}, fmt.Errorf("QSTASH_TARGET_BASE_URL is required when QSTASH_ENABLED=true")
		}
		if cfg.SyncSecret == "" {
			return Config{}, fmt.Errorf("SYNC_SECRET is required when QSTASH_ENABLED=true")
		}
	}

	if cfg.UptraceEnabled, err = parseBool("UPTRACE_ENABLED", "false"); err != nil {
		return Config{}, err
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	if cfg.PprofEnabled, err = parseBool("PPROF_ENABLED", "false"); err != nil {
		return Config{}, err
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	if cfg.PyroscopeEnabled, err = parseBool("PYROSCOPE_ENABLED", "false"); err != nil {
		return Config{}, err
	}
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	if cfg.PyroscopeUploadRate, err = positiveDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return Config{}, err
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

// UseMemoryStore reports whether repositories run in-process instead of on Postgres.
func (c Config) UseMemoryStore() bool {
	return strings.TrimSpace(c.DBURL) == ""
}

func loadCircuit(prefix string) (resilience.CircuitBreakerConfig, error) {
	defaults := resilience.DefaultCircuitBreakerConfig()

	var (
		circuit resilience.CircuitBreakerConfig
		err     error
	)
	if circuit.Enabled, err = parseBool(prefix+"_CIRCUIT_ENABLED", "true"); err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}
	if circuit.FailureThreshold, err = getEnvAsInt(prefix+"_CIRCUIT_FAILURE_COUNT", defaults.FailureThreshold); err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_FAILURE_COUNT: %w", prefix, err)
	}
	if circuit.OpenTimeout, err = positiveDuration(prefix+"_CIRCUIT_OPEN_TIMEOUT", defaults.OpenTimeout.String()); err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}
	if circuit.HalfOpenMaxReq, err = getEnvAsInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", defaults.HalfOpenMaxReq); err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_HALF_OPEN_MAX_REQ: %w", prefix, err)
	}
	if err := circuit.Validate(prefix); err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}
	return circuit, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseBool(key, fallback string) (bool, error) {
	out, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func positiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
