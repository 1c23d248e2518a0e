package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timmarsh1987/XMCVisualiser/pkg/utils"
)

// DefaultGraphQLEndpoint is the Experience Edge endpoint serving both
// preview and live content
const DefaultGraphQLEndpoint = "https://edge-platform.sitecorecloud.io/v1/content/api/graphql/v1"

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string        `yaml:"serverAddress" validate:"required"`
	Environment     string        `yaml:"environment" validate:"oneof=development staging production test"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"min=0"`

	// Sitecore GraphQL
	PreviewEndpoint   string        `yaml:"previewEndpoint" validate:"required,url"`
	LiveEndpoint      string        `yaml:"liveEndpoint" validate:"required,url"`
	GraphQLTimeout    time.Duration `yaml:"graphqlTimeout" validate:"min=0"`
	PreviewContextID  string        `yaml:"previewContextId"`
	LiveContextID     string        `yaml:"liveContextId"`
	DefaultSite       string        `yaml:"defaultSite"`
	DefaultLanguage   string        `yaml:"defaultLanguage" validate:"required"`
	TenantsFile       string        `yaml:"tenantsFile"`
	WatchTenants      bool          `yaml:"watchTenants"`
	BreakerFailures   int           `yaml:"breakerFailures" validate:"min=1"`
	BreakerOpenPeriod time.Duration `yaml:"breakerOpenPeriod" validate:"min=0"`

	// Explorer
	ExplorerMaxRoutes   int           `yaml:"explorerMaxRoutes" validate:"min=1,max=1000"`
	ExplorerConcurrency int           `yaml:"explorerConcurrency" validate:"min=1,max=64"`
	ExplorerCacheTTL    time.Duration `yaml:"explorerCacheTtl" validate:"min=0"`

	// AWS and Lambda
	AWSRegion          string `yaml:"awsRegion"`
	IsLambda           bool   `yaml:"isLambda"`
	LambdaFunctionName string `yaml:"lambdaFunctionName"`
	MetricsNamespace   string `yaml:"metricsNamespace" validate:"required"`

	// Logging
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	// Authentication
	JWTSecret   string `yaml:"jwtSecret"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`

	// HTTP edge
	CORSAllowedOrigins []string      `yaml:"corsAllowedOrigins"`
	RateLimitRequests  int           `yaml:"rateLimitRequests" validate:"min=0"`
	RateLimitWindow    time.Duration `yaml:"rateLimitWindow" validate:"min=0"`

	// Observability
	OTLPEndpoint    string  `yaml:"otlpEndpoint"`
	TraceSampleRate float64 `yaml:"traceSampleRate" validate:"min=0,max=1"`

	// Feature flags
	EnableMetrics  bool `yaml:"enableMetrics"`
	EnableTracing  bool `yaml:"enableTracing"`
	EnableCORS     bool `yaml:"enableCors"`
	EnableItemInfo bool `yaml:"enableItemInfo"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		ServerAddress:   ":8080",
		Environment:     "development",
		ShutdownTimeout: 10 * time.Second,

		PreviewEndpoint:   DefaultGraphQLEndpoint,
		LiveEndpoint:      DefaultGraphQLEndpoint,
		GraphQLTimeout:    15 * time.Second,
		DefaultLanguage:   "en",
		WatchTenants:      true,
		BreakerFailures:   5,
		BreakerOpenPeriod: 30 * time.Second,

		ExplorerMaxRoutes:   50,
		ExplorerConcurrency: 4,
		ExplorerCacheTTL:    60 * time.Second,

		AWSRegion:        "us-east-1",
		MetricsNamespace: "XMCVisualiser",

		LogLevel: "info",

		JWTIssuer: "xmc-visualiser",

		CORSAllowedOrigins: []string{"*"},
		RateLimitRequests:  120,
		RateLimitWindow:    time.Minute,

		TraceSampleRate: 1,

		EnableCORS:     true,
		EnableItemInfo: true,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE and environment variables, in increasing priority
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFrom is LoadConfig with an explicit YAML file; an empty path
// skips the file layer
func LoadConfigFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.PreviewEndpoint = getEnv("PREVIEW_GRAPHQL_ENDPOINT", c.PreviewEndpoint)
	c.LiveEndpoint = getEnv("LIVE_GRAPHQL_ENDPOINT", c.LiveEndpoint)
	c.GraphQLTimeout = getEnvDuration("GRAPHQL_TIMEOUT", c.GraphQLTimeout)
	c.PreviewContextID = getEnv("PREVIEW_CONTEXT_ID", c.PreviewContextID)
	c.LiveContextID = getEnv("LIVE_CONTEXT_ID", c.LiveContextID)
	c.DefaultSite = getEnv("DEFAULT_SITE", c.DefaultSite)
	c.DefaultLanguage = getEnv("DEFAULT_LANGUAGE", c.DefaultLanguage)
	c.TenantsFile = getEnv("TENANTS_FILE", c.TenantsFile)
	c.WatchTenants = getEnvBool("WATCH_TENANTS", c.WatchTenants)
	c.BreakerFailures = getEnvInt("BREAKER_FAILURES", c.BreakerFailures)
	c.BreakerOpenPeriod = getEnvDuration("BREAKER_OPEN_PERIOD", c.BreakerOpenPeriod)

	c.ExplorerMaxRoutes = getEnvInt("EXPLORER_MAX_ROUTES", c.ExplorerMaxRoutes)
	c.ExplorerConcurrency = getEnvInt("EXPLORER_CONCURRENCY", c.ExplorerConcurrency)
	c.ExplorerCacheTTL = getEnvDuration("EXPLORER_CACHE_TTL", c.ExplorerCacheTTL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || c.LambdaFunctionName != "")
	c.MetricsNamespace = getEnv("METRICS_NAMESPACE", c.MetricsNamespace)

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTAudience = getEnv("JWT_AUDIENCE", c.JWTAudience)

	c.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimitWindow)

	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.TraceSampleRate = getEnvFloat("TRACE_SAMPLE_RATE", c.TraceSampleRate)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.EnableItemInfo = getEnvBool("ENABLE_ITEM_INFO", c.EnableItemInfo)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.IsProduction() && c.TenantsFile == "" && c.PreviewContextID == "" && c.LiveContextID == "" {
		return fmt.Errorf("invalid configuration: TENANTS_FILE or context IDs are required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuthEnabled reports whether API requests need a bearer token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or whole seconds ("15")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
