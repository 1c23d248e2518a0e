package config

import (
	"fmt"
	"time"
)

// DomainConfig holds the business limits of comparing and exploring layouts
type DomainConfig struct {
	// Comparison defaults
	DefaultLanguage string
	FetchTimeout    time.Duration

	// Explorer limits
	MaxExplorerRoutes   int
	ExplorerConcurrency int
	ExplorerCacheTTL    time.Duration

	// Bootstrap of the upstream clients
	BootstrapAttempts int
	BootstrapDelay    time.Duration

	// Feature flags
	EnableItemInfo    bool
	EnableExplorer    bool
	UseDevelopmentCtx bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultLanguage: "en",
		FetchTimeout:    15 * time.Second,

		MaxExplorerRoutes:   50,
		ExplorerConcurrency: 4,
		ExplorerCacheTTL:    60 * time.Second,

		BootstrapAttempts: 3,
		BootstrapDelay:    time.Second,

		EnableItemInfo:    true,
		EnableExplorer:    true,
		UseDevelopmentCtx: false,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Tighter fan-out against the shared edge endpoint
	config.MaxExplorerRoutes = 25
	config.ExplorerConcurrency = 3

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxExplorerRoutes = 200
	config.ExplorerCacheTTL = 5 * time.Second
	config.UseDevelopmentCtx = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.DefaultLanguage == "" {
		return fmt.Errorf("default language must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxExplorerRoutes < 1 {
		return fmt.Errorf("max explorer routes must be at least 1, got %d", c.MaxExplorerRoutes)
	}
	if c.ExplorerConcurrency < 1 {
		return fmt.Errorf("explorer concurrency must be at least 1, got %d", c.ExplorerConcurrency)
	}
	if c.BootstrapAttempts < 1 {
		return fmt.Errorf("bootstrap attempts must be at least 1, got %d", c.BootstrapAttempts)
	}
	return nil
}
