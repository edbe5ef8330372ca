package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Input constraints
	MaxInputLength   int
	MaxFreezeWords   int
	MaxSentenceWords int

	// Diff annotation thresholds
	SentenceOverlapThreshold float64
	WordOverlapThreshold     float64
	MinUnchangedRunWords     int

	// Annotation memo cache
	AnnotationCacheCapacity int

	// Streaming behaviour
	DeferredEventTTL    time.Duration
	MaxDeferredEvents   int
	StreamIdleTolerance time.Duration

	// Replacement history
	MaxUndoDepth int

	// Validation settings
	AllowEmptyInput     bool
	StripFreezeMarkers  bool
	AllowHeadingMarkers bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Input constraints
		MaxInputLength:   25000,
		MaxFreezeWords:   50,
		MaxSentenceWords: 200,

		// Diff annotation thresholds
		SentenceOverlapThreshold: 0.65,
		WordOverlapThreshold:     0.4,
		MinUnchangedRunWords:     7,

		// Annotation memo cache
		AnnotationCacheCapacity: 200,

		// Streaming behaviour
		DeferredEventTTL:    10 * time.Second,
		MaxDeferredEvents:   256,
		StreamIdleTolerance: 0, // no stall timeout at this layer

		// Replacement history
		MaxUndoDepth: 50,

		// Validation settings
		AllowEmptyInput:     false,
		StripFreezeMarkers:  true,
		AllowHeadingMarkers: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Tighter limits for production
	config.MaxInputLength = 15000
	config.MaxDeferredEvents = 128
	config.AllowEmptyInput = false

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxInputLength = 100000
	config.AllowEmptyInput = true
	config.DeferredEventTTL = time.Minute

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
	if c.SentenceOverlapThreshold <= 0 || c.SentenceOverlapThreshold > 1 {
		return fmt.Errorf("sentence overlap threshold must be in (0, 1], got %f", c.SentenceOverlapThreshold)
	}
	if c.WordOverlapThreshold <= 0 || c.WordOverlapThreshold > 1 {
		return fmt.Errorf("word overlap threshold must be in (0, 1], got %f", c.WordOverlapThreshold)
	}
	if c.MinUnchangedRunWords < 1 {
		return fmt.Errorf("minimum unchanged run must be at least 1 word, got %d", c.MinUnchangedRunWords)
	}
	if c.AnnotationCacheCapacity < 1 {
		return fmt.Errorf("annotation cache capacity must be positive, got %d", c.AnnotationCacheCapacity)
	}
	return nil
}
