package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ConfigWatcher watches a tunables file for changes and reloads it
// without a restart.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *DynamicConfig
	mu       sync.RWMutex
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// DynamicConfig represents runtime-changeable configuration
type DynamicConfig struct {
	Features   Features         `yaml:"features"`
	Limits     Limits           `yaml:"limits"`
	Annotation AnnotationConfig `yaml:"annotation"`
	Metadata   ConfigMetadata   `yaml:"metadata"`
}

// Features holds runtime feature toggles
type Features struct {
	EnableProjectionPush bool `yaml:"enableProjectionPush"`
	ShowTagColors        bool `yaml:"showTagColors"`
	ShowStructural       bool `yaml:"showStructural"`
	ShowUnchangedRuns    bool `yaml:"showUnchangedRuns"`
}

// Limits holds application limits
type Limits struct {
	SubmitsPerMinute  int `yaml:"submitsPerMinute"`
	MaxInputLength    int `yaml:"maxInputLength"`
	MaxFreezeWords    int `yaml:"maxFreezeWords"`
	MaxDeferredEvents int `yaml:"maxDeferredEvents"`
}

// AnnotationConfig holds diff annotation tunables
type AnnotationConfig struct {
	SentenceOverlapThreshold float64 `yaml:"sentenceOverlapThreshold"`
	WordOverlapThreshold     float64 `yaml:"wordOverlapThreshold"`
	MinUnchangedRunWords     int     `yaml:"minUnchangedRunWords"`
	CacheCapacity            int     `yaml:"cacheCapacity"`
}

// ConfigMetadata holds metadata about the configuration
type ConfigMetadata struct {
	Version   string    `yaml:"version"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	config, err := loadDynamicConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Watch the directory too, editors save via rename.
	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &ConfigWatcher{
		path:     configPath,
		watcher:  watcher,
		current:  config,
		onChange: make([]func(*DynamicConfig), 0),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes
func (w *ConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Configuration watcher stopped")
}

func (w *ConfigWatcher) watchLoop() {
	// Debounce, editors fire several events per save.
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					w.handleConfigChange()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *ConfigWatcher) handleConfigChange() {
	w.logger.Info("Configuration file changed, reloading", zap.String("path", w.path))

	newConfig, err := loadDynamicConfig(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}

	if err := validateDynamicConfig(newConfig); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	oldConfig := w.current
	w.current = newConfig
	w.mu.Unlock()

	w.logConfigChanges(oldConfig, newConfig)

	for _, handler := range w.onChange {
		go handler(newConfig)
	}

	w.logger.Info("Configuration reloaded successfully",
		zap.String("version", newConfig.Metadata.Version),
	)
}

func validateDynamicConfig(config *DynamicConfig) error {
	if config.Limits.SubmitsPerMinute <= 0 {
		return fmt.Errorf("submitsPerMinute must be positive")
	}
	if config.Limits.MaxInputLength <= 0 {
		return fmt.Errorf("maxInputLength must be positive")
	}
	if config.Annotation.SentenceOverlapThreshold <= 0 || config.Annotation.SentenceOverlapThreshold > 1 {
		return fmt.Errorf("sentenceOverlapThreshold must be in (0, 1]")
	}
	if config.Annotation.WordOverlapThreshold <= 0 || config.Annotation.WordOverlapThreshold > 1 {
		return fmt.Errorf("wordOverlapThreshold must be in (0, 1]")
	}
	if config.Annotation.MinUnchangedRunWords < 1 {
		return fmt.Errorf("minUnchangedRunWords must be at least 1")
	}
	return nil
}

func (w *ConfigWatcher) logConfigChanges(oldConfig, newConfig *DynamicConfig) {
	changes := []string{}

	if oldConfig.Features.EnableProjectionPush != newConfig.Features.EnableProjectionPush {
		changes = append(changes, fmt.Sprintf("EnableProjectionPush: %v -> %v",
			oldConfig.Features.EnableProjectionPush, newConfig.Features.EnableProjectionPush))
	}
	if oldConfig.Limits.SubmitsPerMinute != newConfig.Limits.SubmitsPerMinute {
		changes = append(changes, fmt.Sprintf("SubmitsPerMinute: %d -> %d",
			oldConfig.Limits.SubmitsPerMinute, newConfig.Limits.SubmitsPerMinute))
	}
	if oldConfig.Annotation.MinUnchangedRunWords != newConfig.Annotation.MinUnchangedRunWords {
		changes = append(changes, fmt.Sprintf("MinUnchangedRunWords: %d -> %d",
			oldConfig.Annotation.MinUnchangedRunWords, newConfig.Annotation.MinUnchangedRunWords))
	}

	if len(changes) > 0 {
		w.logger.Info("Configuration changes detected",
			zap.Strings("changes", changes),
		)
	}
}

// OnChange registers a callback for configuration changes
func (w *ConfigWatcher) OnChange(handler func(*DynamicConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// GetCurrent returns the current configuration
func (w *ConfigWatcher) GetCurrent() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// GetFeatures returns current feature flags
func (w *ConfigWatcher) GetFeatures() Features {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Features
}

// GetLimits returns current limits
func (w *ConfigWatcher) GetLimits() Limits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Limits
}

func loadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config DynamicConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Metadata.Version == "" {
		config.Metadata.Version = "1.0.0"
	}
	config.Metadata.UpdatedAt = time.Now()

	return &config, nil
}
