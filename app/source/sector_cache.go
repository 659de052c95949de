package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type SectorCache struct {
	sectorsDir string
	cache      map[string]*SectorConfig
	mu         sync.RWMutex
}

func NewSectorCache(sectorsDir string) *SectorCache {
	return &SectorCache{
		sectorsDir: sectorsDir,
		cache:      make(map[string]*SectorConfig),
	}
}

// Run loads every sectors/*.yml file. A missing directory is not an error.
func (sc *SectorCache) Run() error {
	if _, err := os.Stat(sc.sectorsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(sc.sectorsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sectorName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := sc.LoadConfig(sectorName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Sector configuration loaded", "sector", sectorName, "enabled", config.Settings.Enabled, "feeds", len(config.Feeds))
	}

	return nil
}

func (sc *SectorCache) LoadConfig(sectorName string) (*SectorConfig, error) {
	configFile := filepath.Join(sc.sectorsDir, sectorName+".yml")
	sectorConfig, err := sc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sectorConfig.Name = sectorName

	if err := validateConfig(sectorConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache[sectorConfig.Name] = sectorConfig

	return sectorConfig, nil
}

// GetConfig returns nil when the sector has no enabled configuration.
func (sc *SectorCache) GetConfig(sectorName string) *SectorConfig {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sectorConfig, ok := sc.cache[sectorName]
	if !ok || !sectorConfig.Settings.Enabled {
		return nil
	}
	return sectorConfig
}

func (sc *SectorCache) GetSectorNames() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	names := make([]string, 0, len(sc.cache))
	for name, config := range sc.cache {
		if config.Settings.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (sc *SectorCache) parseConfig(configFile string) (*SectorConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sectorConfig := SectorConfig{Settings: SectorSettings{Enabled: true}}
	if err := yaml.Unmarshal(data, &sectorConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sectorConfig.Settings.MaxItems == 0 {
		sectorConfig.Settings.MaxItems = 20
	}
	if sectorConfig.Settings.Timeout == 0 {
		sectorConfig.Settings.Timeout = 30
	}

	return &sectorConfig, nil
}

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"content":     true,
	"link":        true,
	"source":      true,
}

func validateConfig(sectorConfig *SectorConfig) error {
	if len(sectorConfig.Feeds) == 0 {
		return fmt.Errorf("at least one feed URL is required")
	}
	for i, feedURL := range sectorConfig.Feeds {
		if strings.TrimSpace(feedURL) == "" {
			return fmt.Errorf("feed URL at index %d is empty", i)
		}
	}

	if sectorConfig.Settings.MaxItems < 0 {
		return fmt.Errorf("max items must be non-negative")
	}
	if sectorConfig.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for i, filter := range sectorConfig.Filters {
		if !filterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
