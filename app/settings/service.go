package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"matrixdesk/shared/types"
)

// SettingsService manages reading/writing settings from disk.
type SettingsService struct {
	path         string
	cacheManager CacheManager
}

// NewSettingsService creates a service for the file at path. An empty path
// resolves to DefaultPath.
func NewSettingsService(path string) (*SettingsService, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve settings path: %w", err)
		}
		path = p
	}
	return &SettingsService{path: path}, nil
}

// SetCacheManager allows the app to react to cache-related changes
func (s *SettingsService) SetCacheManager(cm CacheManager) {
	s.cacheManager = cm
}

// Path returns the settings file location.
func (s *SettingsService) Path() string {
	return s.path
}

// GetSettings returns the effective settings (defaults overlaid with file overrides if any).
func (s *SettingsService) GetSettings() (Settings, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultSettings, nil
		}
		return defaultSettings, err
	}
	return decode(b)
}

// SaveSettings saves only the values that differ from defaults. When every
// value is a default the file is removed.
func (s *SettingsService) SaveSettings(in Settings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	old, _ := s.GetSettings()
	cacheSizeChanged := old.CacheSizeLimitMB != in.CacheSizeLimitMB
	optionsChanged := !old.LoadOptions().Equals(in.LoadOptions())

	data := encode(in)
	if len(data) == 0 {
		if _, statErr := os.Stat(s.path); statErr == nil {
			if err := os.Remove(s.path); err != nil {
				return err
			}
		}
	} else {
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(s.path, b, 0o644); err != nil {
			return err
		}
	}

	if s.cacheManager != nil {
		// Cached grids stay valid across option changes (options are part of
		// the key), but nobody will ask for the old ones again.
		if optionsChanged {
			s.cacheManager.ClearCache()
		}
		if cacheSizeChanged {
			s.cacheManager.UpdateCacheSize(in.CacheSizeLimitMB)
		}
	}
	return nil
}

// EnsureInstanceID generates and saves a unique instance ID if one doesn't exist
func (s *SettingsService) EnsureInstanceID() (string, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(settings.InstanceID) != "" {
		return settings.InstanceID, nil
	}

	settings.InstanceID = uuid.New().String()
	if err := s.SaveSettings(settings); err != nil {
		return "", err
	}
	return settings.InstanceID, nil
}

// Keys lists the settings keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns a single setting rendered as text.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "server_url":
		return s.ServerURL, nil
	case "login":
		return s.Login, nil
	case "request_timeout_seconds":
		return strconv.Itoa(s.RequestTimeoutSeconds), nil
	case "load_timeout_seconds":
		return strconv.Itoa(s.LoadTimeoutSeconds), nil
	case "cache_size_limit_mb":
		return strconv.Itoa(s.CacheSizeLimitMB), nil
	case "element_policy":
		return string(s.ElementPolicy), nil
	case "placement":
		return string(s.Placement), nil
	case "preview_max_rows":
		return strconv.Itoa(s.PreviewMaxRows), nil
	case "preview_max_cols":
		return strconv.Itoa(s.PreviewMaxCols), nil
	case "preview_precision":
		return strconv.Itoa(s.PreviewPrecision), nil
	case "log_mode":
		return s.LogMode, nil
	case "instance_id":
		return s.InstanceID, nil
	default:
		return "", fmt.Errorf("unknown setting %q", key)
	}
}

type setter func(s *Settings, v string) error

func intSetter(min int, field func(*Settings) *int) setter {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not an integer: %w", err)
		}
		if n < min {
			return fmt.Errorf("must be at least %d", min)
		}
		*field(s) = n
		return nil
	}
}

var setters = map[string]setter{
	"server_url": func(s *Settings, v string) error {
		s.ServerURL = strings.TrimRight(strings.TrimSpace(v), "/")
		return nil
	},
	"login": func(s *Settings, v string) error {
		s.Login = strings.TrimSpace(v)
		return nil
	},
	"request_timeout_seconds": intSetter(1, func(s *Settings) *int { return &s.RequestTimeoutSeconds }),
	"load_timeout_seconds":    intSetter(0, func(s *Settings) *int { return &s.LoadTimeoutSeconds }),
	"cache_size_limit_mb":     intSetter(1, func(s *Settings) *int { return &s.CacheSizeLimitMB }),
	"preview_max_rows":        intSetter(1, func(s *Settings) *int { return &s.PreviewMaxRows }),
	"preview_max_cols":        intSetter(1, func(s *Settings) *int { return &s.PreviewMaxCols }),
	"preview_precision":       intSetter(0, func(s *Settings) *int { return &s.PreviewPrecision }),
	"element_policy": func(s *Settings, v string) error {
		s.ElementPolicy = types.ElementPolicy(strings.ToLower(strings.TrimSpace(v)))
		return nil
	},
	"placement": func(s *Settings, v string) error {
		s.Placement = types.PlacementMode(strings.ToLower(strings.TrimSpace(v)))
		return nil
	},
	"log_mode": func(s *Settings, v string) error {
		s.LogMode = strings.ToLower(strings.TrimSpace(v))
		return nil
	},
}

// Set updates a single key and saves the result. instance_id is not settable.
func (s *SettingsService) Set(key, value string) error {
	apply, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	current, err := s.GetSettings()
	if err != nil {
		return err
	}
	if err := apply(&current, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return s.SaveSettings(current)
}
