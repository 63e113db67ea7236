package settings

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"matrixdesk/shared/types"
)

// EnvSettingsPath overrides the settings file location.
const EnvSettingsPath = "MATRIXDESK_SETTINGS"

// FileName is the settings file created next to the executable.
const FileName = "matrixdesk.yml"

// DefaultPath returns $MATRIXDESK_SETTINGS, or matrixdesk.yml in the binary directory.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvSettingsPath)); p != "" {
		return p, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), FileName), nil
}

// decode overlays the keys present in b onto the defaults. Keys with the
// wrong type or out-of-range values are ignored.
func decode(b []byte) (Settings, error) {
	settings := defaultSettings
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	if v, ok := m["server_url"]; ok {
		if vs, oks := v.(string); oks && strings.TrimSpace(vs) != "" {
			settings.ServerURL = strings.TrimSpace(vs)
		}
	}
	if v, ok := m["login"]; ok {
		if vs, oks := v.(string); oks {
			settings.Login = strings.TrimSpace(vs)
		}
	}
	if v, ok := m["request_timeout_seconds"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.RequestTimeoutSeconds = vi
		}
	}
	if v, ok := m["load_timeout_seconds"]; ok {
		if vi, oki := v.(int); oki && vi >= 0 {
			settings.LoadTimeoutSeconds = vi
		}
	}
	if v, ok := m["cache_size_limit_mb"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.CacheSizeLimitMB = vi
		}
	}
	if v, ok := m["element_policy"]; ok {
		if vs, oks := v.(string); oks {
			settings.ElementPolicy = types.ElementPolicy(strings.ToLower(strings.TrimSpace(vs)))
		}
	}
	if v, ok := m["placement"]; ok {
		if vs, oks := v.(string); oks {
			settings.Placement = types.PlacementMode(strings.ToLower(strings.TrimSpace(vs)))
		}
	}
	if v, ok := m["preview_max_rows"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.PreviewMaxRows = vi
		}
	}
	if v, ok := m["preview_max_cols"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.PreviewMaxCols = vi
		}
	}
	if v, ok := m["preview_precision"]; ok {
		if vi, oki := v.(int); oki && vi >= 0 && vi <= 17 {
			settings.PreviewPrecision = vi
		}
	}
	if v, ok := m["log_mode"]; ok {
		if vs, oks := v.(string); oks {
			settings.LogMode = strings.ToLower(strings.TrimSpace(vs))
		}
	}
	if v, ok := m["instance_id"]; ok {
		if vs, oks := v.(string); oks {
			settings.InstanceID = strings.TrimSpace(vs)
		}
	}
	return settings, settings.Validate()
}

// encode builds a minimal map containing only non-default values to avoid
// zero-value serialization pitfalls.
func encode(in Settings) map[string]any {
	data := make(map[string]any)
	if s := strings.TrimSpace(in.ServerURL); s != "" && s != defaultSettings.ServerURL {
		data["server_url"] = s
	}
	if s := strings.TrimSpace(in.Login); s != "" {
		data["login"] = s
	}
	if in.RequestTimeoutSeconds != defaultSettings.RequestTimeoutSeconds && in.RequestTimeoutSeconds > 0 {
		data["request_timeout_seconds"] = in.RequestTimeoutSeconds
	}
	if in.LoadTimeoutSeconds != defaultSettings.LoadTimeoutSeconds && in.LoadTimeoutSeconds >= 0 {
		data["load_timeout_seconds"] = in.LoadTimeoutSeconds
	}
	if in.CacheSizeLimitMB != defaultSettings.CacheSizeLimitMB && in.CacheSizeLimitMB > 0 {
		data["cache_size_limit_mb"] = in.CacheSizeLimitMB
	}
	if in.ElementPolicy != "" && in.ElementPolicy != defaultSettings.ElementPolicy {
		data["element_policy"] = string(in.ElementPolicy)
	}
	if in.Placement != "" && in.Placement != defaultSettings.Placement {
		data["placement"] = string(in.Placement)
	}
	if in.PreviewMaxRows != defaultSettings.PreviewMaxRows && in.PreviewMaxRows > 0 {
		data["preview_max_rows"] = in.PreviewMaxRows
	}
	if in.PreviewMaxCols != defaultSettings.PreviewMaxCols && in.PreviewMaxCols > 0 {
		data["preview_max_cols"] = in.PreviewMaxCols
	}
	if in.PreviewPrecision != defaultSettings.PreviewPrecision && in.PreviewPrecision >= 0 {
		data["preview_precision"] = in.PreviewPrecision
	}
	if s := strings.TrimSpace(in.LogMode); s != "" && s != defaultSettings.LogMode {
		data["log_mode"] = s
	}
	if s := strings.TrimSpace(in.InstanceID); s != "" {
		data["instance_id"] = s
	}
	return data
}

// Validate checks values that would break the client at runtime.
func (s Settings) Validate() error {
	u, err := url.Parse(s.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url %q must be an absolute http(s) URL", s.ServerURL)
	}
	if err := s.LoadOptions().Validate(); err != nil {
		return err
	}
	switch s.LogMode {
	case "", "dev", "prod":
	default:
		return fmt.Errorf("log_mode %q must be dev or prod", s.LogMode)
	}
	return nil
}
