package settings

import "matrixdesk/shared/types"

// Settings holds application settings that can be overridden by the user.
type Settings struct {
	// Base URL of the main matrix server; every request path is joined onto it.
	ServerURL string `yaml:"server_url" json:"server_url"`
	// Login remembered from the last successful login (the session itself is never stored).
	Login string `yaml:"login,omitempty" json:"login,omitempty"`
	// Per-request timeout for server calls.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
	// Upper bound on parsing a file for preview; 0 disables the bound.
	LoadTimeoutSeconds int `yaml:"load_timeout_seconds" json:"load_timeout_seconds"`
	// Cache size limit in MB for parsed matrices
	CacheSizeLimitMB int `yaml:"cache_size_limit_mb" json:"cache_size_limit_mb"`
	// What to do with unparsable elements: "permissive" or "strict"
	ElementPolicy types.ElementPolicy `yaml:"element_policy" json:"element_policy"`
	// Element placement: "auto" or "positional"
	Placement types.PlacementMode `yaml:"placement" json:"placement"`
	// Preview window; larger grids are truncated with an ellipsis row/column.
	PreviewMaxRows int `yaml:"preview_max_rows" json:"preview_max_rows"`
	PreviewMaxCols int `yaml:"preview_max_cols" json:"preview_max_cols"`
	// Digits after the decimal point in previews.
	PreviewPrecision int `yaml:"preview_precision" json:"preview_precision"`
	// Logger mode: "dev" or "prod"
	LogMode string `yaml:"log_mode" json:"log_mode"`
	// InstanceID is a unique identifier for this installation, sent with every request
	InstanceID string `yaml:"instance_id,omitempty" json:"instance_id,omitempty"`
}

// LoadOptions returns the ingestion options these settings select.
func (s Settings) LoadOptions() types.LoadOptions {
	return types.LoadOptions{ElementPolicy: s.ElementPolicy, Placement: s.Placement}
}

// CacheManager is notified when settings affecting the parsed-matrix cache change.
type CacheManager interface {
	ClearCache()
	UpdateCacheSize(limitMB int)
}

// defaultSettings defines the built-in defaults.
var defaultSettings = Settings{
	ServerURL:             "http://localhost:8002",
	RequestTimeoutSeconds: 30,
	LoadTimeoutSeconds:    0,
	CacheSizeLimitMB:      100,
	ElementPolicy:         types.ElementPolicyPermissive,
	Placement:             types.PlacementAuto,
	PreviewMaxRows:        20,
	PreviewMaxCols:        10,
	PreviewPrecision:      4,
	LogMode:               "prod",
}

// Defaults returns the built-in defaults.
func Defaults() Settings {
	return defaultSettings
}
