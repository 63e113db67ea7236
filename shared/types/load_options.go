// Package types provides shared type definitions used across the matrixdesk
// application (pipeline, cache and settings).
package types

import (
	"fmt"
	"strings"
)

// ElementPolicy controls what happens when an element token cannot be parsed.
type ElementPolicy string

const (
	// ElementPolicyPermissive replaces unparsable elements with 0 and records a fallback.
	ElementPolicyPermissive ElementPolicy = "permissive"
	// ElementPolicyStrict fails the whole load on the first unparsable element.
	ElementPolicyStrict ElementPolicy = "strict"
)

// PlacementMode controls how decoded elements are placed into the grid.
type PlacementMode string

const (
	// PlacementAuto branches on the declared format: row-major fill for array
	// files, explicit (row, col) placement for coordinate files.
	PlacementAuto PlacementMode = "auto"
	// PlacementPositional always fills row-major using the first token of each
	// line, whatever the declared format says. Kept for files produced by the
	// legacy client that relied on this behaviour.
	PlacementPositional PlacementMode = "positional"
)

// LoadOptions contains all options that influence how a matrix file is ingested.
// Two loads of the same file with different options produce different grids,
// so the options take part in cache keys.
//
// JSON/YAML tags use camelCase for settings and cache metadata.
type LoadOptions struct {
	ElementPolicy ElementPolicy `json:"elementPolicy,omitempty" yaml:"elementPolicy,omitempty"`
	Placement     PlacementMode `json:"placement,omitempty" yaml:"placement,omitempty"`
}

// Key returns a unique string key for this options combination.
func (o LoadOptions) Key() string {
	o = o.normalized()
	return string(o.ElementPolicy) + "::" + string(o.Placement)
}

// Strict reports whether unparsable elements abort the load.
func (o LoadOptions) Strict() bool {
	return o.normalized().ElementPolicy == ElementPolicyStrict
}

// Positional reports whether legacy row-major placement is forced.
func (o LoadOptions) Positional() bool {
	return o.normalized().Placement == PlacementPositional
}

// Validate checks that every option holds a known value. Empty values are
// allowed and mean "default".
func (o LoadOptions) Validate() error {
	switch o.ElementPolicy {
	case "", ElementPolicyPermissive, ElementPolicyStrict:
	default:
		return &OptionsError{Option: "element policy", Value: string(o.ElementPolicy), Allowed: []string{string(ElementPolicyPermissive), string(ElementPolicyStrict)}}
	}
	switch o.Placement {
	case "", PlacementAuto, PlacementPositional:
	default:
		return &OptionsError{Option: "placement mode", Value: string(o.Placement), Allowed: []string{string(PlacementAuto), string(PlacementPositional)}}
	}
	return nil
}

// OptionsError reports an option holding an unknown value.
type OptionsError struct {
	Option  string
	Value   string
	Allowed []string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("unknown %s %q (want one of %s)", e.Option, e.Value, strings.Join(e.Allowed, ", "))
}

// Equals returns true if two LoadOptions are equivalent.
func (o LoadOptions) Equals(other LoadOptions) bool {
	return o.Key() == other.Key()
}

func (o LoadOptions) normalized() LoadOptions {
	if o.ElementPolicy == "" {
		o.ElementPolicy = ElementPolicyPermissive
	}
	if o.Placement == "" {
		o.Placement = PlacementAuto
	}
	return o
}

// DefaultLoadOptions returns the default ingestion options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		ElementPolicy: ElementPolicyPermissive,
		Placement:     PlacementAuto,
	}
}
