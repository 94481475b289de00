// Package appid names the application in paths, environment variables and
// telemetry.
package appid

import (
	"errors"
	"strings"
)

// Identity describes how the binary presents itself.
type Identity struct {
	BinaryName  string `json:"binary_name"`
	ConfigName  string `json:"config_name"`
	EnvPrefix   string `json:"env_prefix"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
}

var current = Identity{
	BinaryName:  "stocklens",
	ConfigName:  "stocklens",
	EnvPrefix:   "STOCKLENS_",
	Vendor:      "stocklens",
	Description: "Stock image policy review and metadata assistant",
}

// Get returns the application identity.
func Get() Identity {
	return current
}

// Prefix returns EnvPrefix with exactly one trailing underscore.
func (i Identity) Prefix() string {
	p := strings.TrimRight(strings.TrimSpace(i.EnvPrefix), "_")
	if p == "" {
		return ""
	}
	return p + "_"
}

// TelemetryNamespace is the metric namespace derived from the binary name.
func (i Identity) TelemetryNamespace() string {
	return strings.ReplaceAll(strings.ToLower(i.BinaryName), "-", "_")
}

// Validate reports the first missing field.
func (i Identity) Validate() error {
	switch {
	case strings.TrimSpace(i.BinaryName) == "":
		return errors.New("app identity missing binary name")
	case strings.TrimSpace(i.EnvPrefix) == "":
		return errors.New("app identity missing env prefix")
	case strings.TrimSpace(i.ConfigName) == "":
		return errors.New("app identity missing config name")
	}
	return nil
}
