// Package config provides configuration structures and utilities for pagemirror.
// It defines the run options built from CLI flags, their defaults and
// validation, and the optional YAML file with per-site request settings.
package config
