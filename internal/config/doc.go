// Package config loads the console's YAML configuration.
//
// Values support ${VAR} environment expansion before parsing and
// human-readable duration strings ("30s", "168h"). Validate runs on
// every Load, so a misconfigured console fails at startup rather than
// on the first request.
package config
