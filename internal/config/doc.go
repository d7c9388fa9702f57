// Package config provides configuration types and loading for the
// payment proxy.
//
// Configuration is read from a YAML file with ${VAR} and ${VAR:-default}
// environment substitution, filled with defaults, validated, and
// optionally watched for changes.
//
//	cfg, err := config.LoadConfig("solitude.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Only the logging level is applied on reload. Backend settings are read
// once at startup.
package config
