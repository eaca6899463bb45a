// Package config provides configuration parsing for trackstore.
//
// The configuration lives in trackstore.json, trackstore.yaml,
// trackstore.yml or trackstore.toml; Load uses the first one it finds.
//
// # Configuration File Structure
//
//	name: todos
//	debug: false
//	log:
//	  level: info
//	  format: json
//	metrics:
//	  enabled: true
//	  namespace: todos
//	tracing:
//	  enabled: true
//	inspector:
//	  enabled: true
//	  host: localhost
//	  port: 7070
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	slog.SetDefault(cfg.Logger(os.Stderr))
package config
