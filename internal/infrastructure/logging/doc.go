// Package logging provides structured logging for the device SDK.
//
// It wraps log/slog so every component emits records with the same
// default attributes (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stderr, stdout, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("connected", "endpoint", cfg.MQTT.Broker.Host)
//
// # Security
//
// Never log private keys, certificate PEMs, ownership tokens or passwords.
// The provisioning commands print credentials to stdout only.
package logging
