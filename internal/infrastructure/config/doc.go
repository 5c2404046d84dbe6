// Package config handles loading and validating Z-Wave core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with ZWAVECORE_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.ZWave.TopicPrefix)
package config
