// Package config handles loading and validating deyectl configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of field values
//   - Default value handling
//
// The recognised environment variables are DEYE_USERNAME, DEYE_PASSWORD,
// DEYE_AUTH_TOKEN and DEYE_DEVICE_ID. The config file is optional; with
// no file the tool runs from defaults plus the environment.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment
//     variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("deye.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID)
package config
