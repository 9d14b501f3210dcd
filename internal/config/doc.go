// Package config loads the application configuration from a YAML file
// and the environment. Precedence is flag > environment > file > default;
// the flag layer is applied by the CLI after loading.
package config
