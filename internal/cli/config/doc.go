// Package config defines the libcat-cli configuration.
//
//   - spec.go: CLIConfig struct (~/.libcat/cli.yaml)
//   - loader.go: layered loading (defaults, file, LIBCAT_* env, flags),
//     saving and validation
//
// Sections: api, credentials, session, auth, output, log, console, metrics.
package config
