// Package config provides runtime configuration for the grid server.
//
// The config package handles:
//   - Built-in defaults for every setting
//   - Loading overrides from a JSON file
//   - Validation of ranges and combinations
//
// Configuration Format:
//
// A config file is a JSON object whose keys match the Config struct tags.
// Any key left out keeps its default. Durations are Go duration strings:
//
//	{
//	  "port": 9000,
//	  "rows": 64,
//	  "cols": 64,
//	  "idle_timeout": "10m",
//	  "allowed_origins": ["https://grid.example.com"]
//	}
//
// Usage:
//
//	cfg, err := config.LoadFile("gridshare.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// or start from defaults and let flags override
//	cfg := config.Default()
//	cfg.Port = 9090
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Command-line flags and environment variables are layered on top by the
// main package.
package config
