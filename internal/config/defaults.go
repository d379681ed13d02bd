package config

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			DatabaseDir: "~/.local/share/crate",
			LogDir:      "~/.local/share/crate/logs",
			LockDir:     "~/.local/share/crate/locks",
		},
		Scan: Scan{
			Workers:            0,
			MaxDeletedFraction: 1.0,
			MissingGraceHours:  0,
			WatchDebounceMS:    2000,
		},
		Analysis: Analysis{
			QueueSize: 1024,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
