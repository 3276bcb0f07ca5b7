package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// cliConfig is the subset of .factdb.yaml read directly with yaml.v3
// struct tags rather than through viper, mirroring the teacher's
// LocalConfig pattern: a plain struct-tag decode for the handful of
// fields a CLI invocation needs before any heavier config machinery
// would be worth standing up.
type cliConfig struct {
	DefaultJournalDir string `yaml:"default-journal-dir"`
}

// loadCLIConfig reads .factdb.yaml from the current directory, returning
// an empty cliConfig (not an error) if the file is absent.
func loadCLIConfig() cliConfig {
	data, err := os.ReadFile(".factdb.yaml")
	if err != nil {
		return cliConfig{}
	}
	var cfg cliConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}
	}
	return cfg
}

// resolveJournalDir returns the journal directory an invocation should
// use: the explicit positional argument if given, otherwise
// .factdb.yaml's default-journal-dir.
func resolveJournalDir(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	cfg := loadCLIConfig()
	if cfg.DefaultJournalDir == "" {
		return "", fmt.Errorf("no journal directory given and no default-journal-dir in .factdb.yaml")
	}
	return cfg.DefaultJournalDir, nil
}
