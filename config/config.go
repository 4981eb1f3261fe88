package config

import (
	_ "embed"
)

// cleanup-utils config
//
//go:embed default.config.yml
var DefaultConfigYml string
