package main

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var apiURLFlag = &cli.StringFlag{
	Name:    "api-url",
	Aliases: []string{"u"},
	Usage:   "Base URL of the backend",
	Sources: cli.EnvVars("TALLY_API_URL"),
}

var tokenFlag = &cli.StringFlag{
	Name:    "token",
	Aliases: []string{"t"},
	Usage:   "Bearer token used for likes, follows and deletions",
	Sources: cli.EnvVars("TALLY_ACCESS_TOKEN"),
}

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   "warn",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var trendingModeFlag = &cli.StringFlag{
	Name:    "trending-mode",
	Usage:   "Where trending is ranked: client or server",
	Sources: cli.EnvVars("TALLY_TRENDING_MODE"),
}

var pagesFlag = &cli.IntFlag{
	Name:    "pages",
	Aliases: []string{"p"},
	Usage:   "Number of pages to load",
	Value:   1,
	Validator: func(value int) error {
		if value < 1 {
			return fmt.Errorf("pages must be at least 1, got %d", value)
		}
		return nil
	},
}

var searchTypeFlag = &cli.StringFlag{
	Name:  "type",
	Usage: "What to search: posts, users or all",
	Value: "all",
}
