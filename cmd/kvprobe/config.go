package main

import (
	"flag"
)

type cliConfig struct {
	verbose bool
	quiet   bool
}

// parseConfig consumes global flags and returns the remaining args, the
// first of which is the command name.
func parseConfig(args []string) (cliConfig, []string, error) {
	var cfg cliConfig
	fs := flag.NewFlagSet("kvprobe", flag.ContinueOnError)
	fs.BoolVar(&cfg.verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&cfg.quiet, "quiet", false, "only log warnings and errors")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	return cfg, fs.Args(), nil
}
