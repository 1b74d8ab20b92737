// Package base provides the shared plumbing for afcloud subcommands.
package base

import (
	"bytes"
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/alternatefutures/package-cloud-sdk/config"
)

// Command is embedded by every subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
}

// NewCommand returns a Command writing to ui and logging to log.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Command{Log: log, UI: ui}
}

// FlagSet wraps flag.FlagSet with help rendering for cli.Command.Help.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f. Parse errors are returned rather than printed.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(&bytes.Buffer{})
	return &FlagSet{FlagSet: f}
}

// Help renders the flags as an indented "Options:" section.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})
	return strings.TrimRight(b.String(), "\n")
}

// LoadConfig loads the configuration file at path. An empty path yields a nil
// *config.File, which resolves every set to the built-in defaults.
func (c *Command) LoadConfig(path string) (*config.File, error) {
	if path == "" {
		return nil, nil
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("loaded configuration", "path", path, "sets", len(f.Sets))
	return f, nil
}
