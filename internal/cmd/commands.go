package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/base"
	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/commands/endpoints"
	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/commands/fetch"
	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/commands/version"
)

// Commands returns the subcommand factories keyed by name.
func Commands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	b := base.NewCommand(log, ui)

	return map[string]cli.CommandFactory{
		"endpoints": func() (cli.Command, error) {
			return &endpoints.Command{Command: b}, nil
		},
		"fetch": func() (cli.Command, error) {
			return &fetch.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
