package version

import (
	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/base"
	"github.com/alternatefutures/package-cloud-sdk/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version of the binary"
}

func (c *Command) Help() string {
	return `Usage: afcloud version

  This command prints the version of the binary.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("afcloud " + version.String())
	return 0
}
