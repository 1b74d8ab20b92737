package endpoints

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/alternatefutures/package-cloud-sdk/endpoints"
	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/base"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Print an endpoint set in the order it is tried"
}

func (c *Command) Help() string {
	return `Usage: afcloud endpoints [options] [set]

  This command prints the endpoints of a set sorted by priority, which is the
  order a request tries them in. Without a set name it lists the known sets.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("endpoints", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to an HCL or YAML configuration file.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	file, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}

	if flags.NArg() == 0 {
		names := map[string]bool{}
		for name := range endpoints.Defaults() {
			names[name] = true
		}
		if file != nil {
			for _, s := range file.Sets {
				names[s.Name] = true
			}
		}
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		for _, name := range sorted {
			c.UI.Output(name)
		}
		return 0
	}
	if flags.NArg() > 1 {
		c.UI.Error("expected at most one set name")
		return 1
	}

	set := flags.Arg(0)
	cfg, err := file.ConfigFor(context.Background(), set, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error resolving set %q: %v", set, err))
		return 1
	}

	for i, ep := range failover.SortEndpoints(cfg.Endpoints) {
		timeout := "none"
		if ep.Timeout > 0 {
			timeout = ep.Timeout.String()
		}
		c.UI.Output(fmt.Sprintf("%d\t%s\tpriority=%d\ttimeout=%s", i+1, ep.URL, ep.Priority, timeout))
	}
	return 0
}
