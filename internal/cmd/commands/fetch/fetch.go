package fetch

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/gateway"
	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/base"
	"github.com/alternatefutures/package-cloud-sdk/observe"
)

type Command struct {
	*base.Command

	// Stdout receives fetched content byte for byte. Nil means os.Stdout.
	Stdout io.Writer

	flagConfig     string
	flagOut        string
	flagRetries    int
	flagRetryDelay time.Duration
	flagTimeout    time.Duration
	flagMaxBytes   int64
}

func (c *Command) Synopsis() string {
	return "Fetch content from IPFS or Arweave gateways with failover"
}

func (c *Command) Help() string {
	return `Usage: afcloud fetch [options] <ipfs|arweave> <id>

  This command downloads a CID from the IPFS gateways or a transaction from
  the Arweave gateways, trying each gateway in priority order until one
  answers. Content is written to stdout unless -out is given.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("fetch", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to an HCL or YAML configuration file.",
	)
	f.StringVar(
		&c.flagOut, "out", "", "Write content to this file instead of stdout.",
	)
	f.IntVar(
		&c.flagRetries, "retries", 0,
		"Attempts per gateway. Zero uses the configuration file or the default.",
	)
	f.DurationVar(
		&c.flagRetryDelay, "retry-delay", 0,
		"Delay between attempts on the same gateway. Overrides the configuration file when set.",
	)
	f.DurationVar(
		&c.flagTimeout, "timeout", 2*time.Minute,
		"Overall deadline for the fetch across all gateways.",
	)
	f.Int64Var(
		&c.flagMaxBytes, "max-bytes", 0,
		"Maximum content size. Zero uses the default limit.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	logger, ui := c.Log, c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() != 2 {
		ui.Error("expected a network (ipfs or arweave) and an identifier")
		return 1
	}
	network, id := flags.Arg(0), flags.Arg(1)
	if network != "ipfs" && network != "arweave" {
		ui.Error(fmt.Sprintf("unknown network %q, expected ipfs or arweave", network))
		return 1
	}
	if c.flagRetries < 0 {
		ui.Error("retries must not be negative")
		return 1
	}

	file, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}
	provider, err := file.Provider(logger)
	if err != nil {
		ui.Error(fmt.Sprintf("error building endpoint provider: %v", err))
		return 1
	}
	cfgOpts, err := file.ConfigOptions()
	if err != nil {
		ui.Error(fmt.Sprintf("error reading failover settings: %v", err))
		return 1
	}
	if c.flagRetries > 0 {
		cfgOpts = append(cfgOpts, failover.MaxRetries(c.flagRetries))
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "retry-delay" {
			cfgOpts = append(cfgOpts, failover.RetryDelay(c.flagRetryDelay))
		}
	})

	exec := failover.NewExecutor(
		failover.WithLogger(logger),
		failover.WithObserver(observe.NewLogObserver(logger.Named("fetch"))),
	)
	opts := []gateway.Option{
		gateway.WithProvider(provider),
		gateway.WithExecutor(exec),
		gateway.WithConfigOptions(cfgOpts...),
		gateway.WithLogger(logger),
	}
	if c.flagMaxBytes > 0 {
		opts = append(opts, gateway.WithMaxBodyBytes(c.flagMaxBytes))
	}
	client := gateway.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if c.flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.flagTimeout)
		defer cancel()
	}

	var content *gateway.Content
	switch network {
	case "ipfs":
		content, err = client.FetchIPFS(ctx, id)
	case "arweave":
		content, err = client.FetchArweave(ctx, id)
	}
	if err != nil {
		ui.Error(fmt.Sprintf("error fetching %s %s: %v", network, id, err))
		return 1
	}

	if c.flagOut == "" {
		out := c.Stdout
		if out == nil {
			out = os.Stdout
		}
		if _, err := out.Write(content.Data); err != nil {
			ui.Error(fmt.Sprintf("error writing content: %v", err))
			return 1
		}
		return 0
	}
	if err := os.WriteFile(c.flagOut, content.Data, 0o644); err != nil {
		ui.Error(fmt.Sprintf("error writing %s: %v", c.flagOut, err))
		return 1
	}
	ui.Info(fmt.Sprintf("Wrote %d bytes from %s to %s (%d attempts)",
		len(content.Data), content.Endpoint, c.flagOut, content.Attempts))
	return 0
}
