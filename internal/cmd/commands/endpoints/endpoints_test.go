package endpoints

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/base"
)

func newCommand() (*Command, *cli.MockUi) {
	ui := cli.NewMockUi()
	return &Command{Command: base.NewCommand(hclog.NewNullLogger(), ui)}, ui
}

func TestRun_ListsSets(t *testing.T) {
	c, ui := newCommand()
	require.Equal(t, 0, c.Run(nil))
	assert.Equal(t, "arweave\ngraphql\nipfs\n", ui.OutputWriter.String())
}

func TestRun_PrintsDefaultSetInTryOrder(t *testing.T) {
	c, ui := newCommand()
	require.Equal(t, 0, c.Run([]string{"ipfs"}))

	lines := strings.Split(strings.TrimSpace(ui.OutputWriter.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "1\thttps://ipfs.alternatefutures.ai\tpriority=1\ttimeout=10s", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "4\thttps://cloudflare-ipfs.com"))
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sets:
  - name: mirrors
    endpoints:
      - url: https://b.example.com
        priority: 5
      - url: https://a.example.com
        priority: 1
        timeout: 3s
`), 0o600))

	c, ui := newCommand()
	require.Equal(t, 0, c.Run([]string{"-config", path, "mirrors"}))
	assert.Equal(t,
		"1\thttps://a.example.com\tpriority=1\ttimeout=3s\n2\thttps://b.example.com\tpriority=5\ttimeout=none\n",
		ui.OutputWriter.String())
}

func TestRun_Errors(t *testing.T) {
	c, ui := newCommand()
	assert.Equal(t, 1, c.Run([]string{"nope"}))
	assert.Contains(t, ui.ErrorWriter.String(), "set not found")

	c, ui = newCommand()
	assert.Equal(t, 1, c.Run([]string{"-config", "/does/not/exist.hcl", "ipfs"}))
	assert.Contains(t, ui.ErrorWriter.String(), "not found")

	c, _ = newCommand()
	assert.Equal(t, 1, c.Run([]string{"a", "b"}))

	c, _ = newCommand()
	assert.Equal(t, 1, c.Run([]string{"-bogus"}))
}
