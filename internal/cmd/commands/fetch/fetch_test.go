package fetch

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alternatefutures/package-cloud-sdk/internal/cmd/base"
)

const testCID = "QmXYsy8xLYRaDbgDNeSthWSNneKM13Vb1FHV8LC4DghHy2"

func newCommand() (*Command, *cli.MockUi) {
	ui := cli.NewMockUi()
	return &Command{Command: base.NewCommand(hclog.NewNullLogger(), ui), Stdout: ui.OutputWriter}, ui
}

func writeConfig(t *testing.T, down, up string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdk.hcl")
	src := fmt.Sprintf(`
failover {
  max_retries = 2
  retry_delay = "1ms"
}

set "ipfs" {
  endpoint {
    url      = %q
    priority = 1
  }
  endpoint {
    url      = %q
    priority = 2
  }
}
`, down, up)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRun_FetchesWithFailover(t *testing.T) {
	var downHits int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downHits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/"+testCID, r.URL.Path)
		_, _ = io.WriteString(w, "content")
	}))
	defer up.Close()

	cfg := writeConfig(t, down.URL, up.URL)

	c, ui := newCommand()
	require.Equal(t, 0, c.Run([]string{"-config", cfg, "ipfs", testCID}), ui.ErrorWriter.String())
	assert.Equal(t, "content", ui.OutputWriter.String())
	assert.EqualValues(t, 2, atomic.LoadInt32(&downHits))

	out := filepath.Join(t.TempDir(), "out.bin")
	c, ui = newCommand()
	require.Equal(t, 0, c.Run([]string{"-config", cfg, "-retries", "1", "-out", out, "ipfs", testCID}), ui.ErrorWriter.String())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.Contains(t, ui.OutputWriter.String(), "(2 attempts)")
	assert.EqualValues(t, 3, atomic.LoadInt32(&downHits))
}

func TestRun_StdoutIsByteExact(t *testing.T) {
	payload := []byte{0x00, 0xff, 0x10}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c, ui := newCommand()
	var stdout bytes.Buffer
	c.Stdout = &stdout
	require.Equal(t, 0, c.Run([]string{"-config", writeConfig(t, srv.URL, srv.URL), "ipfs", testCID}), ui.ErrorWriter.String())
	assert.Equal(t, payload, stdout.Bytes())
	assert.Empty(t, ui.OutputWriter.String())
}

func TestRun_AllGatewaysDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	c, ui := newCommand()
	code := c.Run([]string{"-config", writeConfig(t, down.URL, down.URL), "-retry-delay", "0s", "ipfs", testCID})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.ErrorWriter.String(), "all endpoints failed after 4 attempts")
}

func TestRun_BadArguments(t *testing.T) {
	cases := [][]string{
		nil,
		{"ipfs"},
		{"s3", "bucket"},
		{"-retries", "-1", "ipfs", testCID},
		{"ipfs", "not-a-cid"},
		{"arweave", "short"},
	}
	for _, args := range cases {
		c, ui := newCommand()
		assert.Equal(t, 1, c.Run(args), "args=%v", args)
		assert.NotEmpty(t, ui.ErrorWriter.String(), "args=%v", args)
	}
}
