package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/stationd/internal/cliconfig"
)

// clientCommands talk to a running daemon over the control API.
func clientCommands() []*cobra.Command {
	var addr string
	var timeout time.Duration

	call := func(method, path string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return callAPI(ctx, cmd.OutOrStdout(), method, baseURL(addr)+path)
		}
	}

	cmds := []*cobra.Command{
		{
			Use:   "status",
			Short: "Show connection status, live link state and counters",
			Args:  cobra.NoArgs,
			RunE:  call(http.MethodGet, "/status"),
		},
		{
			Use:   "disconnect",
			Short: "Drop the link and hold it down until reconnect",
			Args:  cobra.NoArgs,
			RunE:  call(http.MethodPost, "/disconnect"),
		},
		{
			Use:   "reconnect",
			Short: "Resume connection attempts after disconnect",
			Args:  cobra.NoArgs,
			RunE:  call(http.MethodPost, "/reconnect"),
		},
	}
	for _, c := range cmds {
		c.Flags().StringVar(&addr, "addr", envOr("LISTEN", cliconfig.DefaultListen), "control API address of the daemon")
		c.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	}
	return cmds
}

func envOr(name, def string) string {
	if v := os.Getenv(cliconfig.EnvPrefix + name); v != "" {
		return v
	}
	return def
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	return "http://" + addr
}

func callAPI(ctx context.Context, out io.Writer, method, url string) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	fmt.Fprintln(out, string(body))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return nil
}
