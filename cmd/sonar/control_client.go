package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/use-sonar/open-sonar/internal/config"
)

// defaultControlAddr is the loopback address "sonar watch" listens on
// unless overridden, matching its own --addr default.
func defaultControlAddr(cfg *config.Config) string {
	return fmt.Sprintf("localhost:%d", cfg.Server.MetricsPort)
}

// controlPost sends body (if non-nil) as JSON to POST http://addr/path and
// returns an error describing any non-2xx response. It is the transport
// for the kill/write/resize/register subcommands, which have no
// supervisor of their own and so reach a running "sonar watch" daemon's
// control routes (internal/app.RegisterControlRoutes) instead.
func controlPost(addr, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	url := fmt.Sprintf("http://%s%s", addr, path)
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		return fmt.Errorf("reach sonar watch at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}
