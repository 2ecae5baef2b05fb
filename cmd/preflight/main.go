// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hamed0406/healthwatch/internal/config"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr))
}

// run reports on the environment healthwatch will start with. 1 means a blocking problem.
func run(stdout, stderr io.Writer) int {
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	path := os.Getenv("HEALTHWATCH_CONFIG")
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, "✖", err)
		return 1
	}

	ok(fmt.Sprintf("probing %s%s, retry backoff %dms..%dms", cfg.APIBase, cfg.HealthPath, cfg.RetryBaseMS, cfg.RetryMaxMS))

	for name, raw := range map[string]string{"ADMIN_API_KEYS": cfg.AdminAPIKeysRaw, "PUBLIC_API_KEYS": cfg.PublicAPIKeysRaw} {
		switch {
		case strings.TrimSpace(raw) == "":
			warn(name + " is empty; matching routes are open.")
		case strings.Contains(raw, " "):
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("API_ADDR=" + cfg.Addr)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty; check history and alert state stay in memory.")
	} else {
		ok("DATABASE_URL present")
	}

	if len(cfg.AllowedOrigins()) == 0 {
		warn("ALLOWED_ORIGINS empty; every origin is allowed by CORS.")
	} else {
		ok("ALLOWED_ORIGINS=" + cfg.AllowedOriginsRaw)
	}

	if cfg.SlackWebhookURL == "" && cfg.NATSURL == "" {
		warn("no SLACK_WEBHOOK_URL or NATS_URL; outages will only be logged.")
	}
	if cfg.ConnectivityHost == "" {
		warn("CONNECTIVITY_HOST empty; network failures are never reported as offline.")
	}
	if cfg.PollIntervalMS == 0 {
		warn("POLL_INTERVAL_MS is 0; outages are only noticed on the next triggered check.")
	}

	ok("preflight passed")
	return 0
}
