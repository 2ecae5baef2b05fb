package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/healthwatch/internal/domain"
)

var client = &http.Client{Timeout: 10 * time.Second}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current backend state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var st status
		if err := call(cmd, http.MethodGet, "/api/status", &st); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Trigger a health check now",
	Long: `Trigger a health check now. The request returns at once; while a check is
already running it has no effect. Run "statusctl status" to see the result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var st status
		if err := call(cmd, http.MethodPost, "/api/status/check", &st); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "check requested")
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent check outcomes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		var recs []domain.CheckRecord
		if err := call(cmd, http.MethodGet, "/api/status/history?limit="+strconv.Itoa(limit), &recs); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CHECKED_AT\tUP\tKIND\tRETRY\tMESSAGE")
		for _, r := range recs {
			kind := string(r.Kind)
			if kind == "" {
				kind = "-"
			}
			fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\n", r.CheckedAt.Local().Format(time.RFC3339), r.Up, kind, r.RetryCount, r.Message)
		}
		return tw.Flush()
	},
}

// status mirrors the /api/status body.
type status struct {
	domain.State
	Target string `json:"target"`
	Advice string `json:"advice"`
}

func printStatus(w io.Writer, st status) {
	switch {
	case st.IsDown:
		fmt.Fprintf(w, "DOWN  %s (failures: %d)\n", st.Target, st.ConsecutiveFailures)
		if st.LastError != nil {
			fmt.Fprintf(w, "  %s: %s\n", st.LastError.Kind, st.LastError.Message)
		}
		if st.Advice != "" {
			fmt.Fprintf(w, "  %s\n", st.Advice)
		}
	default:
		fmt.Fprintf(w, "UP    %s\n", st.Target)
	}
	if st.IsChecking {
		fmt.Fprintln(w, "  a check is in progress")
	}
}

func call(cmd *cobra.Command, method, path string, out any) error {
	req, err := http.NewRequestWithContext(cmd.Context(), method, strings.TrimRight(serverURL, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contact healthwatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s %s", method, path, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
