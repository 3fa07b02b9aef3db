package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// httpClient is shared by all commands.
var httpClient = &http.Client{Timeout: 30 * time.Second}

var topKFlag int

// HealthResponse matches internal/http HealthResponse.
type HealthResponse struct {
	Status string `json:"status"`
}

// MatchResponse matches internal/http MatchResponse.
type MatchResponse struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	MatchType string  `json:"match_type"`
	Snippet   string  `json:"snippet,omitempty"`
}

// Finding matches internal/piiscan Finding.
type Finding struct {
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	MaskedValue string `json:"masked_value"`
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
}

// ScanResponse matches internal/http ScanResponse.
type ScanResponse struct {
	Findings []Finding `json:"findings"`
}

// QueueItem matches internal/queue Item, trimmed to display fields.
type QueueItem struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	AttemptCount int    `json:"attempt_count"`
	LastError    string `json:"last_error,omitempty"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check threadbankd server health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var resp HealthResponse
		if err := getJSON("/health", nil, &resp); err != nil {
			return err
		}
		fmt.Printf("Server status: %s\n", resp.Status)
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Upsert a document from a JSON file or stdin",
	Long: `Upsert a document from a JSON file or stdin.

Examples:
  # Ingest a file
  threadbank ingest thread.json

  # Ingest from stdin
  cat thread.json | threadbank ingest -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			content, err = io.ReadAll(os.Stdin)
		} else {
			content, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		var out struct {
			ID     string `json:"id"`
			Result string `json:"result"`
		}
		if err := postJSON("/api/v1/documents", content, &out); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", out.ID, out.Result)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documents by free text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var results []MatchResponse
		params := url.Values{"q": {args[0]}, "top_k": {strconv.Itoa(topKFlag)}}
		if err := getJSON("/api/v1/search", params, &results); err != nil {
			return err
		}
		printMatches(results)
		return nil
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <document-id>",
	Short: "Find documents similar to the one given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var results []MatchResponse
		params := url.Values{"top_k": {strconv.Itoa(topKFlag)}}
		path := "/api/v1/documents/" + url.PathEscape(args[0]) + "/similar"
		if err := getJSON(path, params, &results); err != nil {
			return err
		}
		printMatches(results)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Scan a file or stdin for PII",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			content, err = io.ReadAll(os.Stdin)
		} else {
			content, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		body, err := json.Marshal(map[string]string{"text": string(content)})
		if err != nil {
			return err
		}
		var resp ScanResponse
		if err := postJSON("/api/v1/scan", body, &resp); err != nil {
			return err
		}

		if len(resp.Findings) == 0 {
			fmt.Println("No PII found")
			return nil
		}
		for _, f := range resp.Findings {
			fmt.Printf("%-28s %-8s @%-6d %s\n", f.Kind, f.Severity, f.Offset, f.MaskedValue)
		}
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and control the retry queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List queue items, optionally filtered by status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if len(args) == 1 {
			params.Set("status", args[0])
		}
		var items []QueueItem
		if err := getJSON("/api/v1/queue", params, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%s  %-10s %-12s attempts=%d", item.ID, item.Kind, item.Status, item.AttemptCount)
			if item.LastError != "" {
				fmt.Printf("  last_error=%q", item.LastError)
			}
			fmt.Println()
		}
		return nil
	},
}

var queueCancelCmd = &cobra.Command{
	Use:   "cancel <item-id>",
	Short: "Cancel a pending queue item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/queue/" + url.PathEscape(args[0]) + "/cancel"
		if err := postJSON(path, nil, nil); err != nil {
			return err
		}
		fmt.Println("canceled")
		return nil
	},
}

var queueResetCmd = &cobra.Command{
	Use:   "reset <item-id>",
	Short: "Return a failed queue item to pending with a fresh retry budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/queue/" + url.PathEscape(args[0]) + "/reset"
		if err := postJSON(path, nil, nil); err != nil {
			return err
		}
		fmt.Println("reset to pending")
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&topKFlag, "top-k", 10, "maximum results")
	similarCmd.Flags().IntVar(&topKFlag, "top-k", 10, "maximum results")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueCancelCmd)
	queueCmd.AddCommand(queueResetCmd)
}

func printMatches(results []MatchResponse) {
	if len(results) == 0 {
		fmt.Println("No matches")
		return
	}
	for _, r := range results {
		fmt.Printf("%-24s %.4f  %s", r.ID, r.Score, r.MatchType)
		if r.Snippet != "" {
			fmt.Printf("  %s", r.Snippet)
		}
		fmt.Println()
	}
}

func getJSON(path string, params url.Values, out any) error {
	u := serverURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func postJSON(path string, body []byte, out any) error {
	resp, err := httpClient.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
