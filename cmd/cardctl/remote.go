package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"tradingcards/internal/catalog"
)

const defaultAPI = "http://localhost:3001"

type searchFlags struct {
	query, class, cardType, keyword string
	pitch, rarity                   string
	minCost, maxCost                int
	blitz, cc, commoner             bool
	sortField, sortDir              string
	page, limit                     int
}

// values keeps only the flags the user set, so the server applies its own
// defaults for the rest.
func (f *searchFlags) values(cmd *cobra.Command) url.Values {
	v := url.Values{}
	set := func(name, key, val string) {
		if cmd.Flags().Changed(name) {
			v.Set(key, val)
		}
	}
	set("query", "q", f.query)
	set("class", "cardClass", f.class)
	set("type", "cardType", f.cardType)
	set("keyword", "keyword", f.keyword)
	set("pitch", "pitch", f.pitch)
	set("rarity", "rarity", f.rarity)
	set("min-cost", "minCost", strconv.Itoa(f.minCost))
	set("max-cost", "maxCost", strconv.Itoa(f.maxCost))
	set("blitz", "blitz_legal", strconv.FormatBool(f.blitz))
	set("cc", "cc_legal", strconv.FormatBool(f.cc))
	set("commoner", "commoner_legal", strconv.FormatBool(f.commoner))
	set("sort", "sortField", f.sortField)
	set("dir", "sortDir", f.sortDir)
	set("page", "page", strconv.Itoa(f.page))
	set("limit", "limit", strconv.Itoa(f.limit))
	return v
}

func newSearchCmd() *cobra.Command {
	var (
		api    string
		asJSON bool
		f      searchFlags
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog through a running API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: 15 * time.Second}
			res, err := searchRemote(cmd.Context(), client, api, f.values(cmd))
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPITCH\tCOST\tTYPES\tRARITY")
			for _, c := range res.Cards {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.CardID, c.Name, c.Pitch, c.Cost, strings.Join(c.Types, ","), c.Rarity)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			heading.Fprintf(cmd.OutOrStdout(), "\npage %d/%d, %d cards\n", res.Page, res.TotalPages, res.Total)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&api, "api", defaultAPI, "API base URL")
	fl.BoolVar(&asJSON, "json", false, "print the raw response")
	fl.StringVarP(&f.query, "query", "q", "", "name contains")
	fl.StringVar(&f.class, "class", "", "hero class, e.g. Ninja")
	fl.StringVar(&f.cardType, "type", "", "card type, e.g. Action")
	fl.StringVar(&f.keyword, "keyword", "", "keyword contains")
	fl.StringVar(&f.pitch, "pitch", "", "exact pitch value")
	fl.StringVar(&f.rarity, "rarity", "", "printing rarity")
	fl.IntVar(&f.minCost, "min-cost", 0, "minimum cost")
	fl.IntVar(&f.maxCost, "max-cost", 0, "maximum cost")
	fl.BoolVar(&f.blitz, "blitz", false, "only Blitz legal cards")
	fl.BoolVar(&f.cc, "cc", false, "only Classic Constructed legal cards")
	fl.BoolVar(&f.commoner, "commoner", false, "only Commoner legal cards")
	fl.StringVar(&f.sortField, "sort", "name", "sort field: name, cost, pitch")
	fl.StringVar(&f.sortDir, "dir", "asc", "sort direction: asc, desc")
	fl.IntVar(&f.page, "page", 1, "page number")
	fl.IntVar(&f.limit, "limit", catalog.DefaultLimit, "page size")
	return cmd
}

func searchRemote(ctx context.Context, client *http.Client, baseURL string, params url.Values) (*catalog.SearchResult, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/api/cards/search")
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	u.RawQuery = params.Encode()

	var res catalog.SearchResult
	if err := getJSON(ctx, client, u.String(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s failed: %s", endpoint, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		api    string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live stock updates from a running API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wsURL, err := websocketURL(api, "/ws")
			if err != nil {
				return err
			}
			logger := opts.logger()
			ctx := cmd.Context()

			for {
				err := watchOnce(ctx, wsURL, pretty, cmd.OutOrStdout())
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("watch disconnected", "url", wsURL, "err", err)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}

	cmd.Flags().StringVar(&api, "api", defaultAPI, "API base URL")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "pretty print JSON events")
	return cmd
}

// watchOnce prints every message from one websocket session until the
// connection drops or ctx is done.
func watchOnce(ctx context.Context, wsURL string, pretty bool, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("server closed the connection")
			}
			return err
		}
		faint.Fprintln(out, time.Now().Format(time.TimeOnly))
		fmt.Fprintln(out, formatEvent(msg, pretty))
	}
}

func formatEvent(msg []byte, pretty bool) string {
	if !pretty {
		return string(msg)
	}
	var obj map[string]any
	if err := json.Unmarshal(msg, &obj); err != nil {
		return string(msg)
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return string(msg)
	}
	return string(b)
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid api url %q", baseURL)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
