package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/format/journey"
)

// --- Instance CLI helpers (call the local API) ---

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(cmd *cobra.Command) (*apiClient, error) {
	base, _ := cmd.Flags().GetString("api")
	if base == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		base = apiBase(cfg.Server.Addr)
	}
	return &apiClient{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 30 * time.Second}}, nil
}

// apiBase turns a listen address into a loopback URL.
func apiBase(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}

// do sends payload as JSON and decodes the data of a successful response
// into out.
func (c *apiClient) do(method, path string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Errors  []string        `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: %s: %w", method, path, resp.Status, err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed: " + resp.Status
		}
		if len(env.Errors) > 0 {
			msg += ": " + strings.Join(env.Errors, "; ")
		}
		return errors.New(msg)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type instanceView struct {
	Instance struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		JourneyID string    `json:"journeyId"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"instance"`
	Status engine.Status `json:"status"`
}

func printInstance(cmd *cobra.Command, v instanceView) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(cmd, v)
	}
	st := v.Status
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tx%g\ttick %d\tactive %d\twaiting %d\t%s\n",
		v.Instance.ID, st.State, st.Speed, st.Tick, st.TotalActive, st.TotalWaiting, v.Instance.Name)
	return nil
}

func newInstCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inst",
		Short: "Manage simulations hosted by a running server",
	}
	cmd.PersistentFlags().String("api", "", "API base URL (default derived from server.addr)")

	create := &cobra.Command{
		Use:   "create <journey.json>",
		Short: "Host a journey document as a new instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journey.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := journey.FromJourney(j)
			if err != nil {
				return err
			}
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			var v instanceView
			if err := c.do(http.MethodPost, "/instances", map[string]any{"journey": doc, "name": name}, &v); err != nil {
				return err
			}
			return printInstance(cmd, v)
		},
	}
	create.Flags().String("name", "", "Instance name (default the journey name)")

	ps := &cobra.Command{
		Use:   "ps",
		Short: "List hosted instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var data struct {
				Instances []instanceView `json:"instances"`
			}
			if err := c.do(http.MethodGet, "/instances", nil, &data); err != nil {
				return err
			}
			for _, v := range data.Instances {
				if err := printInstance(cmd, v); err != nil {
					return err
				}
			}
			return nil
		},
	}

	step := &cobra.Command{
		Use:   "step <id>",
		Short: "Run ticks by hand; a stopped instance is started paused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("n")
			var data struct {
				Tick engine.TickSummary `json:"tick"`
			}
			path := "/instances/" + url.PathEscape(args[0]) + "/step?n=" + strconv.Itoa(n)
			if err := c.do(http.MethodPost, path, nil, &data); err != nil {
				return err
			}
			t := data.Tick
			fmt.Fprintf(cmd.OutOrStdout(), "tick %d  %s  generated %d  released %d  active %d  waiting %d\n",
				t.Tick, t.Now.Format(time.RFC3339), t.Generated, t.Released, t.Active, t.Waiting)
			return nil
		},
	}
	step.Flags().Int("n", 1, "Number of ticks")

	speed := &cobra.Command{
		Use:   "speed <id> <multiplier>",
		Short: "Change the tick rate of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := strconv.ParseFloat(args[1], 64)
			if err != nil || m <= 0 {
				return fmt.Errorf("speed must be a positive number, got %q", args[1])
			}
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var v instanceView
			if err := c.do(http.MethodPost, "/instances/"+url.PathEscape(args[0])+"/speed", map[string]float64{"speed": m}, &v); err != nil {
				return err
			}
			return printInstance(cmd, v)
		},
	}

	logs := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print the run log of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			path := "/instances/" + url.PathEscape(args[0]) + "/logs"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			var data struct {
				Logs []engine.LogEntry `json:"logs"`
			}
			if err := c.do(http.MethodGet, path, nil, &data); err != nil {
				return err
			}
			for _, l := range data.Logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%6d  %-12s %s\n", l.Tick, l.NodeID, l.Message)
			}
			return nil
		},
	}
	logs.Flags().Int("limit", 0, "Only print the last N entries")

	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Download the journey of an instance with its current stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var data struct {
				Journey journey.Document `json:"journey"`
			}
			if err := c.do(http.MethodGet, "/instances/"+url.PathEscape(args[0])+"/export", nil, &data); err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return writeJSON(cmd, data.Journey)
			}
			b, err := json.MarshalIndent(data.Journey, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	export.Flags().String("out", "", "Write to this file instead of stdout")

	cmd.AddCommand(create, ps, step, speed, logs, export,
		instControlCmd("start", "Start or resume an instance", http.MethodPost, "/start"),
		instControlCmd("pause", "Pause automatic ticking", http.MethodPost, "/pause"),
		instControlCmd("stop", "Stop a run; stats stay readable", http.MethodPost, "/stop"),
		instControlCmd("show", "Show the status of an instance", http.MethodGet, ""),
	)

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			if err := c.do(http.MethodDelete, "/instances/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removed", args[0])
			return nil
		},
	}
	cmd.AddCommand(rm)
	return cmd
}

// instControlCmd builds a subcommand that calls one status-returning route.
func instControlCmd(use, short, method, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var v instanceView
			if err := c.do(method, "/instances/"+url.PathEscape(args[0])+suffix, nil, &v); err != nil {
				return err
			}
			return printInstance(cmd, v)
		},
	}
}
