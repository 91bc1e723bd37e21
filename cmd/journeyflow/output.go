package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/model"
)

const (
	ansiReset = "\033[0m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiDim   = "\033[2m"
)

// useColor reports whether stdout should get ANSI colors. NO_COLOR wins.
func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func paint(on bool, code, s string) string {
	if !on || s == "" {
		return s
	}
	return code + s + ansiReset
}

// printReport writes the per-node and per-edge stats of a run.
func printReport(w io.Writer, st engine.Status, color bool) {
	fmt.Fprintf(w, "tick %d  %s  seed %d  active %d  waiting %d\n\n",
		st.Tick, st.Now.Format(time.RFC3339), st.Seed, st.TotalActive, st.TotalWaiting)
	if st.Journey == nil {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tKIND\tPROCESSED\tDROPPED\tWAITING\tRATE\tNEXT RELEASE")
	for _, n := range st.Journey.Nodes {
		s := n.Stats
		if s == nil {
			s = &model.NodeStats{}
		}
		rate := ""
		switch n.Kind {
		case model.KindEmail:
			rate = fmt.Sprintf("open %.0f%%", s.OpenRate)
		case model.KindEnd:
			rate = paint(color, ansiGreen, fmt.Sprintf("%d%%", s.CompletionRate))
		}
		dropped := ""
		if s.Dropped > 0 {
			dropped = paint(color, ansiRed, fmt.Sprint(s.Dropped))
		}
		next := ""
		if t := s.NextRelease(); !t.IsZero() {
			next = t.Format("Jan 2 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n", n.DisplayName(), n.Kind, s.Processed, dropped, s.Waiting, rate, next)
	}
	tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EDGE\tFROM\tTO\tUSERS\tSHARE")
	for _, e := range st.Journey.Edges {
		s := e.Stats
		if s == nil {
			s = &model.EdgeStats{}
		}
		share := paint(color, ansiDim, "-")
		if s.Percentage != nil {
			share = fmt.Sprintf("%d%%", *s.Percentage)
		}
		label := string(e.ID)
		if e.Outcome != model.OutcomeNone {
			label += " [" + strings.ToLower(string(e.Outcome)) + "]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", label, e.Source, e.Target, s.Processed, share)
	}
	tw.Flush()
}
