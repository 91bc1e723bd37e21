package engine

import (
	"fmt"
	"strings"

	"github.com/Tsinling0525/journeyflow/model"
)

// ValidationResult lists every structural problem of a journey.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidationError is returned when a simulation refuses to start.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid journey: %s", strings.Join(e.Errors, "; "))
}

// Validate checks the structural rules a journey must satisfy before it can
// be simulated. It never stops at the first violation and reports errors in
// node declaration order.
func Validate(j *model.Journey) ValidationResult {
	errs := []string{}

	known := make(map[model.ID]bool, len(j.Nodes))
	entries := 0
	for _, n := range j.Nodes {
		known[n.ID] = true
		if n.Kind == model.KindEntry {
			entries++
		}
	}
	if entries == 0 {
		errs = append(errs, "Flow must have at least one Entry node.")
	}

	incoming := map[model.ID]int{}
	outgoing := map[model.ID]int{}
	for _, e := range j.Edges {
		if !known[e.Source] {
			errs = append(errs, fmt.Sprintf("Edge %q starts at unknown node %q.", e.ID, e.Source))
		}
		if !known[e.Target] {
			errs = append(errs, fmt.Sprintf("Edge %q points at unknown node %q.", e.ID, e.Target))
		}
		outgoing[e.Source]++
		incoming[e.Target]++
	}

	for _, n := range j.Nodes {
		name := n.DisplayName()
		if n.Kind != model.KindEntry && incoming[n.ID] == 0 {
			errs = append(errs, fmt.Sprintf("Node %q is disconnected (no incoming connection).", name))
		}
		if n.Kind != model.KindEnd && outgoing[n.ID] == 0 {
			errs = append(errs, fmt.Sprintf("Node %q has no outgoing connection. Connect it to another node or an End node.", name))
		}
		if n.Kind == model.KindEnd && outgoing[n.ID] > 0 {
			errs = append(errs, fmt.Sprintf("End node %q should not have outgoing connections.", name))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
