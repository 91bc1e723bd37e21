// Package journey reads and writes the editor's journey document: a JSON
// object with "nodes" and "edges" in the canvas library's shape.
package journey

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tsinling0525/journeyflow/model"
)

var ErrUnknownNodeType = errors.New("unknown node type")

// Document is the exported journey file.
type Document struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Position *model.Point `json:"position,omitempty"`
	Data     NodeData     `json:"data"`
}

type NodeData struct {
	Label  string           `json:"label"`
	Config json.RawMessage  `json:"config,omitempty"`
	Stats  *model.NodeStats `json:"stats,omitempty"`
}

type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle string    `json:"sourceHandle,omitempty"`
	Data         *EdgeData `json:"data,omitempty"`
}

type EdgeData struct {
	Stats *model.EdgeStats `json:"stats,omitempty"`
}

// Decode parses a JSON document into a journey.
func Decode(data []byte) (*model.Journey, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing journey document: %w", err)
	}
	return Parse(doc)
}

// Parse converts a document into a journey. Node types form a closed set;
// anything else is rejected with ErrUnknownNodeType.
func Parse(doc Document) (*model.Journey, error) {
	j := &model.Journey{ID: model.ID(doc.ID), Name: doc.Name}
	seen := map[string]bool{}
	for i, dn := range doc.Nodes {
		if strings.TrimSpace(dn.ID) == "" {
			return nil, fmt.Errorf("node %d: id is required", i)
		}
		if seen[dn.ID] {
			return nil, fmt.Errorf("node %s: duplicate id", dn.ID)
		}
		seen[dn.ID] = true

		kind := model.Kind(dn.Type)
		cfg, err := decodeConfig(kind, dn.Data.Config)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", dn.ID, err)
		}
		j.Nodes = append(j.Nodes, &model.Node{
			ID:       model.ID(dn.ID),
			Kind:     kind,
			Label:    dn.Data.Label,
			Config:   cfg,
			Position: dn.Position,
			Stats:    dn.Data.Stats,
		})
	}
	for i, de := range doc.Edges {
		id := de.ID
		if id == "" {
			id = fmt.Sprintf("e%s-%s-%d", de.Source, de.Target, i)
		}
		e := &model.Edge{
			ID:      model.ID(id),
			Source:  model.ID(de.Source),
			Target:  model.ID(de.Target),
			Outcome: model.Outcome(de.SourceHandle),
		}
		if de.Data != nil {
			e.Stats = de.Data.Stats
		}
		j.Edges = append(j.Edges, e)
	}
	return j, nil
}

func decodeConfig(k model.Kind, raw json.RawMessage) (model.Config, error) {
	switch k {
	case model.KindEntry:
		var c model.EntryConfig
		err := unmarshalConfig(raw, &c)
		return c, err
	case model.KindEmail:
		var c model.EmailConfig
		err := unmarshalConfig(raw, &c)
		return c, err
	case model.KindWait:
		var c model.WaitConfig
		err := unmarshalConfig(raw, &c)
		return c, err
	case model.KindSplit:
		var c model.SplitConfig
		err := unmarshalConfig(raw, &c)
		return c, err
	case model.KindEnd:
		var c model.EndConfig
		err := unmarshalConfig(raw, &c)
		return c, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, k)
}

func unmarshalConfig(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// FromJourney builds the document for j, stats included.
func FromJourney(j *model.Journey) (Document, error) {
	doc := Document{ID: string(j.ID), Name: j.Name, Nodes: []Node{}, Edges: []Edge{}}
	for _, n := range j.Nodes {
		var raw json.RawMessage
		if n.Config != nil {
			b, err := json.Marshal(n.Config)
			if err != nil {
				return Document{}, fmt.Errorf("node %s: encoding config: %w", n.ID, err)
			}
			raw = b
		}
		doc.Nodes = append(doc.Nodes, Node{
			ID:       string(n.ID),
			Type:     string(n.Kind),
			Position: n.Position,
			Data:     NodeData{Label: n.Label, Config: raw, Stats: n.Stats},
		})
	}
	for _, e := range j.Edges {
		de := Edge{
			ID:           string(e.ID),
			Source:       string(e.Source),
			Target:       string(e.Target),
			SourceHandle: string(e.Outcome),
		}
		if e.Stats != nil {
			de.Data = &EdgeData{Stats: e.Stats}
		}
		doc.Edges = append(doc.Edges, de)
	}
	return doc, nil
}

// Encode writes j as an indented JSON document.
func Encode(j *model.Journey) ([]byte, error) {
	doc, err := FromJourney(j)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*model.Journey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading journey: %w", err)
	}
	return Decode(b)
}

// WriteFile encodes j to path, creating parent directories.
func WriteFile(path string, j *model.Journey) error {
	b, err := Encode(j)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journey directory: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing journey: %w", err)
	}
	return nil
}
