package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Tsinling0525/journeyflow/format/journey"
	"github.com/Tsinling0525/journeyflow/model"
)

var safeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalJourneys keeps journey documents as <dir>/<id>.json.
type LocalJourneys struct {
	Dir string
}

func NewLocalJourneys(p Paths) *LocalJourneys { return &LocalJourneys{Dir: p.JourneysDir()} }

func (l *LocalJourneys) path(id model.ID) (string, error) {
	name := safeName.ReplaceAllString(string(id), "_")
	if strings.Trim(name, "._") == "" {
		return "", fmt.Errorf("invalid journey id %q", id)
	}
	return filepath.Join(l.Dir, name+".json"), nil
}

func (l *LocalJourneys) Save(ctx context.Context, j *model.Journey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.path(j.ID)
	if err != nil {
		return err
	}
	if err := ensureDir(l.Dir); err != nil {
		return err
	}
	return journey.WriteFile(path, j)
}

func (l *LocalJourneys) Load(ctx context.Context, id model.ID) (*model.Journey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.path(id)
	if err != nil {
		return nil, err
	}
	return journey.ReadFile(path)
}

// List loads every stored journey, ordered by id.
func (l *LocalJourneys) List(ctx context.Context) ([]*model.Journey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := []*model.Journey{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		j, err := journey.ReadFile(filepath.Join(l.Dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if j.ID == "" {
			j.ID = model.ID(strings.TrimSuffix(e.Name(), ".json"))
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (l *LocalJourneys) Delete(ctx context.Context, id model.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
