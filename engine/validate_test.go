package engine

import (
	"reflect"
	"testing"

	"github.com/Tsinling0525/journeyflow/model"
)

func TestValidateAcceptsWellFormedJourney(t *testing.T) {
	res := Validate(waitJourney())
	if !res.IsValid || len(res.Errors) != 0 {
		t.Errorf("Expected valid journey, got %v", res.Errors)
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	j := &model.Journey{
		Nodes: []*model.Node{
			{ID: "m", Kind: model.KindEmail, Label: "Welcome", Config: model.EmailConfig{}},
			{ID: "x", Kind: model.KindEnd, Config: model.EndConfig{}},
			{ID: "y", Kind: model.KindEnd, Label: "Tail", Config: model.EndConfig{}},
		},
		Edges: []*model.Edge{
			{ID: "a", Source: "y", Target: "m"},
			{ID: "b", Source: "m", Target: "ghost"},
		},
	}
	res := Validate(j)
	if res.IsValid {
		t.Fatal("Expected invalid journey")
	}
	expected := []string{
		"Flow must have at least one Entry node.",
		`Edge "b" points at unknown node "ghost".`,
		`Node "x" is disconnected (no incoming connection).`,
		`Node "Tail" is disconnected (no incoming connection).`,
		`End node "Tail" should not have outgoing connections.`,
	}
	if !reflect.DeepEqual(res.Errors, expected) {
		t.Errorf("Unexpected errors:\n got %q\nwant %q", res.Errors, expected)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	j := waitJourney()
	j.Edges = j.Edges[:1]
	first := Validate(j)
	second := Validate(j)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %v and %v", first, second)
	}
	if len(first.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %q", first.Errors)
	}
}
