package observer

import (
	"testing"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/mutation"
)

func TestDecodeDelivery(t *testing.T) {
	payload := `{"concern":"chat","records":[{"kind":"childList","target":{"key":4,"type":1,"tag":"div","html":"<div id=\"boxMessages\"></div>"},"ancestors":[4,3,2],"added":[{"key":9,"type":1,"tag":"p","html":"<p><b>Alice: </b><span>hi</span></p>"}]}]}`

	b, err := decodeDelivery("page-1", payload)
	if err != nil {
		t.Fatalf("decodeDelivery: %v", err)
	}
	if b.Concern != mutation.ConcernChat || b.PageID != "page-1" {
		t.Errorf("got concern %q page %q", b.Concern, b.PageID)
	}
	if b.ID == "" || b.Timestamp == 0 {
		t.Error("batch must carry an id and a timestamp")
	}
	if len(b.Records) != 1 {
		t.Fatalf("records: got %d, want 1", len(b.Records))
	}
	rec := b.Records[0]
	if rec.Kind != mutation.KindChildList || rec.Target.Key != 4 || len(rec.Ancestors) != 3 {
		t.Errorf("record: got %+v", rec)
	}
	if len(rec.Added) != 1 || rec.Added[0].Key != 9 || rec.Added[0].Tag != "p" {
		t.Errorf("added: got %+v", rec.Added)
	}
}

func TestDecodeDelivery_Rejects(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":        `[{`,
		"unknown concern": `{"concern":"weather","records":[]}`,
		"missing concern": `{"records":[]}`,
	} {
		if _, err := decodeDelivery("p", payload); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

type keyedElement struct {
	anchor.Element
	key mutation.NodeKey
}

func (e keyedElement) Key() mutation.NodeKey { return e.key }

func TestTargets(t *testing.T) {
	elems := make(map[anchor.Name]anchor.Element)
	for i, n := range anchor.Names {
		elems[n] = keyedElement{key: mutation.NodeKey(i + 1)}
	}
	set, err := anchor.NewSet(elems)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	targets, err := Targets(set)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	for _, c := range mutation.Concerns {
		if len(targets[c]) == 0 {
			t.Errorf("concern %s has no target", c)
		}
	}

	players := elems[anchor.Players].(keyedElement).key
	if got := targets[mutation.ConcernDrawing][0]; got.Key != players || !got.Options.Subtree || !got.Options.Attributes {
		t.Errorf("drawing target: got %+v", got)
	}
	if got := targets[mutation.ConcernPlayers][0]; !got.Seed || got.Options.Subtree {
		t.Errorf("players target: got %+v", got)
	}
	if n := len(targets[mutation.ConcernWordList]); n != 2 {
		t.Errorf("word list targets: got %d, want 2", n)
	}
}

type plainElement struct{ anchor.Element }

func TestTargets_RequiresPageElements(t *testing.T) {
	elems := make(map[anchor.Name]anchor.Element)
	for _, n := range anchor.Names {
		elems[n] = plainElement{}
	}
	set, err := anchor.NewSet(elems)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if _, err := Targets(set); err == nil {
		t.Fatal("expected error for elements without keys")
	}
}
