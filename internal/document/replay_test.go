package document

import (
	"path/filepath"
	"reflect"
	"testing"
)

func fixturePath(parts ...string) string {
	elems := append([]string{"..", "..", "testdata", "sessions"}, parts...)
	return filepath.Join(elems...)
}

func TestReplaySnapshotOnly(t *testing.T) {
	for _, value := range []any{
		map[string]any{"k": "v"},
		[]any{float64(1)},
		"text",
		nil,
	} {
		doc, ok := Replay([]Event{{Kind: KindSnapshot, Value: value}})
		if !ok {
			t.Fatalf("snapshot did not establish a root")
		}
		if !reflect.DeepEqual(doc, value) {
			t.Fatalf("unexpected document: %v", doc)
		}
	}
}

func TestReplayMutationsBeforeSnapshotAreDropped(t *testing.T) {
	doc, ok := Replay([]Event{
		{Kind: KindSet, Path: []Segment{Key("a")}, Value: "early"},
		{Kind: KindInsert, Path: nil, Index: 0, Values: []any{"early"}},
		{Kind: KindSnapshot, Value: map[string]any{"a": "late"}},
	})
	if !ok {
		t.Fatalf("snapshot did not establish a root")
	}
	if !reflect.DeepEqual(doc, map[string]any{"a": "late"}) {
		t.Fatalf("unexpected document: %v", doc)
	}

	if _, ok := Replay([]Event{{Kind: KindSet, Path: []Segment{Key("a")}, Value: "x"}}); ok {
		t.Fatalf("mutation-only stream should not establish a root")
	}
}

func TestReplaySetAndInsert(t *testing.T) {
	doc, ok := Replay([]Event{
		{Kind: KindSnapshot, Value: map[string]any{
			"a": map[string]any{"b": []any{float64(1), float64(2)}},
		}},
		{Kind: KindSet, Path: []Segment{Key("a"), Key("b"), Index(0)}, Value: float64(9)},
		{Kind: KindInsert, Path: []Segment{Key("a"), Key("b")}, Index: 1, Values: []any{float64(5), float64(6)}},
	})
	if !ok {
		t.Fatalf("replay did not establish a root")
	}

	want := map[string]any{
		"a": map[string]any{"b": []any{float64(9), float64(5), float64(6), float64(2)}},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("unexpected document: %v", doc)
	}
}

func TestDecodeRecord(t *testing.T) {
	evt, err := DecodeRecord([]byte(`{"kind":0,"v":{"requests":[]}}`))
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if evt.Kind != KindSnapshot {
		t.Fatalf("unexpected kind: %d", evt.Kind)
	}

	evt, err = DecodeRecord([]byte(`{"kind":1,"k":["requests",0,"message"],"v":"hi"}`))
	if err != nil {
		t.Fatalf("decode set: %v", err)
	}
	wantPath := []Segment{Key("requests"), Index(0), Key("message")}
	if !reflect.DeepEqual(evt.Path, wantPath) {
		t.Fatalf("unexpected path: %v", evt.Path)
	}

	evt, err = DecodeRecord([]byte(`{"kind":2,"k":["requests"],"i":1,"v":[{"a":1}]}`))
	if err != nil {
		t.Fatalf("decode insert: %v", err)
	}
	if evt.Kind != KindInsert || evt.Index != 1 || len(evt.Values) != 1 {
		t.Fatalf("unexpected insert event: %+v", evt)
	}
}

func TestDecodeRecordScalarInsertWrapsValue(t *testing.T) {
	evt, err := DecodeRecord([]byte(`{"kind":2,"k":["requests"],"i":0,"v":"solo"}`))
	if err != nil {
		t.Fatalf("decode insert: %v", err)
	}
	if evt.Kind != KindInsert {
		t.Fatalf("unexpected kind: %d", evt.Kind)
	}
	if !reflect.DeepEqual(evt.Values, []any{"solo"}) {
		t.Fatalf("unexpected values: %v", evt.Values)
	}
}

func TestDecodeRecordInsertWithoutIndexDegradesToSet(t *testing.T) {
	// Writers serialise single-element updates as kind 2 without an index;
	// those carry set semantics for the value at the path.
	evt, err := DecodeRecord([]byte(`{"kind":2,"k":["isCanceled"],"v":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Kind != KindSet {
		t.Fatalf("expected set semantics, got kind %d", evt.Kind)
	}
	if evt.Value != true {
		t.Fatalf("unexpected value: %v", evt.Value)
	}
}

func TestDecodeRecordErrors(t *testing.T) {
	for _, line := range []string{
		`not json`,
		`{"v":1}`,
		`{"kind":1,"v":1}`,
		`{"kind":1,"k":[1.5],"v":1}`,
		`{"kind":1,"k":[true],"v":1}`,
		`{"kind":7,"k":["a"],"v":1}`,
	} {
		if _, err := DecodeRecord([]byte(line)); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}

func TestLoadSessionFileSnapshot(t *testing.T) {
	doc, ok := LoadSessionFile(fixturePath("full.json"))
	if !ok {
		t.Fatalf("LoadSessionFile failed")
	}
	m, ok := doc.(map[string]any)
	if !ok {
		t.Fatalf("expected mapping, got %T", doc)
	}
	if _, ok := m["requests"].([]any); !ok {
		t.Fatalf("expected requests sequence: %v", m)
	}
}

func TestLoadSessionFileEventLog(t *testing.T) {
	doc, ok := LoadSessionFile(fixturePath("events.jsonl"))
	if !ok {
		t.Fatalf("LoadSessionFile failed")
	}
	m, ok := doc.(map[string]any)
	if !ok {
		t.Fatalf("expected mapping, got %T", doc)
	}

	// The log snapshots one request, appends a second via kind 2, then
	// patches the first response via kind 1. A malformed line in between
	// must be skipped without aborting replay.
	requests, ok := m["requests"].([]any)
	if !ok || len(requests) != 2 {
		t.Fatalf("unexpected requests: %v", m["requests"])
	}
	first := requests[0].(map[string]any)
	if first["response"] != "patched response" {
		t.Fatalf("kind 1 patch not applied: %v", first)
	}
}

func TestLoadSessionFileRejectsUnknownExtension(t *testing.T) {
	if _, ok := LoadSessionFile(fixturePath("ignored.txt")); ok {
		t.Fatalf("unsupported extension should not load")
	}
	if _, ok := LoadSessionFile(fixturePath("does-not-exist.json")); ok {
		t.Fatalf("missing file should not load")
	}
}
