package document

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// EventKind discriminates the structural mutation records found in
// incremental session logs.
type EventKind int

const (
	// KindSnapshot replaces the whole document.
	KindSnapshot EventKind = 0
	// KindSet replaces the value at a path.
	KindSet EventKind = 1
	// KindInsert splices values into the sequence at a path.
	KindInsert EventKind = 2
)

// Event is one structural mutation applied during replay.
type Event struct {
	Kind   EventKind
	Path   []Segment
	Value  any   // KindSnapshot and KindSet payload
	Values []any // KindInsert payload
	Index  int
}

// Replay builds a document by applying events strictly in stream order.
// Mutations arriving before the first snapshot are dropped: there is no
// container to navigate into yet. Per-event failures (unresolvable path,
// type mismatch, out-of-range index) reduce to no-ops so that a partially
// corrupt log still yields whatever the remaining events describe. The
// second return value reports whether any snapshot established a root; it
// distinguishes an empty stream from a legitimate null document.
func Replay(events []Event) (any, bool) {
	var root any
	established := false

	for _, evt := range events {
		switch evt.Kind {
		case KindSnapshot:
			root = evt.Value
			established = true
		case KindSet:
			if established {
				Set(root, evt.Path, evt.Value)
			}
		case KindInsert:
			if established {
				root = Insert(root, evt.Path, evt.Index, evt.Values)
			}
		}
	}

	return root, established
}

// rawRecord mirrors one line of an incremental session log.
type rawRecord struct {
	Kind *int            `json:"kind"`
	K    json.RawMessage `json:"k"`
	V    json.RawMessage `json:"v"`
	I    *int            `json:"i"`
}

// DecodeRecord parses one log line into an Event. A record of kind 2 that
// carries no explicit index degrades to a set of the value at the path,
// matching how the writer serialises single-element updates.
func DecodeRecord(line []byte) (Event, error) {
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return Event{}, fmt.Errorf("unmarshal record: %w", err)
	}
	if rec.Kind == nil {
		return Event{}, errors.New("record has no kind")
	}

	var value any
	if len(rec.V) > 0 {
		if err := json.Unmarshal(rec.V, &value); err != nil {
			return Event{}, fmt.Errorf("unmarshal value: %w", err)
		}
	}

	switch EventKind(*rec.Kind) {
	case KindSnapshot:
		return Event{Kind: KindSnapshot, Value: value}, nil

	case KindSet:
		path, err := decodePath(rec.K)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindSet, Path: path, Value: value}, nil

	case KindInsert:
		path, err := decodePath(rec.K)
		if err != nil {
			return Event{}, err
		}
		if rec.I == nil {
			return Event{Kind: KindSet, Path: path, Value: value}, nil
		}
		values, ok := value.([]any)
		if !ok {
			values = []any{value}
		}
		return Event{Kind: KindInsert, Path: path, Index: *rec.I, Values: values}, nil
	}

	return Event{}, fmt.Errorf("unknown record kind %d", *rec.Kind)
}

func decodePath(raw json.RawMessage) ([]Segment, error) {
	if len(raw) == 0 {
		return nil, errors.New("record has no path")
	}
	var elems []any
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}

	path := make([]Segment, 0, len(elems))
	for _, elem := range elems {
		switch v := elem.(type) {
		case string:
			path = append(path, Key(v))
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("non-integer path index %v", v)
			}
			path = append(path, Index(int(v)))
		default:
			return nil, fmt.Errorf("unsupported path segment %T", elem)
		}
	}
	return path, nil
}

// LoadSessionFile reconstructs one session document from disk. A .json file
// is a single full snapshot; a .jsonl file is an ordered log of discrete
// records, replayed line by line with unparseable lines skipped. The second
// return value is false when the file could not be read or yielded no
// document at all.
func LoadSessionFile(path string) (any, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, false
		}
		return doc, true

	case ".jsonl":
		file, err := os.Open(path)
		if err != nil {
			return nil, false
		}
		defer file.Close()

		var events []Event

		scanner := newScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			evt, err := DecodeRecord([]byte(line))
			if err != nil {
				continue
			}
			events = append(events, evt)
		}
		if err := scanner.Err(); err != nil {
			return nil, false
		}
		return Replay(events)
	}

	return nil, false
}

func newScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	// Allow large payloads such as embedded tool output.
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}
