// Package timing derives a best-effort active time window for a unit's chat
// sessions. The message-window strategy walks the reconstructed session
// documents; the index-record strategy falls back to the editor's own
// session index, which may include idle gaps.
package timing

import (
	"math"
	"time"
)

// WaitingBoundMS is the largest timeSpentWaiting value still treated as a
// millisecond duration. Some builds store an absolute epoch timestamp in the
// field instead; anything above one day is assumed to be one of those.
const WaitingBoundMS = 86_400_000

// SessionTiming is a closed start/end window in epoch milliseconds.
// StartMS <= EndMS always holds for values produced by this package.
type SessionTiming struct {
	StartMS int64
	EndMS   int64
}

// StartISO9075 renders the start in local time as "YYYY-MM-DD HH:MM:SS".
func (t SessionTiming) StartISO9075() string {
	return formatISO9075(t.StartMS)
}

// EndISO9075 renders the end in local time as "YYYY-MM-DD HH:MM:SS".
func (t SessionTiming) EndISO9075() string {
	return formatISO9075(t.EndMS)
}

func formatISO9075(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

// Estimator computes session time windows.
type Estimator struct {
	// WaitingBound overrides WaitingBoundMS when positive.
	WaitingBound int64
}

func (e Estimator) waitingBound() int64 {
	if e.WaitingBound > 0 {
		return e.WaitingBound
	}
	return WaitingBoundMS
}

// MessageWindow computes the window from the first user message sent to the
// last response completed, over all requests in all given session documents.
// Per request: start is the integer timestamp (requests without one are
// skipped); end is timestamp plus result.timings.totalElapsed when that is a
// non-negative integer, further extended by timeSpentWaiting when the field
// looks like a plausible duration. The second return value is false when no
// request yielded a start.
func (e Estimator) MessageWindow(docs []any) (SessionTiming, bool) {
	var starts, ends []int64

	for _, doc := range docs {
		session, ok := doc.(map[string]any)
		if !ok {
			continue
		}
		requests, ok := session["requests"].([]any)
		if !ok {
			continue
		}

		for _, item := range requests {
			req, ok := item.(map[string]any)
			if !ok {
				continue
			}
			ts, ok := asInt64(req["timestamp"])
			if !ok {
				continue
			}
			starts = append(starts, ts)

			end := ts
			if result, ok := req["result"].(map[string]any); ok {
				if timings, ok := result["timings"].(map[string]any); ok {
					if total, ok := asInt64(timings["totalElapsed"]); ok && total >= 0 {
						end = ts + total
					}
				}
			}
			if waiting, ok := asInt64(req["timeSpentWaiting"]); ok && waiting >= 0 && waiting <= e.waitingBound() {
				if ts+waiting > end {
					end = ts + waiting
				}
			}
			ends = append(ends, end)
		}
	}

	return window(starts, ends)
}

func window(starts, ends []int64) (SessionTiming, bool) {
	if len(starts) == 0 || len(ends) == 0 {
		return SessionTiming{}, false
	}
	t := SessionTiming{StartMS: starts[0], EndMS: ends[0]}
	for _, s := range starts[1:] {
		if s < t.StartMS {
			t.StartMS = s
		}
	}
	for _, e := range ends[1:] {
		if e > t.EndMS {
			t.EndMS = e
		}
	}
	if t.EndMS < t.StartMS {
		t.EndMS = t.StartMS
	}
	return t, true
}

// asInt64 accepts only integral JSON numbers, mirroring the strict integer
// checks the session schema demands of timestamps and durations.
func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
