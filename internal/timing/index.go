package timing

import "encoding/json"

// SessionIndexKey is the key the editor stores its chat session index under
// in the per-workspace state database.
const SessionIndexKey = "chat.ChatSessionStore.index"

// FromIndexRecord computes a window from a serialized session index record:
// an object whose entries mapping carries per-session timing. Field names
// shifted across editor builds, so each entry is probed against three
// variants in priority order: timing.startTime/endTime, then
// timing.created/lastRequestEnded, then timing.created with the entry's own
// lastMessageDate. Entries matching no variant are skipped; false is
// returned when nothing matched or the record does not parse.
func (e Estimator) FromIndexRecord(raw []byte) (SessionTiming, bool) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return SessionTiming{}, false
	}
	root, ok := payload.(map[string]any)
	if !ok {
		return SessionTiming{}, false
	}
	entries, ok := root["entries"].(map[string]any)
	if !ok {
		return SessionTiming{}, false
	}

	var starts, ends []int64
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entryTiming, _ := entry["timing"].(map[string]any)

		if start, ok := asInt64(entryTiming["startTime"]); ok {
			if end, ok := asInt64(entryTiming["endTime"]); ok {
				starts = append(starts, start)
				ends = append(ends, end)
				continue
			}
		}

		if created, ok := asInt64(entryTiming["created"]); ok {
			if ended, ok := asInt64(entryTiming["lastRequestEnded"]); ok {
				starts = append(starts, created)
				ends = append(ends, ended)
				continue
			}
			if last, ok := asInt64(entry["lastMessageDate"]); ok {
				starts = append(starts, created)
				ends = append(ends, last)
			}
		}
	}

	return window(starts, ends)
}
