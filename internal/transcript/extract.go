// Package transcript renders reconstructed chat session documents as plain
// text conversations. The session schema moved around across editor builds,
// so every field access probes the shape it expects and degrades to empty
// output instead of failing.
package transcript

import (
	"strings"
)

// DefaultAssistantLabel prefixes assistant turns unless overridden.
const DefaultAssistantLabel = "GitHub Copilot"

// terminalToolID marks tool parts that ran a shell command; those render as
// the command line itself rather than the generic invocation text.
const terminalToolID = "run_in_terminal"

// Extractor converts session documents into transcript text.
type Extractor struct {
	AssistantLabel string
}

func (e Extractor) label() string {
	if e.AssistantLabel != "" {
		return e.AssistantLabel
	}
	return DefaultAssistantLabel
}

// Render produces one transcript from the given session documents, in the
// order supplied (callers sort session files by modification time). Sessions
// are separated by a `---` line surrounded by blank lines. The empty string
// means no conversation content was found at all.
func (e Extractor) Render(docs []any) string {
	var chunks []string

	for _, doc := range docs {
		session, ok := doc.(map[string]any)
		if !ok {
			continue
		}

		if title := trimmedString(session["customTitle"]); title != "" {
			chunks = append(chunks, "Session: "+title)
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
			if user := ExtractUserText(req["message"]); user != "" {
				chunks = append(chunks, "User: "+user)
			}
			if assistant := ExtractAssistantText(req["response"]); assistant != "" {
				chunks = append(chunks, e.label()+": "+assistant)
			}
			chunks = append(chunks, "")
		}

		chunks = append(chunks, "---", "")
	}

	text := strings.TrimRight(strings.Join(chunks, "\n"), " \t\n") + "\n"
	if strings.Trim(text, "\n- ") == "" {
		return ""
	}
	return text
}

// ExtractUserText pulls the user-visible text out of a request message.
// Historical shapes: a plain string, an object with a text field, or an
// object with a parts list whose elements are strings or objects exposing a
// text field.
func ExtractUserText(message any) string {
	switch msg := message.(type) {
	case string:
		return strings.TrimSpace(msg)
	case map[string]any:
		if text, ok := msg["text"].(string); ok {
			return strings.TrimSpace(text)
		}
		parts, ok := msg["parts"].([]any)
		if !ok {
			return ""
		}
		var b strings.Builder
		for _, part := range parts {
			switch p := part.(type) {
			case string:
				b.WriteString(p)
			case map[string]any:
				if text, ok := p["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}

// ExtractAssistantText pulls the assistant-visible text out of a request
// response: a plain string, an object with a value field, or a list of typed
// parts. Part lists keep adjacent-duplicate suppression: a line is dropped
// only when identical to the immediately preceding buffered line.
func ExtractAssistantText(response any) string {
	switch resp := response.(type) {
	case string:
		return strings.TrimSpace(resp)
	case map[string]any:
		return trimmedString(resp["value"])
	case []any:
		var lines []string
		for _, item := range resp {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			lines = renderPart(lines, decodePart(part))
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}
	return ""
}

type partKind int

const (
	partPlainText partKind = iota
	partToolInvocation
	partOther
)

// responsePart is the closed set of response part shapes the renderer
// understands. Unknown kinds decode as partOther and contribute nothing.
type responsePart struct {
	kind             partKind
	text             string
	pastTense        string
	invocation       string
	hasResultDetails bool
	resultInput      string
	resultOutputHead string
	toolID           string
	commandLine      string
}

func decodePart(m map[string]any) responsePart {
	if m["kind"] == nil {
		return responsePart{kind: partPlainText, text: trimmedString(m["value"])}
	}
	if m["kind"] != "toolInvocationSerialized" {
		return responsePart{kind: partOther}
	}

	part := responsePart{kind: partToolInvocation}
	if pt, ok := m["pastTenseMessage"].(map[string]any); ok {
		part.pastTense = trimmedString(pt["value"])
	}
	part.invocation = trimmedString(m["invocationMessage"])
	if details, ok := m["resultDetails"].(map[string]any); ok {
		part.hasResultDetails = true
		part.resultInput = trimmedString(details["input"])
		if output, ok := details["output"].([]any); ok && len(output) > 0 {
			if first, ok := output[0].(map[string]any); ok {
				// Tool output is often long; only the first line survives.
				part.resultOutputHead = firstLine(trimmedString(first["value"]))
			}
		}
	}
	part.toolID, _ = m["toolId"].(string)
	if data, ok := m["toolSpecificData"].(map[string]any); ok {
		part.commandLine = trimmedString(data["commandLine"])
	}
	return part
}

func renderPart(lines []string, part responsePart) []string {
	switch part.kind {
	case partPlainText:
		return appendUnlessRepeat(lines, part.text)

	case partToolInvocation:
		// The past tense message is already human friendly; prefer it.
		if part.pastTense != "" {
			return appendUnlessRepeat(lines, part.pastTense)
		}
		lines = appendUnlessRepeat(lines, part.invocation)
		if part.hasResultDetails {
			if part.resultInput != "" {
				lines = appendUnlessRepeat(lines, "Completed with input: "+part.resultInput)
			}
			if part.resultOutputHead != "" {
				lines = appendUnlessRepeat(lines, part.resultOutputHead)
			}
			return lines
		}
		if part.toolID == terminalToolID && part.commandLine != "" {
			return appendUnlessRepeat(lines, "Ran terminal command: "+part.commandLine)
		}
		return lines
	}

	return lines
}

// appendUnlessRepeat buffers line unless it is empty or identical to the
// immediately preceding buffered line.
func appendUnlessRepeat(lines []string, line string) []string {
	if line == "" {
		return lines
	}
	if len(lines) > 0 && lines[len(lines)-1] == line {
		return lines
	}
	return append(lines, line)
}

func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
