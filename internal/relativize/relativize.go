// Package relativize rewrites absolute paths and file URIs in rendered
// transcript text so they read relative to the workspace. Transcripts carry
// machine-specific prefixes in two forms: verbatim absolute paths and
// percent-encoded file:/// URIs inside parentheses.
package relativize

import (
	"net/url"
	"regexp"
	"strings"
)

var uriPattern = regexp.MustCompile(`\((file:///[^)]+)\)`)

// Rewrite deletes the given base prefixes from text. Bases are tried in the
// order supplied. Plain occurrences are matched verbatim in both native and
// forward-slash separator variants; parenthesized file URIs are decoded and
// matched case-insensitively, tolerating drive-letter casing differences,
// with the retained suffix keeping its original case.
func Rewrite(text string, bases ...string) string {
	// URIs first: a base can be a verbatim substring of its own URI form,
	// and plain deletion would leave a half-rewritten token behind.
	text = rewriteURIs(text, bases)

	for _, base := range bases {
		for _, form := range plainForms(base) {
			text = strings.ReplaceAll(text, form+`\`, "")
			text = strings.ReplaceAll(text, form+"/", "")
		}
	}
	return text
}

func rewriteURIs(text string, bases []string) string {
	return uriPattern.ReplaceAllStringFunc(text, func(token string) string {
		uri := token[1 : len(token)-1]
		decoded, err := url.PathUnescape(uri)
		if err != nil {
			return token
		}
		path := strings.TrimPrefix(decoded, "file:///")
		path = strings.ReplaceAll(path, `\`, "/")

		for _, base := range bases {
			for _, prefix := range uriPrefixes(base) {
				if !strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix)) {
					continue
				}
				rel := strings.TrimLeft(path[len(prefix):], "/")
				return "(" + rel + ")"
			}
		}
		return token
	})
}

// plainForms returns the verbatim forms of base that may appear in text:
// the native spelling and the forward-slash spelling, trailing separators
// stripped.
func plainForms(base string) []string {
	forward := strings.ReplaceAll(base, `\`, "/")
	forms := []string{strings.TrimRight(base, `\/`)}
	if f := strings.TrimRight(forward, "/"); f != forms[0] {
		forms = append(forms, f)
	}
	var out []string
	for _, f := range forms {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// uriPrefixes returns candidate spellings of base for matching the path part
// of a decoded file URI: the forward-slash form without its leading
// separator, plus drive-letter permutations ("/c/proj" also matches
// "c:/proj" and vice versa).
func uriPrefixes(base string) []string {
	forward := strings.TrimRight(strings.ReplaceAll(base, `\`, "/"), "/")
	trimmed := strings.TrimLeft(forward, "/")
	if trimmed == "" {
		return nil
	}

	prefixes := []string{trimmed}
	if len(trimmed) >= 2 {
		switch {
		case trimmed[1] == ':':
			// "c:/proj" also appears as "c/proj" in MSYS-style paths.
			prefixes = append(prefixes, trimmed[:1]+trimmed[2:])
		case trimmed[1] == '/' && isDriveLetter(trimmed[0]):
			// "/c/proj" stands for the drive form "c:/proj".
			prefixes = append(prefixes, trimmed[:1]+":"+trimmed[1:])
		}
	}
	return prefixes
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
