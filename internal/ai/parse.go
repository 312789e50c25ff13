package ai

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
)

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimRight(s, " \t\r\n")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseResponse extracts the files array from the model reply. Entries
// without a path, or with neither content nor a deletion flag, are
// skipped and show up as missing during validation.
func parseResponse(text string) (resolver.Response, error) {
	body := stripFences(text)

	// Tolerate prose around the object
	start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return resolver.Response{}, errors.New("reply contains no JSON object")
	}
	body = body[start : end+1]

	if !gjson.Valid(body) {
		return resolver.Response{}, errors.New("reply is not valid JSON")
	}

	files := gjson.Get(body, "files")
	if !files.IsArray() {
		return resolver.Response{}, errors.New(`reply has no "files" array`)
	}

	var resp resolver.Response
	for _, f := range files.Array() {
		path := f.Get("path").String()
		if path == "" {
			continue
		}
		deleted := f.Get("deleted").Bool()
		content := f.Get("resolved_content")
		if !deleted && !content.Exists() {
			continue
		}
		resp.Files = append(resp.Files, resolver.ResolvedFile{
			Path:    path,
			Content: content.String(),
			Delete:  deleted,
		})
	}

	return resp, nil
}
