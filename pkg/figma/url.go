package figma

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/hellenic-development/design-audit/pkg/apperr"
)

// Anchored so that look-alike hosts and paths are rejected.
var fileKeyPattern = regexp.MustCompile(`^https?://(?:www\.)?figma\.com/(?:file|design|proto|board)/([A-Za-z0-9]+)(?:[/?#]|$)`)

// ExtractFileKey extracts the unique file identifier from a Figma URL.
// Supports /file/, /design/, /proto/ and /board/ URL patterns
// (e.g., figma.com/design/ABC123/Design-Name).
func ExtractFileKey(figmaURL string) (string, error) {
	matches := fileKeyPattern.FindStringSubmatch(strings.TrimSpace(figmaURL))
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Figma URL format: must be a valid figma.com URL with /file/ or /design/ path")
	}
	return matches[1], nil
}

// ExtractNodeIDs returns the node ids referenced by a Figma URL, in order and
// without duplicates. It understands the node-id query parameter (where the
// browser writes 12-34 for node 12:34), the #12:34 fragment form and the
// /nodes/12:34 path form. A URL without node ids yields an empty slice.
func ExtractNodeIDs(figmaURL string) ([]string, error) {
	u, err := url.Parse(strings.TrimSpace(figmaURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	var raw string
	switch {
	case u.Query().Get("node-id") != "":
		raw = u.Query().Get("node-id")
	case u.Fragment != "":
		raw = u.Fragment
	default:
		if i := strings.Index(u.Path, "/nodes/"); i >= 0 {
			raw = u.Path[i+len("/nodes/"):]
		}
	}

	ids := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		ids = append(ids, strings.ReplaceAll(id, "-", ":"))
	}

	return deduplicateNodeIDs(ids), nil
}

// ParseFileHandle turns a Figma URL into a FileHandle. The first node id in
// the URL, if any, pins the handle to that node. Malformed input is a
// validation error and never reaches the network.
func ParseFileHandle(figmaURL string) (FileHandle, error) {
	if strings.TrimSpace(figmaURL) == "" {
		return FileHandle{}, apperr.New(apperr.KindValidation, "A Figma URL is required")
	}

	key, err := ExtractFileKey(figmaURL)
	if err != nil {
		return FileHandle{}, apperr.Wrap(apperr.KindValidation, "Invalid Figma URL. Use a link like https://www.figma.com/design/<file-key>/<name>", err)
	}

	ids, err := ExtractNodeIDs(figmaURL)
	if err != nil {
		return FileHandle{}, apperr.Wrap(apperr.KindValidation, "Invalid Figma URL", err)
	}

	h := FileHandle{FileKey: key}
	if len(ids) > 0 {
		h.NodeID = ids[0]
	}
	return h, nil
}

func deduplicateNodeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
