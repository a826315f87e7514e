package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hellenic-development/design-audit/pkg/audit"
	"github.com/hellenic-development/design-audit/pkg/dispatcher"
	"github.com/hellenic-development/design-audit/pkg/exporter"
)

// AuditToMarkdown renders a single screen audit as a markdown report: the
// overall score and risk, a category score table, then every issue grouped
// by category with the most severe first.
func AuditToMarkdown(result *audit.AuditResult, screenName string) string {
	var sb strings.Builder

	title := "Design Audit"
	if screenName != "" {
		title += " - " + screenName
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	writeAudit(&sb, result, "##")

	return sb.String()
}

// MultiScreenToMarkdown renders the slots of a multi-screen run in input
// order, with a summary table linking to each screen's section.
func MultiScreenToMarkdown(title string, slots []dispatcher.ScreenAuditResult) string {
	var sb strings.Builder

	if title == "" {
		title = "Multi-Screen Design Audit"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	sb.WriteString("| # | Screen | Score | Risk | Issues |\n")
	sb.WriteString("|---|--------|-------|------|--------|\n")
	for i, s := range slots {
		name := screenTitle(s, i)
		link := fmt.Sprintf("[%s](#%s)", escapeCell(name), toKebabCase(fmt.Sprintf("%d %s", i+1, name)))
		switch {
		case s.IsLoading:
			sb.WriteString(fmt.Sprintf("| %d | %s | - | pending | - |\n", i+1, link))
		case s.Result == nil:
			sb.WriteString(fmt.Sprintf("| %d | %s | - | failed | - |\n", i+1, link))
		default:
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %d |\n", i+1, link, s.Result.OverallScore, s.Result.RiskLevel, s.Result.IssueCount()))
		}
	}
	sb.WriteString("\n")

	for i, s := range slots {
		sb.WriteString(fmt.Sprintf("## %d %s\n\n", i+1, screenTitle(s, i)))
		switch {
		case s.IsLoading:
			sb.WriteString("_Audit still running._\n\n")
		case s.Result == nil:
			sb.WriteString(fmt.Sprintf("> **Audit failed**: %s\n\n", s.Error))
		default:
			writeAudit(&sb, s.Result, "###")
		}
	}

	return sb.String()
}

// FramesToMarkdown lists exported frames with their rendered image links.
func FramesToMarkdown(res *exporter.Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Figma Frames - %s\n\n", res.FileName))
	sb.WriteString(fmt.Sprintf("Exported %d of %d frames from file `%s`.\n\n", res.ExportedFrames, res.TotalFrames, res.FileKey))

	sb.WriteString("| Frame | Node | Image |\n")
	sb.WriteString("|-------|------|-------|\n")
	for _, f := range res.Frames {
		img := "-"
		if f.ImageURL != nil {
			img = fmt.Sprintf("[png](%s)", *f.ImageURL)
		}
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", escapeCell(f.Name), f.NodeID, img))
	}
	sb.WriteString("\n")

	if len(res.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range res.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeAudit(sb *strings.Builder, r *audit.AuditResult, h string) {
	sb.WriteString(fmt.Sprintf("- **Overall Score**: %d/100\n", r.OverallScore))
	sb.WriteString(fmt.Sprintf("- **Risk Level**: %s\n", r.RiskLevel))
	sb.WriteString(fmt.Sprintf("- **Issues**: %d\n\n", r.IssueCount()))

	if r.Summary != "" {
		sb.WriteString(r.Summary + "\n\n")
	}

	if len(r.Categories) == 0 {
		return
	}

	sb.WriteString(fmt.Sprintf("%s Categories\n\n", h))
	sb.WriteString("| Category | Score | Issues |\n")
	sb.WriteString("|----------|-------|--------|\n")
	for _, c := range r.Categories {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", escapeCell(c.Name), c.Score, len(c.Issues)))
	}
	sb.WriteString("\n")

	for _, c := range r.Categories {
		if len(c.Issues) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s# %s\n\n", h, c.Name))

		issues := make([]audit.Issue, len(c.Issues))
		copy(issues, c.Issues)
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].Severity.Rank() < issues[j].Severity.Rank()
		})

		for _, is := range issues {
			ref := ""
			if is.RuleID != "" {
				ref = fmt.Sprintf(" (%s)", is.RuleID)
			}
			sb.WriteString(fmt.Sprintf("- **[%s] %s**%s: %s\n", strings.ToUpper(string(is.Severity)), is.Title, ref, is.Description))
			if is.Suggestion != "" {
				sb.WriteString(fmt.Sprintf("  - Suggestion: %s\n", is.Suggestion))
			}
			if is.X != nil && is.Y != nil {
				sb.WriteString(fmt.Sprintf("  - Position: %.0f%%, %.0f%%\n", *is.X, *is.Y))
			}
		}
		sb.WriteString("\n")
	}
}

func screenTitle(s dispatcher.ScreenAuditResult, i int) string {
	if s.ScreenName != "" {
		return s.ScreenName
	}
	return fmt.Sprintf("Screen %d", i+1)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// toKebabCase converts a string to kebab-case format (lowercase with hyphens),
// which is how markdown renderers derive heading anchors.
func toKebabCase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}

	return result.String()
}
