package audit

import (
	"fmt"
	"strings"

	"github.com/hellenic-development/design-audit/pkg/heuristics"
)

const responseSchema = `{
  "overallScore": <0-100>,
  "summary": "<two or three sentences>",
  "riskLevel": "Low" | "Medium" | "High",
  "categories": [
    {
      "name": "<category>",
      "score": <0-100>,
      "icon": "<icon name>",
      "issues": [
        {
          "id": "<unique id>",
          "ruleId": "<rule id from the list>",
          "principle": "<principle>",
          "title": "<short title>",
          "description": "<what is wrong>",
          "severity": "critical" | "warning" | "info",
          "category": "<category>",
          "suggestion": "<how to fix it>",
          "x": <0-100, horizontal position in percent>,
          "y": <0-100, vertical position in percent>
        }
      ]
    }
  ]
}`

// BuildSystemPrompt merges the rule corpus, the persona profile and the
// request context into the system message.
func BuildSystemPrompt(lib *heuristics.Library, persona *heuristics.Persona, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert design reviewer acting as a %s.\n", persona.Name)
	if persona.Focus != "" {
		fmt.Fprintf(&b, "Focus: %s\n", persona.Focus)
	}
	if persona.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", persona.Tone)
	}
	if len(persona.Weights) > 0 {
		fmt.Fprintf(&b, "Category weights: %s\n", persona.WeightsText())
	}

	b.WriteString("\nEvaluate the screen against these heuristics:\n\n")
	b.WriteString(lib.RulesText())
	b.WriteString("\n\n")

	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Fidelity: %s\n", valueOr(opts.Fidelity, "high"))
	fmt.Fprintf(&b, "- Purpose: %s\n", valueOr(opts.Purpose, "not specified"))
	if opts.ScreenName != "" {
		fmt.Fprintf(&b, "- Screen: %s\n", opts.ScreenName)
	}
	if strings.EqualFold(opts.Fidelity, "wireframe") || strings.EqualFold(opts.Fidelity, "low") {
		b.WriteString("- Do not penalize missing color, imagery or final copy.\n")
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, using this shape:\n")
	b.WriteString(responseSchema)
	b.WriteString("\n")
	return b.String()
}

func userPrompt(opts Options) string {
	if opts.ScreenName != "" {
		return fmt.Sprintf("Audit the screen %q shown in this image.", opts.ScreenName)
	}
	return "Audit the screen shown in this image."
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
