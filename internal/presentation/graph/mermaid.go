package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/triage/pkg/flow"
)

// Overlay marks the progress of one session on the graph.
type Overlay struct {
	CurrentStage string
}

// GenerateMermaid produces a Mermaid flowchart of a flow table.
// Shapes:
// - Entry: ((Circle))
// - Required-slot stage: [/Parallelogram/]
// - Ask-once stage: [Rectangle]
// - Summary: [[Subroutine]]
// Stages before the overlay's current stage are styled as visited.
func GenerateMermaid(def *flow.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := sanitizeMermaidID("start_" + string(def.Domain))
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", entry, def.Domain)

	prev := entry
	for _, stage := range def.Stages {
		safeID := sanitizeMermaidID(stage.ID)

		switch {
		case stage.ID == flow.SummaryStage:
			fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", safeID, stage.ID)
		case stage.AskOnce():
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, stage.ID)
		default:
			fmt.Fprintf(&sb, "    %s[/\"%s <br/> requires: %s\"/]\n", safeID, stage.ID, stage.Requires)
		}

		fmt.Fprintf(&sb, "    %s --> %s\n", prev, safeID)
		if !stage.AskOnce() {
			fmt.Fprintf(&sb, "    %s -- \"missing %s\" --> %s\n", safeID, escapeLabel(stage.Requires), safeID)
		}
		prev = safeID
	}
	if len(def.Stages) > 0 {
		fmt.Fprintf(&sb, "    %s -. \"reset\" .-> %s\n", prev, entry)
	}

	if overlay != nil && overlay.CurrentStage != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for _, stage := range def.Stages {
			safeID := sanitizeMermaidID(stage.ID)
			if stage.ID == overlay.CurrentStage {
				fmt.Fprintf(&sb, "    class %s current;\n", safeID)
				break
			}
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
