package entities

import (
	"fmt"
	"strings"
)

type VisualStyle string

const (
	VisualStyleSurreal    VisualStyle = "surreal"
	VisualStyleRealistic  VisualStyle = "realistic"
	VisualStyleCartoonish VisualStyle = "cartoonish"
	VisualStyleAbstract   VisualStyle = "abstract"
)

var VisualStyles = []VisualStyle{VisualStyleSurreal, VisualStyleRealistic, VisualStyleCartoonish, VisualStyleAbstract}

// Profile describes the dreamer. It is folded into every video prompt.
type Profile struct {
	SelfDescription       string      `json:"self_description"`
	TriggersAndBoundaries string      `json:"triggers_and_boundaries"`
	VisualStyle           VisualStyle `json:"visual_style"`
}

func (p Profile) IsEmpty() bool {
	return strings.TrimSpace(p.SelfDescription) == "" &&
		strings.TrimSpace(p.TriggersAndBoundaries) == "" &&
		p.VisualStyle == ""
}

func (p Profile) Validate() error {
	if p.VisualStyle == "" {
		return nil
	}
	for _, s := range VisualStyles {
		if s == p.VisualStyle {
			return nil
		}
	}
	return fmt.Errorf("unknown visual style %q", p.VisualStyle)
}

// PromptContext renders the profile block that precedes the dream structure.
func (p Profile) PromptContext() string {
	return fmt.Sprintf("Dreamer Profile:\n- Self-description: %s\n- Visual/Artistic Style: %s\n- Triggers/Boundaries (AVOID in all outputs): %s",
		orNA(p.SelfDescription), orNA(string(p.VisualStyle)), orNA(p.TriggersAndBoundaries))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
