package insight

import (
	"fmt"
	"strings"

	"github.com/auditai/insight-engine/internal/llm"
	"github.com/osteele/liquid"
)

// MaxPromptHTML is how many characters of page HTML go into a prompt.
const MaxPromptHTML = 5000

const genericInstruction = "Suggest general improvements to increase user conversion."

var goalInstructions = map[string]string{
	"increase add to cart":         "Suggest changes that would encourage more users to add products to their cart.",
	"boost email signups":          "Suggest changes that would make users more likely to sign up for email newsletters.",
	"drive product views":          "Suggest changes that help users discover and explore products more easily.",
	"improve trust / social proof": "Suggest changes that build trust and credibility, such as trust badges, reviews, or testimonials.",
}

const (
	expertTemplate = `You are a conversion rate optimization expert. {{ instruction }}`
	pageTemplate   = `Here is the HTML of the page:
{{ html }}`
	formatTemplate = `Respond with a single JSON object and nothing else, shaped like:
{"rationale": string, "suggestions": [{"text": string, "type": "copy"|"layout"|"module", "target": string, "impact": "low"|"medium"|"high"}]}
"target" is a CSS selector or element name on the page above. Give realistic suggestions for that page.`
)

// PromptBuilder renders the three-message CRO conversation.
type PromptBuilder struct {
	expert *liquid.Template
	page   *liquid.Template
	format *liquid.Template
}

// NewPromptBuilder compiles the prompt templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	engine := liquid.NewEngine()
	parse := func(name, src string) (*liquid.Template, error) {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", name, err)
		}
		return tpl, nil
	}

	var (
		b   PromptBuilder
		err error
	)
	if b.expert, err = parse("expert", expertTemplate); err != nil {
		return nil, err
	}
	if b.page, err = parse("page", pageTemplate); err != nil {
		return nil, err
	}
	if b.format, err = parse("format", formatTemplate); err != nil {
		return nil, err
	}
	return &b, nil
}

// Instruction returns the goal-specific instruction, matching the goal
// case-insensitively, or the generic one for unknown goals.
func Instruction(goal string) string {
	if s, ok := goalInstructions[strings.ToLower(strings.TrimSpace(goal))]; ok {
		return s
	}
	return genericInstruction
}

// Build returns the conversation for html and goal.
func (b *PromptBuilder) Build(html, goal string) ([]llm.Message, error) {
	bindings := map[string]interface{}{
		"instruction": Instruction(goal),
		"html":        truncateRunes(html, MaxPromptHTML),
	}

	expert, err := b.expert.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render expert prompt: %w", err)
	}
	page, err := b.page.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render page prompt: %w", err)
	}
	format, err := b.format.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render format prompt: %w", err)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: expert},
		{Role: llm.RoleUser, Content: page},
		{Role: llm.RoleSystem, Content: format},
	}, nil
}

func truncateRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
