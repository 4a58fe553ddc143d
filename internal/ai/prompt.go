package ai

import (
	"fmt"
	"strings"
)

const draftPrompt = `You help members of a skill exchange community write a short first message for a swap request.

Rules:

* Write 2 to 4 friendly, concrete sentences in plain text.
* Mention the skill the sender offers and the skill they would like to learn.
* Do NOT invent schedules, prices, locations or credentials.
* No greeting placeholders such as [Name], no markdown, no emojis, no signature.
* Keep it under 400 characters.`

// DraftInput describes the swap the message is for.
type DraftInput struct {
	RequesterName string
	RequestedName string
	SkillOffered  string
	SkillWanted   string
	Tone          string
}

// BuildDraftPrompt renders the instruction followed by the swap details. Tone defaults to friendly.
func BuildDraftPrompt(in DraftInput) string {
	tone := strings.TrimSpace(in.Tone)
	if tone == "" {
		tone = "friendly"
	}
	var b strings.Builder
	b.WriteString(draftPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Sender: %s\n", in.RequesterName)
	fmt.Fprintf(&b, "Recipient: %s\n", in.RequestedName)
	fmt.Fprintf(&b, "Sender offers: %s\n", in.SkillOffered)
	fmt.Fprintf(&b, "Sender wants to learn: %s\n", in.SkillWanted)
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	return b.String()
}
