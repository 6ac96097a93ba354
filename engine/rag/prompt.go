package rag

import (
	"fmt"
	"strings"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
)

const systemPrompt = `You are a government welfare scheme assistant for Andhra Pradesh and Telangana.
Answer ONLY from the provided excerpts of official government orders and guidelines.
Rules:
- If the excerpts do not contain the answer, reply exactly: NOT FOUND in the provided documents.
- Never invent scheme names, eligibility criteria, or benefit amounts.
- When the excerpts state amounts or age limits, quote them as written.
- Name the scheme and cite the source file for every claim, like [GO MS 43 13.06.2024.pdf p.2].
- Reply in the language requested by the user.`

// buildUserPrompt assembles the grounded prompt: the citizen profile, the
// question, and the retrieved excerpts tagged with their source coordinates.
func buildUserPrompt(profile domain.Profile, question string, evidence []domain.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Citizen profile: state=%s age=%d annual_income=%d category=%s\n",
		profile.State, profile.Age, profile.AnnualIncome, profile.Category)
	fmt.Fprintf(&b, "Answer language: %s\n", profile.Language)
	if question != "" {
		fmt.Fprintf(&b, "Question: %s\n", question)
	} else {
		b.WriteString("Question: Which schemes is this citizen eligible for, and what are the benefits?\n")
	}
	b.WriteString("\nExcerpts:\n")
	for _, e := range evidence {
		fmt.Fprintf(&b, "[%s p.%d] %s\n\n", e.FileName, e.PageNo, e.Text)
	}
	return b.String()
}
