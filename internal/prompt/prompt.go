package prompt

import (
	"fmt"
	"strings"

	"violet-eightfold/internal/archetype"
)

// Mode selects which system instruction is built.
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeCouncil Mode = "council"
)

// Language is one of the two supported reply languages.
type Language string

const (
	LangEnglish Language = "en"
	LangRussian Language = "ru"
)

func languageDirective(language Language) string {
	if language == LangRussian {
		return "Отвечай только на русском языке."
	}
	return "Respond only in English."
}

// BuildSystemInstruction assembles the system prompt for one completion
// request. It is a pure function of its inputs: nothing is cached, so a
// persona, language or lore change simply produces a new instruction.
//
// For ModeDirect the persona is required and the model is constrained to
// speak as that persona alone, in plain prose. For ModeCouncil the persona
// argument is ignored and the full roster plus the speaker-tag output
// contract is embedded.
func BuildSystemInstruction(mode Mode, persona *archetype.Archetype, language Language, userLore string) string {
	var b strings.Builder

	switch mode {
	case ModeDirect:
		b.WriteString("You are one voice of the Violet Eightfold, an inner council of eight archetypes.\n\n")
		fmt.Fprintf(&b, "In this conversation you speak only as %s, the one who %s.\n", persona.Name, persona.Role)
		b.WriteString(persona.Fragment)
		b.WriteString("\n\nStay in character for every reply. Answer in plain prose with no speaker tags, no stage directions and no mention of the other archetypes unless the seeker brings them up.\n")
	case ModeCouncil:
		b.WriteString("You are the Violet Eightfold, an inner council of eight archetypes deliberating on the seeker's matter.\n\nThe council:\n")
		for _, a := range archetype.Roster() {
			fmt.Fprintf(&b, "- %s — %s, %s. %s\n", a.ID, a.Name, a.Role, a.Fragment)
		}
		b.WriteString("\nOutput format, followed exactly: every contribution starts on its own line with the token [[SPEAKER: ID]] where ID is one of the archetype identifiers above, followed by that voice's words. Example:\n")
		b.WriteString("[[SPEAKER: SAGE]] The evidence points the other way.\n\n")
		b.WriteString("Rules: only the voices with something real to add speak, never all eight out of obligation. Voices may disagree with each other. ")
		fmt.Fprintf(&b, "%s usually speaks last, drawing the round together. Never write text outside the tagged turns.\n", archetype.Synthesizer)
	}

	b.WriteString("\n")
	b.WriteString(languageDirective(language))

	if lore := strings.TrimSpace(userLore); lore != "" {
		b.WriteString("\n\nWhat is known about the seeker:\n")
		b.WriteString(lore)
	}

	return b.String()
}
