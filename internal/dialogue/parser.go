package dialogue

import (
	"strings"

	"violet-eightfold/internal/archetype"
)

// Council replies delimit turns with the literal token [[SPEAKER: ID]].
// Direct replies carry no tokens and come back as a single turn.
const (
	tagOpen  = "[[SPEAKER:"
	tagClose = "]]"
)

// Parse splits a raw completion buffer into ordered turns.
//
// Text before the first tag (a preamble the model sometimes emits) is
// attributed to MODERATOR. A buffer without any tags becomes a single
// MODERATOR turn. Segments that are empty after trimming are dropped.
// Speaker ids are normalized but not checked against the roster, so an
// unknown voice still comes through.
//
// turnIndexOffset only seeds the positional ids; calling Parse twice on
// the same buffer with the same offset yields identical results.
func Parse(buffer string, turnIndexOffset int) []Turn {
	var turns []Turn
	emit := func(speaker archetype.ID, text string) {
		content := strings.TrimSpace(text)
		if content == "" {
			return
		}
		turns = append(turns, NewTurn(turnIndexOffset+len(turns), speaker, content))
	}

	rest := buffer
	speaker := archetype.Moderator
	for {
		start, idLen, ok := nextTag(rest)
		if !ok {
			emit(speaker, rest)
			return turns
		}
		emit(speaker, rest[:start])
		idStart := start + len(tagOpen)
		speaker = archetype.Normalize(rest[idStart : idStart+idLen])
		rest = rest[idStart+idLen+len(tagClose):]
	}
}

// nextTag finds the next well-formed speaker tag in s. It returns the tag's
// byte offset and the length of the raw id between the colon and the closing
// brackets. Malformed tags (unterminated, or an id that does not normalize
// to letters and underscores) are skipped and read as plain text.
func nextTag(s string) (start, idLen int, ok bool) {
	base := 0
	for {
		i := strings.Index(s[base:], tagOpen)
		if i < 0 {
			return 0, 0, false
		}
		tagAt := base + i
		idStart := tagAt + len(tagOpen)
		end := strings.Index(s[idStart:], tagClose)
		if end < 0 {
			return 0, 0, false
		}
		raw := s[idStart : idStart+end]
		if validSpeakerID(archetype.Normalize(raw)) {
			return tagAt, end, true
		}
		base = idStart
	}
}

func validSpeakerID(id archetype.ID) bool {
	if id == "" {
		return false
	}
	for _, r := range string(id) {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}
