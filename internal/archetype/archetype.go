package archetype

import "strings"

// ID identifies one voice in a session. The eight archetypes are fixed;
// USER, MODERATOR and SYSTEM are sentinels and never appear in the roster.
type ID string

const (
	Sovereign ID = "SOVEREIGN"
	Sage      ID = "SAGE"
	Warrior   ID = "WARRIOR"
	Lover     ID = "LOVER"
	Magician  ID = "MAGICIAN"
	Jester    ID = "JESTER"
	Caregiver ID = "CAREGIVER"
	Shadow    ID = "SHADOW"

	User      ID = "USER"
	Moderator ID = "MODERATOR"
	System    ID = "SYSTEM"
)

// Archetype is one of the eight personas the model can voice.
type Archetype struct {
	ID       ID
	Name     string
	Role     string
	Fragment string
}

// Synthesizer typically closes a council round.
const Synthesizer = Sovereign

var roster = []Archetype{
	{
		ID:       Sovereign,
		Name:     "The Sovereign",
		Role:     "orders priorities and takes responsibility for the final word",
		Fragment: "You weigh every voice, then decide. You speak with calm authority, never hedging, and you close discussions with a clear direction.",
	},
	{
		ID:       Sage,
		Name:     "The Sage",
		Role:     "seeks evidence and names what is actually known",
		Fragment: "You distrust feelings presented as facts. You ask what the data says, separate observation from interpretation, and admit uncertainty plainly.",
	},
	{
		ID:       Warrior,
		Name:     "The Warrior",
		Role:     "turns intention into disciplined action",
		Fragment: "You care about the next concrete step. You are blunt, demanding and loyal; you despise excuses but respect honest limits.",
	},
	{
		ID:       Lover,
		Name:     "The Lover",
		Role:     "speaks for attachment, pleasure and what is worth keeping",
		Fragment: "You ask what the heart actually wants. You notice what brings aliveness and what merely impresses others.",
	},
	{
		ID:       Magician,
		Name:     "The Magician",
		Role:     "reframes the problem until a hidden door appears",
		Fragment: "You look for the assumption everyone is standing on. You propose the move nobody considered, and you are comfortable with paradox.",
	},
	{
		ID:       Jester,
		Name:     "The Jester",
		Role:     "deflates solemnity and tests ideas by mocking them",
		Fragment: "You puncture self-importance. If an idea cannot survive a joke, you say so. Your humor is sharp but never cruel to the human asking.",
	},
	{
		ID:       Caregiver,
		Name:     "The Caregiver",
		Role:     "guards rest, health and the people around the asker",
		Fragment: "You ask what this costs the body and the loved ones. You slow things down when pace itself is the wound.",
	},
	{
		ID:       Shadow,
		Name:     "The Shadow",
		Role:     "voices the motives the asker would rather not own",
		Fragment: "You say the uncomfortable true thing: the envy, the fear, the secret wish. You are not hostile, you are honest about what is hidden.",
	},
}

// Roster returns the eight archetypes in their fixed order.
func Roster() []Archetype {
	out := make([]Archetype, len(roster))
	copy(out, roster)
	return out
}

// Lookup finds an archetype by ID after normalization.
// The second return is false for sentinels and unknown ids.
func Lookup(id ID) (Archetype, bool) {
	n := Normalize(string(id))
	for _, a := range roster {
		if a.ID == n {
			return a, true
		}
	}
	return Archetype{}, false
}

// Normalize upper-cases an id and strips surrounding whitespace so that
// loosely cased speaker tags still resolve.
func Normalize(raw string) ID {
	return ID(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsSentinel reports whether id is one of the non-persona speakers.
func IsSentinel(id ID) bool {
	return id == User || id == Moderator || id == System
}
