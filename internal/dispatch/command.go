// Package dispatch maps prefixed chat messages to bot commands.
package dispatch

import "strings"

// Capability is a permission a sender may hold.
type Capability uint8

const (
	// CapBanMembers allows removing members with a ban.
	CapBanMembers Capability = 1 << iota
	// CapKickMembers allows removing members without a ban.
	CapKickMembers
)

// Capabilities is a set of capabilities.
type Capabilities uint8

// Has reports whether every bit of c is present.
func (s Capabilities) Has(c Capability) bool {
	return c == 0 || uint8(s)&uint8(c) == uint8(c)
}

// With returns the set with c added.
func (s Capabilities) With(c Capability) Capabilities {
	return Capabilities(uint8(s) | uint8(c))
}

// Kind identifies a recognized command.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreateTicket
	KindBan
	KindKick
)

var kindNames = map[string]Kind{
	"createticket": KindCreateTicket,
	"ban":          KindBan,
	"kick":         KindKick,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Command is a tokenized chat command.
type Command struct {
	Kind Kind
	Name string
	Args []string
}

// Parse strips prefix from text and splits the rest on whitespace. ok is false
// when text does not start with prefix or nothing follows it. Unrecognized
// names parse with KindUnknown.
func Parse(prefix, text string) (cmd Command, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return Command{}, false
	}
	name := strings.ToLower(fields[0])
	return Command{Kind: kindNames[name], Name: name, Args: fields[1:]}, true
}

// Rest joins args from index i, or returns def when nothing is left.
func (c Command) Rest(i int, def string) string {
	if i >= len(c.Args) {
		return def
	}
	return strings.Join(c.Args[i:], " ")
}
