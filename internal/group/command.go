package group

// CommandKind discriminates the closed set of group command variants.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandCreate
	CommandAddRemove
	CommandSetSubject
	CommandPart
)

// Command is a parsed group command embedded in a message. Only the fields
// relevant to the Kind are set.
type Command struct {
	Kind CommandKind

	// Owner is the peer that issued the command. For create and add
	// commands the owner implicitly becomes a member.
	Owner string

	// Members lists the initial members of a create command.
	Members []string

	// Added and Removed list membership changes of an add/remove command.
	Added   []string
	Removed []string

	// Subject carries the new subject of a set-subject command.
	Subject string

	// From is the departing peer of a part command.
	From string
}

// Notifies reports whether this command warrants a user-visible
// notification. Routine membership and subject changes are silent; group
// creation and departures are not.
func (c *Command) Notifies() bool {
	return c.Kind == CommandCreate || c.Kind == CommandPart
}
