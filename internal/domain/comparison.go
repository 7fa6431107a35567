package domain

// Change classifies what happened to an entity on one side since the common ancestor
type Change int

const (
	ChangeNone Change = iota
	ChangeNew
	ChangeDeleted
	ChangeModified
)

// String returns the string representation of the change
func (c Change) String() string {
	switch c {
	case ChangeNone:
		return "none"
	case ChangeNew:
		return "new"
	case ChangeDeleted:
		return "deleted"
	case ChangeModified:
		return "modified"
	default:
		return "unknown"
	}
}

// ParseChange parses a change name; unknown values map to ChangeNone
func ParseChange(s string) Change {
	switch s {
	case "new":
		return ChangeNew
	case "deleted":
		return ChangeDeleted
	case "modified":
		return ChangeModified
	default:
		return ChangeNone
	}
}

// Comparison is the three-way record that caused an action to be generated
type Comparison[V Version] struct {
	// Original is the last version known to both sides (nil if none)
	Original *V

	// Client is the current client version (nil if absent on the client)
	Client *V

	// Server is the current server version (nil if absent on the server)
	Server *V
}

// ClientChange classifies the client side against the original version
func (c Comparison[V]) ClientChange() Change {
	return changeOf(c.Original, c.Client)
}

// ServerChange classifies the server side against the original version
func (c Comparison[V]) ServerChange() Change {
	return changeOf(c.Original, c.Server)
}

func changeOf[V Version](original, current *V) Change {
	switch {
	case original == nil && current == nil:
		return ChangeNone
	case original == nil:
		return ChangeNew
	case current == nil:
		return ChangeDeleted
	case *original == *current:
		return ChangeNone
	default:
		return ChangeModified
	}
}
