package objects

import "fmt"

// Kind identifies the type tag of a stored object.
type Kind int8

const (
	InvalidKind Kind = iota
	BlobKind
	TreeKind
	CommitKind
	TagKind
)

func (k Kind) String() string {
	switch k {
	case BlobKind:
		return "blob"
	case TreeKind:
		return "tree"
	case CommitKind:
		return "commit"
	case TagKind:
		return "tag"
	default:
		return "invalid"
	}
}

// ParseKind parses the textual object-type header used on disk and in pack
// entries ("blob", "tree", "commit", "tag").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "blob":
		return BlobKind, nil
	case "tree":
		return TreeKind, nil
	case "commit":
		return CommitKind, nil
	case "tag":
		return TagKind, nil
	default:
		return InvalidKind, fmt.Errorf("objects: invalid object kind %q", s)
	}
}
