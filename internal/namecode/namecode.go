// Package namecode encodes local identity into Toggl display names.
//
// The free-tier Toggl API has no task resource, so tasks are stored as
// projects and the only channel left to carry type and local id is the
// name string itself: projects become "P: <name> [<id>]" and tasks
// "T: <name> [<id>]". Premium-tier names keep the "<name> [<id>]" suffix
// without a prefix. The rest of the connector treats these functions as
// an opaque codec.
package namecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Free-tier type discriminator prefixes.
const (
	FreeProjectPrefix = "P: "
	FreeTaskPrefix    = "T: "
)

// Kind is the record type recovered from an encoded name.
type Kind int

const (
	KindPlain Kind = iota // no prefix
	KindProject
	KindTask
)

var (
	encodedName = regexp.MustCompile(`^(?:([PT]): )?(.*) \[(\d+)\]$`)
	// A leading "<letter>: " that is not P or T marks a name this codec
	// never produced; without the check it would be swallowed by the
	// name group and misread as plain.
	foreignPrefix = regexp.MustCompile(`^[A-Z]: `)
)

// Encode returns the premium-tier display name "<name> [<id>]".
func Encode(name string, localID uint) string {
	return fmt.Sprintf("%s [%d]", name, localID)
}

// EncodeFreeProject returns the free-tier project name "P: <name> [<id>]".
func EncodeFreeProject(name string, localID uint) string {
	return FreeProjectPrefix + Encode(name, localID)
}

// EncodeFreeTask returns the free-tier task name "T: <name> [<id>]".
func EncodeFreeTask(name string, localID uint) string {
	return FreeTaskPrefix + Encode(name, localID)
}

// IsFreeTask reports whether an encoded name carries the task prefix.
func IsFreeTask(name string) bool {
	return strings.HasPrefix(name, FreeTaskPrefix)
}

// Decoded holds the identity recovered from an encoded display name.
type Decoded struct {
	Kind    Kind
	Name    string
	LocalID uint
}

// Decode parses an encoded display name. It returns false for names that
// were not produced by this codec, e.g. projects created directly in Toggl.
func Decode(s string) (Decoded, bool) {
	m := encodedName.FindStringSubmatch(s)
	if m == nil {
		return Decoded{}, false
	}
	if m[1] == "" && foreignPrefix.MatchString(m[2]) {
		return Decoded{}, false
	}
	id, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return Decoded{}, false
	}
	d := Decoded{Name: m[2], LocalID: uint(id)}
	switch m[1] {
	case "P":
		d.Kind = KindProject
	case "T":
		d.Kind = KindTask
	default:
		d.Kind = KindPlain
	}
	return d, true
}
