package objects

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Signature is an author/committer identity line: "<name> <email> <unix> <tz>".
type Signature struct {
	Name  string
	Email string
	When  int64 // unix seconds
	TZ    string
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When, s.TZ)
}

// ParseSignature parses "<name> <email> <unix> <tz>".
func ParseSignature(line string) (Signature, error) {
	lt := strings.LastIndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("objects: malformed signature %q", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]
	rest := strings.Fields(strings.TrimSpace(line[gt+1:]))
	if len(rest) != 2 {
		return Signature{}, fmt.Errorf("objects: malformed signature timestamp %q", line)
	}
	when, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("objects: malformed signature timestamp %q: %w", line, err)
	}
	return Signature{Name: name, Email: email, When: when, TZ: rest[1]}, nil
}

// Commit is the parsed form of a commit object's text payload.
type Commit struct {
	Tree      OID
	Parents   []OID
	Author    Signature
	Committer Signature
	Message   string
}

// Encode renders a commit to its canonical text payload: headers, a blank
// line, then the message.
func (c *Commit) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit parses a commit's text payload.
func DecodeCommit(b []byte) (*Commit, error) {
	text := string(b)
	headerEnd := strings.Index(text, "\n\n")
	var header, message string
	if headerEnd < 0 {
		header = text
	} else {
		header = text[:headerEnd]
		message = text[headerEnd+2:]
	}

	c := &Commit{Message: message}
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("objects: malformed commit header %q", line)
		}
		key, val := line[:sp], line[sp+1:]
		switch key {
		case "tree":
			c.Tree = OID(val)
		case "parent":
			c.Parents = append(c.Parents, OID(val))
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, err
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, err
			}
			c.Committer = sig
		}
	}
	if c.Tree == "" {
		return nil, fmt.Errorf("objects: commit missing tree header")
	}
	return c, nil
}
