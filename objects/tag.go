package objects

import (
	"bytes"
	"fmt"
	"strings"
)

// Tag is an annotated tag object referencing another object.
type Tag struct {
	Object  OID
	Type    Kind
	Name    string
	Tagger  Signature
	Message string
}

// Encode renders a tag to its canonical text payload.
func (t *Tag) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Object)
	fmt.Fprintf(&buf, "type %s\n", t.Type)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger)
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// DecodeTag parses a tag's text payload.
func DecodeTag(b []byte) (*Tag, error) {
	text := string(b)
	headerEnd := strings.Index(text, "\n\n")
	var header, message string
	if headerEnd < 0 {
		header = text
	} else {
		header = text[:headerEnd]
		message = text[headerEnd+2:]
	}

	t := &Tag{Message: message}
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("objects: malformed tag header %q", line)
		}
		key, val := line[:sp], line[sp+1:]
		switch key {
		case "object":
			t.Object = OID(val)
		case "type":
			kind, err := ParseKind(val)
			if err != nil {
				return nil, err
			}
			t.Type = kind
		case "tag":
			t.Name = val
		case "tagger":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, err
			}
			t.Tagger = sig
		}
	}
	return t, nil
}
