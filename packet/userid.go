package packet

import (
	"io"
	"strings"
)

// UserId contains text that is intended to represent the name and email
// address of the key holder. See RFC 4880, section 5.11. By convention, this
// takes the form "Full Name (Comment) <email@example.com>"
type UserId struct {
	Id string // By convention, this takes the form "Full Name (Comment) <email@example.com>" which is split out in the fields below.

	Name, Comment, Email string
}

func hasInvalidCharacters(s string) bool {
	for _, c := range s {
		switch c {
		case '(', ')', '<', '>', 0:
			return true
		}
	}
	return false
}

// NewUserId returns a UserId or nil if any of the arguments contain invalid
// characters. The invalid characters are '\x00', '(', ')', '<' and '>'.
func NewUserId(name, comment, email string) *UserId {
	// RFC 4880 doesn't deal with the structure of userid strings; the
	// name, comment and email form is just a convention.
	if hasInvalidCharacters(name) || hasInvalidCharacters(comment) || hasInvalidCharacters(email) {
		return nil
	}

	uid := new(UserId)
	uid.Name, uid.Comment, uid.Email = name, comment, email

	var parts []string
	if len(name) > 0 {
		parts = append(parts, name)
	}
	if len(comment) > 0 {
		parts = append(parts, "("+comment+")")
	}
	if len(email) > 0 {
		parts = append(parts, "<"+email+">")
	}
	uid.Id = strings.Join(parts, " ")
	return uid
}

func (uid *UserId) parse(r io.Reader) (err error) {
	// RFC 4880, section 5.11
	b, err := io.ReadAll(r)
	if err != nil {
		return
	}
	uid.Id = string(b)
	uid.parseUserId()
	return
}

// Serialize marshals uid to w in the form of an OpenPGP packet, including
// header.
func (uid *UserId) Serialize(w io.Writer) error {
	err := serializeHeader(w, packetTypeUserId, len(uid.Id))
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(uid.Id))
	return err
}

// parseUserId extracts the name, comment and email from a user id string that
// is formatted as "Full Name (Comment) <email@example.com>".
func (uid *UserId) parseUserId() {
	id := uid.Id

	n, start, end := explodeUserId(id)
	uid.Name = n

	if start != -1 && end != -1 && start < end {
		uid.Comment = strings.TrimSpace(id[start+1 : end])
	}

	if addrStart := strings.LastIndex(id, "<"); addrStart != -1 {
		if addrEnd := strings.LastIndex(id, ">"); addrEnd > addrStart {
			uid.Email = id[addrStart+1 : addrEnd]
		}
	}
}

// explodeUserId returns the name portion of a user id string, plus the
// locations of any comment parentheses.
func explodeUserId(id string) (name string, commentStart, commentEnd int) {
	commentStart = strings.Index(id, "(")
	commentEnd = strings.Index(id, ")")
	nameEnd := len(id)
	if commentStart != -1 {
		nameEnd = commentStart
	}
	if addrStart := strings.Index(id, "<"); addrStart != -1 && addrStart < nameEnd {
		nameEnd = addrStart
	}
	name = strings.TrimSpace(id[:nameEnd])
	return
}
