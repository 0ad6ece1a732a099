// Package parse extracts message identifiers from the raw header fields a
// mail store hands to the threading engine. Fields are parsed with
// go-message when they look like RFC 5322 values and degrade to greedy
// tokenization when they do not: the engine must produce some forest from
// whatever a peer's MUA emitted.
package parse

import (
	"strings"

	"github.com/emersion/go-message/mail"

	"git.sr.ht/~rjarry/threadtree/lib/log"
)

// MsgIDList parses a list of message identifiers.  It returns message
// identifiers without angle brackets.  If the header field is missing,
// it returns nil.
//
// This can be used on In-Reply-To and References header fields.
// If the field does not conform to RFC 5322, fall back
// to greedily parsing a subsequence of the original field.
func MsgIDList(h *mail.Header, key string) []string {
	l, err := h.MsgIDList(key)
	if err == nil {
		return l
	}
	log.Errorf("%s: %s", err, h.Get(key))

	// Expensive, fix your peer's MUA instead!
	var list []string
	header := &mail.Header{Header: h.Header.Copy()}
	value := header.Get(key)
	for err != nil && len(value) > 0 {
		// Skip parsed IDs
		if len(l) > 0 {
			last := "<" + l[len(l)-1] + ">"
			value = value[strings.Index(value, last)+len(last):]
			list = append(list, l...)
		}

		// Skip a character until some IDs can be parsed
		value = value[1:]
		header.Set(key, value)
		l, err = header.MsgIDList(key)
	}
	return append(list, l...)
}

// FieldMsgIDList parses a raw References-style field value into a list of
// message identifiers without angle brackets. Some stores strip the angle
// brackets before handing the field over; a value without any '<' is split
// on whitespace and commas instead of being parsed as RFC 5322.
func FieldMsgIDList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.ContainsRune(raw, '<') {
		return strings.FieldsFunc(raw, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == ','
		})
	}
	var h mail.Header
	h.Set("References", raw)
	return MsgIDList(&h, "References")
}

// MsgID returns the identifier from a lone Message-ID field value, without
// angle brackets, or "" if none can be found.
func MsgID(raw string) string {
	if l := FieldMsgIDList(raw); len(l) > 0 {
		return l[0]
	}
	return strings.Trim(strings.TrimSpace(raw), "<> \t")
}

// LastMsgID guesses the identifier of the replied-to message from an
// In-Reply-To field by taking the last substring delimited by angle
// brackets. The field often carries free-form text ("your message of
// Thursday...") in front of the identifier, which is why the last bracketed
// token wins. The guess can latch onto an email address instead of a
// message id; that risk is accepted.
func LastMsgID(raw string) string {
	if end := strings.LastIndexByte(raw, '>'); end >= 0 {
		if start := strings.LastIndexByte(raw[:end], '<'); start >= 0 {
			return raw[start+1 : end]
		}
		return ""
	}
	// bracket-less field: accept a single bare token, nothing more
	if f := strings.Fields(raw); len(f) == 1 {
		return f[0]
	}
	return ""
}
