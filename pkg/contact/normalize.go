// Package contact normalizes customer contact fields into comparable keys.
package contact

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Phone keeps only digits and drops a leading NANP country code, so
// "+1 (555) 010-0100" and "555-010-0100" compare equal.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// Email trims and case-folds an address.
func Email(raw string) string {
	return folder.String(strings.TrimSpace(raw))
}

// Name collapses internal whitespace and case-folds.
func Name(raw string) string {
	return folder.String(strings.Join(strings.Fields(raw), " "))
}

// IdentityKey is the deduplication key for a contact: normalized phone,
// else email. Empty when neither is usable.
func IdentityKey(phone, email *string) string {
	if phone != nil {
		if p := Phone(*phone); p != "" {
			return "phone:" + p
		}
	}
	if email != nil {
		if e := Email(*email); e != "" {
			return "email:" + e
		}
	}
	return ""
}

// SessionKey derives a stable key for an anonymous form session from
// whatever contact data has been collected: phone, else email, else name.
func SessionKey(name, phone, email string) string {
	if key := IdentityKey(&phone, &email); key != "" {
		return key
	}
	if n := Name(name); n != "" {
		return "name:" + n
	}
	return ""
}

// SessionKeys lists every key SessionKey can yield for a contact as its
// fields were collected, strongest first.
func SessionKeys(name, phone, email string) []string {
	var keys []string
	if p := Phone(phone); p != "" {
		keys = append(keys, "phone:"+p)
	}
	if e := Email(email); e != "" {
		keys = append(keys, "email:"+e)
	}
	if n := Name(name); n != "" {
		keys = append(keys, "name:"+n)
	}
	return keys
}
