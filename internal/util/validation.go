package util

import (
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func IsValidEmail(s string) bool {
	if s == "" || len(s) > 254 {
		return false
	}
	return emailRegex.MatchString(s)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

// IsValidRoutingNumber checks an ABA routing number: nine digits with a
// valid checksum.
func IsValidRoutingNumber(s string) bool {
	if len(s) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i += 3 {
		d0, d1, d2 := s[i], s[i+1], s[i+2]
		if d0 < '0' || d0 > '9' || d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
			return false
		}
		sum += 3*int(d0-'0') + 7*int(d1-'0') + int(d2-'0')
	}
	return sum%10 == 0
}
