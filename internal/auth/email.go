package auth

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail    = errors.New("Please enter a valid email")
	ErrDisposableEmail = errors.New("Please use a permanent email address")
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// 常见一次性邮箱域名
var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"discard.email":     {},
	"dispostable.com":   {},
	"emailondeck.com":   {},
	"fakeinbox.com":     {},
	"getnada.com":       {},
	"guerrillamail.com": {},
	"maildrop.cc":       {},
	"mailinator.com":    {},
	"mailnesia.com":     {},
	"mintemail.com":     {},
	"mohmal.com":        {},
	"sharklasers.com":   {},
	"temp-mail.org":     {},
	"tempmail.com":      {},
	"throwawaymail.com": {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks syntax and rejects disposable domains.
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if !emailPattern.MatchString(normalized) {
		return ErrInvalidEmail
	}
	domain := normalized[strings.LastIndex(normalized, "@")+1:]
	if _, ok := disposableDomains[domain]; ok {
		return ErrDisposableEmail
	}
	return nil
}
