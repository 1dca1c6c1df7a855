package session

import (
	"fmt"
	"strings"
)

// VerificationMethod is how the site delivers an activation code.
type VerificationMethod string

const (
	MethodSMS   VerificationMethod = "sms"
	MethodCall  VerificationMethod = "call"
	MethodEmail VerificationMethod = "email"
)

// ParseVerificationMethod accepts "sms", "call" or "email". Empty means email.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	switch m := VerificationMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodEmail, nil
	case MethodSMS, MethodCall, MethodEmail:
		return m, nil
	default:
		return "", fmt.Errorf("unknown verification method %q (want sms, call or email)", s)
	}
}

// matchesLink reports whether a delivery link on the activation page
// sends the code by this method.
// Some pages label the links with an icon only, so the href is checked too.
func (m VerificationMethod) matchesLink(text, href string) bool {
	text, href = strings.ToLower(text), strings.ToLower(href)
	switch m {
	case MethodSMS:
		return strings.Contains(text, "text me") || strings.Contains(href, "text_me")
	case MethodCall:
		return strings.Contains(text, "call me") || strings.Contains(href, "call_me")
	default:
		return strings.Contains(text, "@")
	}
}
