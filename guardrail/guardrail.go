// Package guardrail screens outgoing chat messages against fixed keyword rules.
package guardrail

import "regexp"

type Class string

const (
	ClassUnsafe     Class = "unsafe_content"
	ClassCredential Class = "credential_leak"
)

// Block describes why a message was stopped. Message is safe to show the
// caller; it names the class of rule, never the matched word.
type Block struct {
	Class   Class
	Message string
}

type rule struct {
	class   Class
	pattern *regexp.Regexp
	message string
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{
		class:   ClassUnsafe,
		pattern: regexp.MustCompile(`(?i)\b(kill|suicide|self-harm|violence|attack|bomb|explosive|hate|racist|sexist|lewd|abuse|drugs|weapon|terror|harm)\b`),
		message: "Guard Rails: This content is blocked for safety and compliance.",
	},
	{
		class:   ClassCredential,
		pattern: regexp.MustCompile(`(?i)\b(password|secret|api[_-]?key|api key|token|private|confidential)\b`),
		message: "Guard Rails: This content is blocked to prevent credential leakage.",
	},
}

// Screen returns the first rule the message trips, or nil if it may pass.
func Screen(message string) *Block {
	for _, r := range rules {
		if r.pattern.MatchString(message) {
			return &Block{Class: r.class, Message: r.message}
		}
	}
	return nil
}
