// Package agent produces canned auto-replies for relayed messages.
package agent

import (
	"regexp"
	"strings"
)

type Type string

const (
	General    Type = ""
	Debug      Type = "debug"
	Compliance Type = "compliance"
	Resource   Type = "resource"
)

// Normalize trims the tag and folds "general" into the absent type.
func Normalize(s string) Type {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "general") {
		return General
	}
	return Type(s)
}

type responder struct {
	trigger *regexp.Regexp
	reply   string
}

var responders = map[Type]responder{
	Debug: {
		trigger: regexp.MustCompile(`(?i)error|fail|exception`),
		reply:   "Debug Agent: Error detected. Please check logs and stack trace.",
	},
	Compliance: {
		trigger: regexp.MustCompile(`(?i)regulation|compliance|audit`),
		reply:   "Compliance Agent: This event will be logged for audit.",
	},
	Resource: {
		trigger: regexp.MustCompile(`(?i)cpu|memory|resource`),
		reply:   "Resource Agent: Monitoring system resources.",
	},
}

var greeter = responder{
	trigger: regexp.MustCompile(`(?i)\b(hello|hi)\b`),
	reply:   "General Agent: Hi there! This is an automated reply.",
}

// Reply returns the canned reply for t, if message triggers one.
// Unknown types fall back to the general greeter.
func Reply(t Type, message string) (string, bool) {
	r, ok := responders[t]
	if !ok {
		r = greeter
	}
	if !r.trigger.MatchString(message) {
		return "", false
	}
	return r.reply, true
}
