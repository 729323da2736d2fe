package relay

import (
	"fmt"
	"net/http"

	"github.com/withmystar/chatrelay/agent"
	"github.com/withmystar/chatrelay/guardrail"
	"github.com/withmystar/chatrelay/roles"
)

// ValidationError rejects a malformed request before anything is logged.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	errMissingMessage = &ValidationError{Status: http.StatusBadRequest, Message: "Missing message"}
	errNoWebhook      = &ValidationError{Status: http.StatusInternalServerError, Message: "Webhook URL not configured"}
)

type AuthorizationError struct {
	Role      roles.Role
	AgentType agent.Type
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("Role '%s' cannot use agent '%s'", e.Role, e.AgentType)
}

type ContentBlockedError struct {
	Block guardrail.Block
}

func (e *ContentBlockedError) Error() string { return e.Block.Message }

// DeliveryError wraps the failure of the single outbound webhook call.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return e.Err.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }

// logged as the entry's error when the guard rails stop a message
const blockedLogError = "Blocked by guard rails"
