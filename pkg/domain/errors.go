package domain

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a referenced entity id does not exist at
// transaction time.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports a business-rule or state-machine violation. It is
// recoverable: the caller can correct the input and retry.
type ValidationError struct {
	Entity   EntityType
	EntityID string
	Message  string
}

func (e ValidationError) Error() string {
	if e.EntityID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, e.EntityID, e.Message)
}

// ReferentialIntegrityError blocks a delete while a live cross-reference
// still points at the entity.
type ReferentialIntegrityError struct {
	Entity       EntityType
	EntityID     string
	ReferencedBy EntityType
	Message      string
}

func (e ReferentialIntegrityError) Error() string {
	return e.Message
}

// ConflictError is returned when a transaction could not commit after the
// store's bounded retries, or when an assignment target is already taken.
// It is transient from the caller's point of view.
type ConflictError struct {
	Message  string
	Attempts int
}

func (e ConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s after %d attempts", e.Message, e.Attempts)
	}
	return e.Message
}

// RuleViolationError is returned when a commit-time rule evaluation produced
// blocking violations. The embedded Result names every violated rule.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var blocked []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			blocked = append(blocked, v.Message)
		}
	}
	if len(blocked) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + strings.Join(blocked, "; ")
}
