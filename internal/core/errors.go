package core

import (
	"errors"
	"strings"
)

// UserError is a technical error translated for API consumers. Code is
// stable so support staff can look failures up.
type UserError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// errorPattern maps substrings of underlying error text to a UserError.
type errorPattern struct {
	patterns []string
	user     UserError
}

var errorPatterns = []errorPattern{
	{
		patterns: []string{"duplicate key", "unique constraint", "violates unique"},
		user: UserError{
			Code:    "DB001",
			Message: "A record with this notification number already exists",
			Action:  "Review the duplicate rows in the import report",
		},
	},
	{
		patterns: []string{"foreign key constraint", "violates foreign key"},
		user: UserError{
			Code:    "DB002",
			Message: "The record references data that does not exist",
			Action:  "Contact support with the error code",
		},
	},
	{
		patterns: []string{"connection refused", "connection reset"},
		user: UserError{
			Code:    "DB003",
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
		},
	},
	{
		patterns: []string{"context deadline exceeded", "timeout"},
		user: UserError{
			Code:    "DB004",
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
		},
	},
	{
		patterns: []string{"deadlock"},
		user: UserError{
			Code:    "DB005",
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
		},
	},
	{
		patterns: []string{"not a valid zip", "zip: not a valid"},
		user: UserError{
			Code:    "FILE001",
			Message: "The file is not a readable Excel workbook",
			Action:  "Upload the original .xlsx file, not a renamed copy",
		},
	},
}

// MapError translates err into a user-facing error. Sentinel errors map
// directly; everything else goes through the pattern table, falling back
// to a generic message so internals never leak to clients.
func MapError(err error) UserError {
	switch {
	case errors.Is(err, ErrNotFound):
		return UserError{Code: "REQ001", Message: "Not found"}
	case errors.Is(err, ErrDuplicateNotification):
		return UserError{
			Code:    "DB001",
			Message: "A record with this notification number already exists",
			Action:  "Review the duplicate rows in the import report",
		}
	case errors.Is(err, ErrEmailTaken):
		return UserError{Code: "REQ002", Message: "Email already registered"}
	case errors.Is(err, ErrInvalidCredentials):
		return UserError{Code: "AUTH001", Message: "Incorrect email or password"}
	}

	msg := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		for _, p := range ep.patterns {
			if strings.Contains(msg, p) {
				return ep.user
			}
		}
	}

	return UserError{
		Code:    "GEN001",
		Message: "An unexpected error occurred",
		Action:  "Please try again; contact support with the error code if it persists",
	}
}
