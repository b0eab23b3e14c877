package importer

// error_messages.go maps technical errors to user-friendly messages
// with support codes. Operators quote the code when reporting a failed
// import, which is faster to diagnose than a raw error chain.
//
// Code ranges:
//
//	CSV001-CSV099  source file and input problems
//	GEN001-GEN099  SPL generation problems
//	BKP001-BKP099  backup/conflict problems
//	SPL001-SPL099  remote Splunk problems
//	ERR000         fallback
//
// Patterns are matched case-insensitively with strings.Contains; the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Source file errors (CSV001-CSV004)
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Source CSV file not found",
			Action:  "Check the -source_file path",
			Code:    "CSV001",
		},
	},
	{
		pattern: "malformed row",
		msg: UserMessage{
			Message: "A row has a different number of fields than the header",
			Action:  "Fix the reported line in the source file",
			Code:    "CSV002",
		},
	},
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The source file is empty",
			Action:  "Provide a CSV with at least a header row",
			Code:    "CSV003",
		},
	},
	{
		pattern: "duplicate header",
		msg: UserMessage{
			Message: "Two header columns share the same name",
			Action:  "Rename the duplicate columns in the source file",
			Code:    "CSV004",
		},
	},
	{
		pattern: "lookup name",
		msg: UserMessage{
			Message: "The target lookup name is not valid",
			Action:  "Use only letters, digits, dot, dash, underscore, ending in .csv",
			Code:    "CSV005",
		},
	},

	// Generation errors (GEN001)
	// Matches both "contains the delimiter" and "forms the delimiter":
	// a value holding the delimiter and adjacent values composing it at
	// a join boundary are the same problem for the operator.
	{
		pattern: "the delimiter",
		msg: UserMessage{
			Message: "A value contains or composes the record delimiter and cannot be represented",
			Action:  "Configure a GENERATOR_DELIMITER that occurs in and across no CSV value",
			Code:    "GEN001",
		},
	},

	// Backup errors (BKP001)
	{
		pattern: "could not be backed up",
		msg: UserMessage{
			Message: "The existing lookup could not be backed up; nothing was overwritten",
			Action:  "Check the remote error and re-run once resolved",
			Code:    "BKP001",
		},
	},

	// Remote Splunk errors (SPL001-SPL004)
	{
		pattern: "authentication failed",
		msg: UserMessage{
			Message: "Splunk rejected the credentials",
			Action:  "Check SPLUNK_TOKEN or SPLUNK_USERNAME/SPLUNK_PASSWORD",
			Code:    "SPL001",
		},
	},
	{
		pattern: "timed out waiting",
		msg: UserMessage{
			Message: "A search job did not complete in time",
			Action:  "Raise SEARCH_WAIT_TIMEOUT or check the instance load",
			Code:    "SPL002",
		},
	},
	{
		pattern: "search job",
		msg: UserMessage{
			Message: "Splunk reported a search failure",
			Action:  "Check the remote error payload in the log",
			Code:    "SPL003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the Splunk management port",
			Action:  "Check SPLUNK_HOST, SPLUNK_PORT and network access",
			Code:    "SPL004",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the ERR000 fallback when no pattern matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
