package core

// # Error Codes Reference
//
// Operators quote these codes when reporting a problem.
//
//	DB001   Duplicate natural key       another record already uses this id or name
//	DB004   Connection refused          database unreachable
//	DB005   Connection reset            database connection dropped
//	DB006   Timeout                     database or request deadline hit
//	DB007   Deadlock                    conflicting concurrent writes
//	VAL001  Invalid national id         8 to 10 digits expected
//	VAL002  Invalid email
//	VAL003  Required field empty
//	VAL004  Invalid mapping             column mapped to an unknown or repeated field
//	VAL005  Unknown entity type
//	VAL006  Entity mismatch             request body names another entity than the URL
//	VAL007  Malformed request           body is not the expected JSON
//	FILE001 File too large
//	FILE002 Unsupported format          not CSV/TSV/XLSX
//	FILE003 Encoding error
//	FILE004 No file
//	FILE005 Empty file
//	IMP001  Too many imports            all import slots busy
//	IMP002  Import aborted              whole batch rolled back
//	IMP003  Leader mismatch             leader id does not own the pending key
//	IMP004  Not found
//	IMP005  Request cancelled
//	RATE001 Rate limited
//	ERR000  Anything else; check the logs
//
// Sentinel errors are matched with errors.Is; everything else falls back to
// case-insensitive substring patterns. The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrImportAborted matches any TransactionAbortedError.
var ErrImportAborted = errors.New("import aborted")

func (e *TransactionAbortedError) Is(target error) bool { return target == ErrImportAborted }

// UserMessage is an operator-facing explanation of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorRule struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorRules = []errorRule{
	{target: ErrDuplicateNaturalKey, msg: UserMessage{
		Message: "A record with this identifier already exists",
		Action:  "Check the file for repeated ids or names",
		Code:    "DB001",
	}},
	{target: ErrInvalidMapping, msg: UserMessage{
		Message: "The column mapping is not valid for this entity",
		Action:  "Map each column to a listed field, using each field once",
		Code:    "VAL004",
	}},
	{target: ErrUnknownEntity, msg: UserMessage{
		Message: "Unknown entity type",
		Action:  "Use person, leader, candidate or group",
		Code:    "VAL005",
	}},
	{target: ErrEntityMismatch, msg: UserMessage{
		Message: "The entity type in the request does not match the endpoint",
		Action:  "Send the import to the endpoint for its entity type",
		Code:    "VAL006",
	}},
	{target: ErrUnsupportedFormat, msg: UserMessage{
		Message: "The file format is not supported",
		Action:  "Upload a CSV, TSV or XLSX file",
		Code:    "FILE002",
	}},
	{target: ErrTooManyImports, msg: UserMessage{
		Message: "The system is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}},
	{target: ErrLeaderMismatch, msg: UserMessage{
		Message: "That leader does not match the pending reference",
		Action:  "Pick the leader whose national id matches the pending key",
		Code:    "IMP003",
	}},
	{target: ErrNotFound, msg: UserMessage{
		Message: "The requested record was not found",
		Action:  "Refresh and try again",
		Code:    "IMP004",
	}},
	{target: context.Canceled, msg: UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "IMP005",
	}},
	{target: context.DeadlineExceeded, msg: UserMessage{
		Message: "The operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB006",
	}},

	{pattern: "connection refused", msg: UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{pattern: "connection reset", msg: UserMessage{
		Message: "The database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{pattern: "timeout", msg: UserMessage{
		Message: "The operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB006",
	}},
	{pattern: "deadlock", msg: UserMessage{
		Message: "The database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
	{pattern: "national id", msg: UserMessage{
		Message: "Invalid national id",
		Action:  "Use 8 to 10 digits without letters",
		Code:    "VAL001",
	}},
	{pattern: "invalid email", msg: UserMessage{
		Message: "Invalid email address",
		Action:  "Use the form name@domain.tld",
		Code:    "VAL002",
	}},
	{pattern: "required field", msg: UserMessage{
		Message: "A required field is empty",
		Action:  "Fill in every required column",
		Code:    "VAL003",
	}},
	{pattern: "malformed request", msg: UserMessage{
		Message: "The request could not be read",
		Action:  "Send a JSON body in the documented shape",
		Code:    "VAL007",
	}},
	{pattern: "file too large", msg: UserMessage{
		Message: "The file exceeds the maximum upload size",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}},
	{pattern: "encoding", msg: UserMessage{
		Message: "The file contains characters that could not be read",
		Action:  "Save the file as UTF-8",
		Code:    "FILE003",
	}},
	{pattern: "no file provided", msg: UserMessage{
		Message: "No file was selected",
		Action:  "Choose a file to upload",
		Code:    "FILE004",
	}},
	{pattern: "empty file", msg: UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row and data rows",
		Code:    "FILE005",
	}},
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},

	{target: ErrImportAborted, msg: UserMessage{
		Message: "The import failed and no rows were saved",
		Action:  "Fix the reported problem and run the import again",
		Code:    "IMP002",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the operator message for err, or ERR000 when nothing
// matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, r := range errorRules {
		if r.target != nil {
			if errors.Is(err, r.target) {
				return r.msg
			}
			continue
		}
		if strings.Contains(text, r.pattern) {
			return r.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its operator message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }
func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err; it returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
