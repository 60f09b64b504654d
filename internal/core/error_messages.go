package core

// Error codes reference
//
// Errors shown to users carry a code that support can look up here.
// Known sentinel errors are matched first with errors.Is; anything else
// falls back to case-insensitive substring patterns on the error text.
//
// Database (DB)
//
//	DB001 duplicate key          A record with this key already exists
//	DB002 unique constraint      This value must be unique but already exists
//	DB003 foreign key            Referenced record does not exist
//	DB004 connection refused     Unable to connect to database
//	DB005 connection reset       Database connection was interrupted
//	DB006 timeout                Operation timed out
//	DB007 deadlock               Database was busy with conflicting operations
//
// Validation (VAL)
//
//	VAL001 invalid date          Invalid date format
//	VAL002 invalid number        Invalid number format
//	VAL003 required field        A required field is empty
//	VAL004 invalid boolean       Invalid yes/no value
//	VAL005 invalid filter        A filter value could not be applied
//
// Tables (TBL)
//
//	TBL001 table not found       The table does not exist
//	TBL002 read-only             The table cannot be edited
//	TBL003 row not found         The row no longer exists
//
// Editing (EDT)
//
//	EDT001 not editing           The row is not being edited
//	EDT002 stale save            The row was saved after editing moved on
//	EDT003 validation failed     Some fields need attention
//
// Requests (REQ, RATE)
//
//	REQ001 context canceled      Request was cancelled
//	REQ002 deadline exceeded     Request timed out
//	RATE001 rate limit           Too many requests
//	RATE002 query limit          The database is busy
//
// ERR000 is the fallback; check the logs for the technical error.

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/datatable/internal/table"
)

// UserMessage is what a user sees for an error: what happened, what to
// do about it and a code support can look up.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// messageRule matches an error, either by identity or by its lowercased
// text, to a message.
type messageRule struct {
	match func(err error, text string) bool
	msg   UserMessage
}

func is(target error) func(error, string) bool {
	return func(err error, _ string) bool { return errors.Is(err, target) }
}

func mentions(patterns ...string) func(error, string) bool {
	return func(_ error, text string) bool {
		return slices.ContainsFunc(patterns, func(p string) bool {
			return strings.Contains(text, p)
		})
	}
}

// messageRules are tried in order. Sentinels come first so a wrapped
// sentinel wins over whatever driver text surrounds it.
var messageRules = []messageRule{
	{is(table.ErrStaleSave), UserMessage{"The row was saved after you moved to another row", "Reload the table to see the saved values", "EDT002"}},
	{is(table.ErrNotEditing), UserMessage{"This row is not being edited", "Click Edit on the row first", "EDT001"}},
	{is(ErrRowNotFound), UserMessage{"The row no longer exists", "Reload the table", "TBL003"}},
	{is(ErrTableNotFound), UserMessage{"The table does not exist", "Verify the table name is correct", "TBL001"}},
	{is(ErrReadOnly), UserMessage{"This table cannot be edited", "Ask an administrator to enable editing", "TBL002"}},
	{is(ErrInvalidFilter), UserMessage{"A filter value could not be applied", "Check the filter value and try again", "VAL005"}},
	{is(ErrTooManyQueries), UserMessage{"The database is busy", "Please try again in a few seconds", "RATE002"}},
	{is(context.DeadlineExceeded), UserMessage{"Request timed out", "Please try again", "REQ002"}},
	{is(context.Canceled), UserMessage{"Request was cancelled", "Please try again", "REQ001"}},

	{mentions("duplicate key"), UserMessage{"A record with this key already exists", "Use a different value", "DB001"}},
	{mentions("unique constraint", "violates unique"), UserMessage{"This value must be unique but already exists", "Use a different value", "DB002"}},
	{mentions("foreign key"), UserMessage{"Referenced record does not exist", "Check the referenced value", "DB003"}},
	{mentions("connection refused"), UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{mentions("connection reset"), UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{mentions("deadlock"), UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{mentions("timeout"), UserMessage{"Operation timed out", "Please try again later", "DB006"}},

	{mentions("please input", "required field"), UserMessage{"A required field is empty", "Fill in the highlighted fields", "VAL003"}},
	{mentions("invalid date"), UserMessage{"Invalid date format", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL001"}},
	{mentions("invalid number"), UserMessage{"Invalid number format", "Use a plain decimal number", "VAL002"}},
	{mentions("must be yes/no"), UserMessage{"Invalid yes/no value", "Use yes/no, true/false, or 1/0", "VAL004"}},
	{mentions("validation failed"), UserMessage{"Some fields need attention", "Correct the highlighted fields and save again", "EDT003"}},

	{mentions("rate limit"), UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var fallbackMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the first matching message, ERR000 when nothing
// matches and the zero UserMessage for nil.
//
//	MapError(fmt.Errorf("save row 5: %w", ErrRowNotFound)).Code // "TBL003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	text := strings.ToLower(err.Error())
	for _, r := range messageRules {
		if r.match(err, text) {
			return r.msg
		}
	}
	return fallbackMessage
}

// IsUserFacing reports whether err has a specific message.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != fallbackMessage.Code
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
