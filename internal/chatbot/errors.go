package chatbot

import (
	"errors"
	"fmt"

	"mindpulse.local/wellbot/internal/store"
)

var (
	// ErrNotFound covers unknown users, conversations and reminders.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidState is returned for an action the conversation's type or
	// completion state does not allow.
	ErrInvalidState = errors.New("invalid conversation state")
	ErrInactiveUser = fmt.Errorf("%w: user is inactive", ErrInvalidState)
	// ErrRecordNotSaved accompanies a completed result whose derived record
	// write failed. The conversation stays completed.
	ErrRecordNotSaved = errors.New("derived record not saved")
)
