// ABOUTME: Compact callback-data token correlating a button press to a conversation step
// ABOUTME: Format is action+STATE+itemID; malformed input always yields ErrDecode

package callback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

// Separator joins token fields. It may not appear in any field.
const Separator = "+"

// MaxLength is Telegram's limit on callback data, in bytes.
const MaxLength = 64

// ErrDecode is returned for any token that is not well formed.
var ErrDecode = errors.New("malformed callback token")

// ErrInvalidField is returned by Encode when a field cannot be represented.
var ErrInvalidField = errors.New("invalid callback token field")

// ErrTokenTooLong is returned by Encode when the token exceeds MaxLength.
var ErrTokenTooLong = errors.New("callback token too long")

// Action is the button the user pressed.
type Action string

// Actions offered on the confirmation keyboard.
const (
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// Label returns the button text for the action.
func (a Action) Label() string {
	switch a {
	case ActionConfirm:
		return "Confirm"
	case ActionCancel:
		return "Cancel"
	default:
		return string(a)
	}
}

func (a Action) valid() bool {
	return a == ActionConfirm || a == ActionCancel
}

// Token identifies the step and item a button belongs to.
type Token struct {
	State  conversation.State
	ItemID string
	Action Action
}

// String encodes the token, or returns "" if it cannot be encoded.
func (t Token) String() string {
	s, err := Encode(t.State, t.ItemID, t.Action)
	if err != nil {
		return ""
	}
	return s
}

// Encode builds the callback data for a button.
func Encode(state conversation.State, itemID string, action Action) (string, error) {
	if !state.Valid() {
		return "", fmt.Errorf("%w: state %s", ErrInvalidField, state)
	}
	if !action.valid() {
		return "", fmt.Errorf("%w: action %q", ErrInvalidField, action)
	}
	if itemID == "" {
		return "", fmt.Errorf("%w: empty item ID", ErrInvalidField)
	}
	if strings.Contains(itemID, Separator) {
		return "", fmt.Errorf("%w: item ID %q contains %q", ErrInvalidField, itemID, Separator)
	}

	token := strings.Join([]string{string(action), state.String(), itemID}, Separator)
	if len(token) > MaxLength {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
	}
	return token, nil
}

// Decode parses callback data produced by Encode.
func Decode(data string) (Token, error) {
	if len(data) > MaxLength {
		return Token{}, fmt.Errorf("%w: %d bytes", ErrDecode, len(data))
	}

	parts := strings.Split(data, Separator)
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrDecode, len(parts))
	}

	action := Action(parts[0])
	if !action.valid() {
		return Token{}, fmt.Errorf("%w: unknown action %q", ErrDecode, parts[0])
	}

	state, err := conversation.ParseState(parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if parts[2] == "" {
		return Token{}, fmt.Errorf("%w: empty item ID", ErrDecode)
	}

	return Token{State: state, ItemID: parts[2], Action: action}, nil
}
