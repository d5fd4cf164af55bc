package boterr

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoCodeBlock  = errors.New("no code block found")
	ErrNotValidUTF8 = errors.New("file is not valid utf-8")
	ErrCooldown     = errors.New("command on cooldown")
	ErrQueueFull    = errors.New("dispatch queue full")
	ErrNoCrateName  = errors.New("crate name is required")
)

const genericMessage = "Something went wrong while running that command."

// UserError is an input error whose message is safe to show in chat.
type UserError struct {
	Kind    string
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return e.Kind + ": " + e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) UserMessage() string {
	return e.Message
}

func InvalidID(input string) error {
	return &UserError{Kind: "invalid_id", Message: fmt.Sprintf("`%s` does not contain a valid gist id", input)}
}

func NotValidFile(name string) error {
	return &UserError{Kind: "not_valid_file", Message: fmt.Sprintf("`%s` is not a Rust source file (expected a `.rs` extension)", name)}
}

func CodeTooLong(actual, max int) error {
	return &UserError{Kind: "code_too_long", Message: fmt.Sprintf("The file is %d bytes long, the maximum allowed is %d bytes", actual, max)}
}

func NoMatch(query string) error {
	return &UserError{Kind: "no_match", Message: fmt.Sprintf("No documentation found for `%s`", query)}
}

func CrateNotFound(name string) error {
	return &UserError{Kind: "crate_not_found", Message: fmt.Sprintf("Crate `%s` was not found on crates.io", name)}
}

func Cooldown(remaining time.Duration) error {
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return &UserError{
		Kind:    "cooldown",
		Message: fmt.Sprintf("This command is on cooldown, try again in %d seconds.", seconds),
		Err:     ErrCooldown,
	}
}

func PageOutOfRange(max int) error {
	return &UserError{Kind: "page_out_of_range", Message: fmt.Sprintf("Page out of range (max %d)", max)}
}

// IsUserError reports whether err carries a message meant for the requester.
func IsUserError(err error) bool {
	if err == nil {
		return false
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return true
	}
	return errors.Is(err, ErrNoCodeBlock) || errors.Is(err, ErrNotValidUTF8) || errors.Is(err, ErrCooldown) || errors.Is(err, ErrQueueFull) || errors.Is(err, ErrNoCrateName)
}

// UserFacing maps err to the text shown in chat. Anything that is not an
// input error collapses into a generic message.
func UserFacing(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage()
	}
	switch {
	case errors.Is(err, ErrNoCodeBlock):
		return "No code block found. Wrap your code in ```rust ... ```."
	case errors.Is(err, ErrNotValidUTF8):
		return "The file is not valid UTF-8."
	case errors.Is(err, ErrCooldown):
		return "This command is on cooldown, try again in a minute."
	case errors.Is(err, ErrQueueFull):
		return "The bot is busy right now, try again shortly."
	case errors.Is(err, ErrNoCrateName):
		return "A crate name is required."
	}
	return genericMessage
}
