package validation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMessageEmpty is returned when the chat message is missing or whitespace-only.
var ErrMessageEmpty = errors.New("message is required")

// ErrMessageTooLong is returned when the message exceeds the configured length in runes.
var ErrMessageTooLong = errors.New("message too long")

var validate = validator.New()

// ValidateMessage checks a chat message: non-blank and at most maxLen runes once
// trimmed (0 disables the bound). Any other text, control characters included, is
// accepted and returned unmodified; the router answers what it cannot place with
// the apology.
func ValidateMessage(input string, maxLen int) (string, error) {
	tag := "required"
	if maxLen > 0 {
		tag += ",max=" + strconv.Itoa(maxLen)
	}
	if err := validate.Var(strings.TrimSpace(input), tag); err != nil {
		return "", messageError(err)
	}
	return input, nil
}

func messageError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Tag() {
	case "required":
		return ErrMessageEmpty
	case "max":
		return ErrMessageTooLong
	default:
		return err
	}
}
