package identity

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// NewPhoneInput builds the phone number field. It is shared by the
// standalone prompt and the embedded form in the terminal UI.
func NewPhoneInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Enter phone to view notifications").
		Placeholder("10-digit phone number").
		Validate(ValidatePhone).
		Value(value)
}

// HuhPrompter asks for the phone number on the terminal.
type HuhPrompter struct{}

// Prompt implements Prompter. Aborting the form yields an empty answer.
func (HuhPrompter) Prompt(ctx context.Context) (string, error) {
	var phone string
	form := huh.NewForm(huh.NewGroup(NewPhoneInput(&phone)))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", err
	}
	return phone, nil
}
