package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user questions.
type Prompter interface {
	Confirm(title string) (bool, error)
	Input(title string, placeholder string) (string, error)
	Select(title string, options []string) (string, error)
}

var runConfirmPrompt = func(title string, ok *bool) error {
	return huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(ok).
		Run()
}

var runInputPrompt = func(title string, placeholder string, input *string) error {
	return huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(input).
		Run()
}

var runSelectPrompt = func(title string, options []huh.Option[string], selected *string) error {
	return huh.NewSelect[string]().
		Title(title).
		Options(options...).
		Value(selected).
		Run()
}

// HuhPrompter implements Prompter with terminal forms.
type HuhPrompter struct{}

// Confirm asks a yes/no question, defaulting to no.
func (HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool

	if err := runConfirmPrompt(title, &ok); err != nil {
		return false, fmt.Errorf("prompt confirm: %w", err)
	}

	return ok, nil
}

// Input asks for a line of text. An empty answer returns
// placeholder.
func (HuhPrompter) Input(title string, placeholder string) (string, error) {
	var input string

	if err := runInputPrompt(title, placeholder, &input); err != nil {
		return "", fmt.Errorf("prompt input: %w", err)
	}

	if input == "" {
		return placeholder, nil
	}

	return input, nil
}

// Select asks the user to pick one of options.
func (HuhPrompter) Select(title string, options []string) (string, error) {
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt, opt)
	}

	var selected string

	if err := runSelectPrompt(title, huhOptions, &selected); err != nil {
		return "", fmt.Errorf("prompt select: %w", err)
	}

	return selected, nil
}

// Assume answers every question without asking: yes to
// confirmations, the placeholder to inputs and the first
// option to selections. It backs --yes.
type Assume struct{}

// Confirm returns true.
func (Assume) Confirm(string) (bool, error) {
	return true, nil
}

// Input returns placeholder.
func (Assume) Input(_ string, placeholder string) (string, error) {
	return placeholder, nil
}

// Select returns the first option.
func (Assume) Select(_ string, options []string) (string, error) {
	if len(options) == 0 {
		return "", nil
	}

	return options[0], nil
}
