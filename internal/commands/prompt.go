package commands

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// promptPIN asks for a PIN without echo. Replaced in tests.
var promptPIN = func(title string) (string, error) {
	var pin string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&pin).
				EchoMode(huh.EchoModePassword),
		),
	)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("operation cancelled: %w", err)
	}

	return pin, nil
}

// confirmAction asks a yes/no question. If skip is true, it returns true without
// prompting. Replaced in tests.
var confirmAction = func(title, description string, skip bool) (bool, error) {
	if skip {
		return true, nil
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&confirm),
		),
	)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("operation cancelled: %w", err)
	}

	return confirm, nil
}
