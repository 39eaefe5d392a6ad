package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/keyring"
	"github.com/dmitrijs2005/gophdiary/internal/common"
)

func (a *App) KeyInfo(ctx context.Context) error {
	st, err := a.authService.KeyStatus(ctx)
	if err != nil {
		return err
	}
	switch st {
	case keyring.KeyStatusReady:
		a.printf("%s\n", successText.Sprintf("Secret key: %s", st))
	default:
		a.printf("%s\n", warningText.Sprintf("Secret key: %s", st))
	}
	return nil
}

func (a *App) ExportKey(ctx context.Context) error {
	secret, err := a.authService.ExportSecretKey(ctx)
	if err != nil {
		return err
	}
	a.printf("Your secret key:\n%s\n", secret)
	return nil
}

// ImportKey replaces the device key with one exported on another device.
func (a *App) ImportKey(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotLoggedIn
	}
	secret, err := a.text("Paste secret key")
	if err != nil {
		return err
	}
	if secret == "" {
		return fmt.Errorf("%w: secret key is empty", common.ErrValidation)
	}
	password, err := a.readSecret("Password")
	if err != nil {
		return err
	}

	if err := a.call(ctx, "Importing key...", func(ctx context.Context) error {
		return a.authService.ImportSecretKey(ctx, password, secret)
	}); err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("Secret key imported."))
	return nil
}

// NewKey issues a fresh device key. Posts written under the old key stay
// unreadable with it, so the user has to confirm.
func (a *App) NewKey(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotLoggedIn
	}
	a.printf("%s\n", warningText.Sprintf("existing posts will not be readable with the new key"))
	answer, err := a.text("Issue a new secret key? [y/N]")
	if err != nil {
		return err
	}
	if answer != "y" && answer != "Y" {
		return nil
	}
	password, err := a.readSecret("Password")
	if err != nil {
		return err
	}

	var secret string
	err = a.call(ctx, "Issuing key...", func(ctx context.Context) error {
		secret, err = a.authService.IssueSecretKey(ctx, password)
		return err
	})
	if err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("New secret key issued."))
	a.printf("Your secret key (store it safely):\n%s\n", secret)
	return nil
}
