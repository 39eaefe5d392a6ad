package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/client/services"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/google/uuid"
)

var errPasswordsDiffer = fmt.Errorf("%w: passwords do not match", common.ErrValidation)

// newPassword asks for a password twice.
func (a *App) newPassword(prompt string) (string, error) {
	pw, err := a.readSecret(prompt)
	if err != nil {
		return "", err
	}
	again, err := a.readSecret("Repeat password")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errPasswordsDiffer
	}
	return pw, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SignUp collects the account details and asks the server to e-mail a
// verification pin. The returned ticket is kept for Verify.
func (a *App) SignUp(ctx context.Context) error {
	name, err := a.text("Enter name")
	if err != nil {
		return err
	}
	email, err := a.text("Enter email")
	if err != nil {
		return err
	}
	avatar, err := a.text("Avatar URL (optional)")
	if err != nil {
		return err
	}
	password, err := a.newPassword("Password")
	if err != nil {
		return err
	}

	req := services.SignUpRequest{Name: name, Email: email, Password: password, AvatarURL: optional(avatar)}
	var ticket string
	err = a.call(ctx, "Requesting verification pin...", func(ctx context.Context) error {
		ticket, err = a.authService.RequestSignUpToken(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	a.ticket = ticket
	a.printf("%s\n", successText.Sprintf("A verification pin was sent to %s. Run 'verify' to finish.", email))
	return nil
}

// Verify completes the sign up with the e-mailed pin and prints the secret
// key the user has to keep for other devices.
func (a *App) Verify(ctx context.Context) error {
	ticket := a.ticket
	if ticket == "" {
		var err error
		if ticket, err = a.text("Enter sign up ticket"); err != nil {
			return err
		}
	}
	pin, err := a.text("Enter pin")
	if err != nil {
		return err
	}

	var reg *models.Registration
	err = a.call(ctx, "Creating account...", func(ctx context.Context) error {
		reg, err = a.authService.Verify(ctx, services.VerifyRequest{TokenKey: ticket, Pin: pin})
		return err
	})
	if err != nil {
		return err
	}

	a.ticket = ""
	a.printf("%s\n", successText.Sprintf("Account created. You can now 'login'."))
	a.printf("Your secret key (store it safely, it is needed on other devices):\n%s\n", reg.WrappedKey.Ciphertext)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.text("Enter email")
	if err != nil {
		return err
	}
	password, err := a.readSecret("Password")
	if err != nil {
		return err
	}

	err = a.call(ctx, "Logging in...", func(ctx context.Context) error {
		_, err := a.authService.Login(ctx, email, password)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: wrong email or password", common.ErrValidation)
		}
		return err
	}

	a.printf("%s\n", successText.Sprintf("Logged in as %s", email))
	a.warnKeyStatus(ctx)
	return nil
}

// Logout always forgets the local session, the error only tells whether
// the server was told as well.
func (a *App) Logout(ctx context.Context) error {
	err := a.call(ctx, "Logging out...", a.authService.Logout)
	a.printf("Logged out.\n")
	return err
}

func (a *App) Forgot(ctx context.Context) error {
	email, err := a.text("Enter email")
	if err != nil {
		return err
	}
	err = a.call(ctx, "Requesting reset...", func(ctx context.Context) error {
		return a.authService.RequestPasswordToken(ctx, email)
	})
	if err != nil {
		return err
	}
	a.printf("If the account exists, a reset e-mail is on its way. Run 'reset' once it arrives.\n")
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	email, err := a.text("Enter email")
	if err != nil {
		return err
	}
	tokenID, err := a.text("Enter reset token")
	if err != nil {
		return err
	}
	temporary, err := a.readSecret("Temporary password")
	if err != nil {
		return err
	}
	password, err := a.newPassword("New password")
	if err != nil {
		return err
	}

	req := services.ResetPasswordRequest{
		Email:             email,
		TokenID:           tokenID,
		TemporaryPassword: temporary,
		NewPassword:       password,
	}
	err = a.call(ctx, "Resetting password...", func(ctx context.Context) error {
		_, err := a.authService.ResetPassword(ctx, req)
		return err
	})
	if err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("Password changed. You can now 'login'."))
	return nil
}

func (a *App) Passwd(ctx context.Context) error {
	password, err := a.newPassword("New password")
	if err != nil {
		return err
	}
	if err := a.call(ctx, "Changing password...", func(ctx context.Context) error {
		return a.authService.ChangePassword(ctx, password)
	}); err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("Password changed."))
	return nil
}

// Profile edits name and avatar; empty answers keep the current values.
func (a *App) Profile(ctx context.Context) error {
	s := a.authService.Session()
	if s == nil {
		return common.ErrNotLoggedIn
	}

	name, err := a.text(fmt.Sprintf("Name [%s]", s.Account.Name))
	if err != nil {
		return err
	}
	avatar, err := a.text("Avatar URL (empty keeps current)")
	if err != nil {
		return err
	}

	upd := services.UserUpdate{AvatarURL: optional(avatar)}
	if name != "" && name != s.Account.Name {
		upd.Name = &name
	}
	if upd.Name == nil && upd.AvatarURL == nil {
		a.printf("Nothing to change.\n")
		return nil
	}

	if err := a.call(ctx, "Saving profile...", func(ctx context.Context) error {
		return a.authService.UpdateUser(ctx, upd)
	}); err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("Profile updated."))
	return nil
}

func (a *App) Sessions(ctx context.Context) error {
	var rows []sessionRow
	err := a.call(ctx, "Loading sessions...", func(ctx context.Context) error {
		sessions, err := a.authService.ListSessions(ctx)
		for _, s := range sessions {
			agent := "unknown"
			if s.UserAgent != nil {
				agent = *s.UserAgent
			}
			rows = append(rows, sessionRow{id: s.TokenUUID.String(), agent: agent, mine: s.IsMine, at: s.LastAccessed()})
		}
		return err
	})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		a.printf("No active sessions.\n")
		return nil
	}
	a.printf("%s\n", titleText.Sprintf("%-36s  %-19s  %s", "ID", "LAST SEEN", "DEVICE"))
	for _, r := range rows {
		line := fmt.Sprintf("%-36s  %-19s  %s", r.id, r.at.Format(time.DateTime), r.agent)
		if r.mine {
			line += dimText.Sprintf(" (this device)")
		}
		a.printf("%s\n", line)
	}
	return nil
}

type sessionRow struct {
	id    string
	agent string
	mine  bool
	at    time.Time
}

func (a *App) Revoke(ctx context.Context, id string) error {
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q is not a session id", common.ErrValidation, id)
	}
	if err := a.call(ctx, "Revoking session...", func(ctx context.Context) error {
		return a.authService.RevokeSession(ctx, tokenID)
	}); err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("Session %s revoked.", tokenID))
	return nil
}
