package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shareify/internal/shared"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// prompt asks for value unless it was given on the command line.
func (a *App) prompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return getSimpleText(a.reader, label, a.out)
}

// Login authenticates against the bridge. The email is prompted for when
// empty; the password is always read from the terminal.
func (a *App) Login(ctx context.Context, email string) error {
	email, err := a.prompt(email, "Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	if err := a.auth.BridgeLogin(ctx, email, string(password)); err != nil {
		return err
	}
	a.println("Logged in as", email)
	return nil
}

// ServerLogin authenticates against the user's server through the relay.
func (a *App) ServerLogin(ctx context.Context, username string) error {
	username, err := a.prompt(username, "Enter server username")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	if err := a.auth.ServerLogin(ctx, username, string(password)); err != nil {
		return err
	}
	a.println("Server login successful for", username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out")
	return nil
}

// Ping reports whether the user's server is reachable.
func (a *App) Ping(ctx context.Context) error {
	if a.auth.IsConnected(ctx) {
		a.println("Server is up")
	} else {
		a.println("Server is unreachable")
	}
	return nil
}

func describeToken(present bool, exp time.Time, now time.Time) string {
	switch {
	case !present:
		return "none"
	case exp.IsZero():
		return "present"
	case now.After(exp):
		return "expired " + exp.Format(time.RFC3339)
	}
	return "valid until " + exp.Format(time.RFC3339)
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.auth.Status(ctx)
	if err != nil {
		return err
	}
	now := time.Now()

	a.println("Client ID:    ", st.ClientID)
	a.println("Bridge user:  ", orDash(st.BridgeUser))
	a.println("Bridge token: ", describeToken(st.Bridge.Present, st.Bridge.ExpiresAt, now))
	a.println("Server user:  ", orDash(st.ServerUser))
	a.println("Server token: ", describeToken(st.Server.Present, st.Server.ExpiresAt, now))
	a.println("Session:      ", st.Session)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// loggedInAs returns the bridge user for the prompt, or "".
func (a *App) loggedInAs(ctx context.Context) string {
	st, err := a.auth.Status(ctx)
	if err != nil || !st.Bridge.Present {
		return ""
	}
	return fmt.Sprintf("(%s)", orDash(st.BridgeUser))
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.loggedInAs(ctx) != ""
}
