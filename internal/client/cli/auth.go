package cli

import (
	"context"
	"fmt"
	"time"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login authenticates against the inventory service and keeps the session
// for later commands and later runs. The username may be given as the
// only argument; otherwise it is prompted for. The password is always
// read from the terminal and wiped before returning.
func (a *App) Login(ctx context.Context, args []string) error {
	var userName string
	switch len(args) {
	case 0:
		var err error
		userName, err = getSimpleText(a.reader, "Enter username", a.out)
		if err != nil {
			return err
		}
	case 1:
		userName = args[0]
	default:
		return &usageError{"login [username]"}
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	s, err := a.auth.Login(ctx, userName, password)
	if err != nil {
		return err
	}
	a.session = s
	a.log.Info(ctx, "logged in", "user", s.Username, "user_id", s.UserID)
	printlnFn("Login successful")
	return nil
}

// Logout forgets the stored session.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.session = nil
	printlnFn("Logged out")
	return nil
}

// Whoami prints the signed-in user and when the session ends.
func (a *App) Whoami(_ context.Context, _ []string) error {
	if a.session == nil {
		printlnFn("Not logged in")
		return nil
	}
	line := fmt.Sprintf("Logged in as %s", a.session.Username)
	if a.session.UserID != "" {
		line += fmt.Sprintf(" (user id %s)", a.session.UserID)
	}
	printlnFn(line)
	if !a.session.ExpiresAt.IsZero() {
		printlnFn(fmt.Sprintf("Session expires %s", a.session.ExpiresAt.Local().Format(time.RFC1123)))
	}
	return nil
}
