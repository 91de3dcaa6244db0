package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// commandContext scopes one command. Ctrl-C cancels the running command
// and returns to the prompt.
var commandContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Whoami(ctx context.Context, args []string) error
	Create(ctx context.Context, args []string) error
	Job(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	AddImages(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Aspects(ctx context.Context, args []string) error
	ReportError(ctx context.Context, cmd string, err error)
}

const (
	helpLoggedOut = "Available commands: login, aspects, exit"
	helpLoggedIn  = "Available commands: create, job, show, addimages, save, delete, aspects, whoami, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the cardkeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches the remaining tokens to methods on 'a'. Unknown
// commands are reported back to the user. The loop exits on scanner EOF,
// when ctx is done, or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	  - help                                      — show available commands
//	  - login [username]                          — authenticate
//	  - logout                                    — forget the session
//	  - whoami                                    — show the current user
//	  - create [-p N] <paths...> [key=value...]   — create items from images
//	  - job [-p N] <archive.zip>                  — server-side batch from a zip
//	  - show <id>                                 — show one item
//	  - addimages <id> <paths...>                 — append images to an item
//	  - save [-c category] <id> [key=value...]    — update an item's data
//	  - delete <id>                               — deactivate an item
//	  - aspects <category>                        — list a category's aspects
//	  - exit | quit                               — leave the program
//
// Each command runs on its own context, so an interrupt stops that command
// (a batch rolls back) and the session stays open. Handler errors are passed
// to a.ReportError, which logs them and prints a short message.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	commands := map[string]func(context.Context, []string) error{
		"login":     a.Login,
		"logout":    a.Logout,
		"whoami":    a.Whoami,
		"create":    a.Create,
		"job":       a.Job,
		"show":      a.Show,
		"addimages": a.AddImages,
		"save":      a.Save,
		"delete":    a.Delete,
		"aspects":   a.Aspects,
	}

	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ck %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		fn, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		cmdCtx, stop := commandContext(ctx)
		err := fn(cmdCtx, args)
		stop()
		if err != nil {
			a.ReportError(ctx, cmd, err)
		}
	}
}
