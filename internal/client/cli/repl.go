package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	report(err error)

	SignUp(ctx context.Context) error
	Verify(ctx context.Context) error
	Login(ctx context.Context) error
	Forgot(ctx context.Context) error
	Reset(ctx context.Context) error
	Logout(ctx context.Context) error
	Passwd(ctx context.Context) error
	Profile(ctx context.Context) error
	Sessions(ctx context.Context) error
	Revoke(ctx context.Context, id string) error

	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Write(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	KeyInfo(ctx context.Context) error
	ExportKey(ctx context.Context) error
	ImportKey(ctx context.Context) error
	NewKey(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: join, verify, login, forgot, reset, exit"
	helpLoggedIn  = "Available commands: (l)ist, show <id>, write, edit <id>, delete <id>, " +
		"profile, passwd, sessions, revoke <id>, key, export, import, newkey, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop ends on EOF, on "exit"/"quit" or when ctx is done.
//
// Commands that need an argument (show, edit, delete, revoke) take it from
// the same line. Errors returned by handlers are passed to a.report and do
// not stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("gd> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, arg := parts[0], ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		if !dispatch(ctx, a, cmd, arg) {
			printlnFn("Bye!")
			return
		}
	}
}

// dispatch runs one command and reports false when the REPL should stop.
func dispatch(ctx context.Context, a execIface, cmd, arg string) bool {
	needArg := func(fn func(context.Context, string) error) error {
		if arg == "" {
			printlnFn("Usage:", cmd, "<id>")
			return nil
		}
		return fn(ctx, arg)
	}

	var err error
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}

	case "exit", "quit":
		return false

	case "join":
		err = a.SignUp(ctx)
	case "verify":
		err = a.Verify(ctx)
	case "login":
		err = a.Login(ctx)
	case "forgot":
		err = a.Forgot(ctx)
	case "reset":
		err = a.Reset(ctx)
	case "logout":
		err = a.Logout(ctx)
	case "passwd":
		err = a.Passwd(ctx)
	case "profile":
		err = a.Profile(ctx)
	case "sessions":
		err = a.Sessions(ctx)
	case "revoke":
		err = needArg(a.Revoke)

	case "l", "list":
		err = a.List(ctx)
	case "show":
		err = needArg(a.Show)
	case "write":
		err = a.Write(ctx)
	case "edit":
		err = needArg(a.Edit)
	case "delete":
		err = needArg(a.Delete)

	case "key":
		err = a.KeyInfo(ctx)
	case "export":
		err = a.ExportKey(ctx)
	case "import":
		err = a.ImportKey(ctx)
	case "newkey":
		err = a.NewKey(ctx)

	default:
		printlnFn("Unknown command:", cmd)
	}

	a.report(err)
	return true
}
