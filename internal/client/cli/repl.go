package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// printFn and printlnFn are test seams for user-facing output. In tests,
// replace them with stubs.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println

	promptOut io.Writer = os.Stdout
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Login(ctx context.Context, email string) error
	ServerLogin(ctx context.Context, username string) error
	Status(ctx context.Context) error
	Ping(ctx context.Context) error
	List(ctx context.Context, path string) error
	Exec(ctx context.Context, req ExecRequest) error
	Logout(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login [email], status, exit"
	helpLoggedIn  = "Available commands: ls [path], exec <command> [method] [wait] [plain], ping, serverlogin [username], status, logout, exit"
)

// runREPL starts a read–eval–print loop over reader. The same reader must
// back the App's interactive prompts.
//
// The first token of each line is the command; the rest are its arguments.
// "exec ... POST" reads its JSON body from the following lines, ended by an
// empty line. Errors are printed and the loop continues; it exits on EOF or
// on "exit" / "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("shareify %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil {
			if line == "" || !errors.Is(err, io.EOF) {
				return
			}
			err = nil
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			err = a.Login(ctx, arg(args, 0))

		case "serverlogin":
			err = a.ServerLogin(ctx, arg(args, 0))

		case "status":
			err = a.Status(ctx)

		case "ping":
			err = a.Ping(ctx)

		case "ls", "list":
			err = a.List(ctx, arg(args, 0))

		case "exec":
			if len(args) == 0 {
				printlnFn("Usage: exec <command> [method] [wait] [plain]")
				continue
			}
			var req ExecRequest
			if req, err = parseExec(args, reader); err == nil {
				err = a.Exec(ctx, req)
			}

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// parseExec reads "exec <command> [method] [wait] [plain]"; POST commands
// are followed by a body terminated by an empty line.
func parseExec(args []string, reader *bufio.Reader) (ExecRequest, error) {
	req := ExecRequest{Command: args[0], Method: arg(args, 1)}
	for _, a := range args[2:] {
		if a == "plain" {
			req.Plain = true
			continue
		}
		if n, err := strconv.Atoi(a); err == nil {
			req.WaitTime = n
		}
	}

	if strings.EqualFold(req.Method, "POST") {
		body, err := GetMultiline(reader, "Body (JSON object):", promptOut)
		if err != nil {
			return req, err
		}
		req.Body = body
	}
	return req, nil
}
