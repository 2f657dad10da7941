// taskctl is a terminal client for the task API. It keeps the login token
// in a session file and renders the task list after every change.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/BuzzLyutic/personal-tasks/pkg/client"
)

type env struct {
	out         io.Writer
	server      string
	sessionPath string
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

// commands maps every user action to its handler.
var commands = map[string]command{
	"register": {"create an account and log in", runRegister},
	"login":    {"log in and save the session", runLogin},
	"logout":   {"forget the saved session", runLogout},
	"list":     {"show tasks (--filter all|active|completed)", runList},
	"add":      {"create a task", runAdd},
	"edit":     {"change fields of a task", runEdit},
	"toggle":   {"mark a task done or not done", runToggle},
	"rm":       {"delete a task", runRemove},
	"progress": {"show the completion percentage", runProgress},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	e := &env{out: out}

	flagSet := pflag.NewFlagSet("taskctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&e.server, "server", defaultServer(), "API base URL (TASKS_SERVER)")
	flagSet.StringVar(&e.sessionPath, "session", "", "session file (default: <config dir>/taskctl/session.json)")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() { printHelp(out, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(out, flagSet)
		return nil
	}

	if e.sessionPath == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			return err
		}
		e.sessionPath = path
	}

	name := flagSet.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (run taskctl --help)", name)
	}

	err := cmd.run(ctx, e, flagSet.Args()[1:])
	if errors.Is(err, client.ErrUnauthorized) {
		// просроченный токен: сессию удаляем, как выход из аккаунта
		_ = client.ClearSession(e.sessionPath)
		return errors.New("session expired, run `taskctl login`")
	}
	return err
}

func defaultServer() string {
	if v := os.Getenv("TASKS_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func printHelp(out io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(out, "usage: taskctl [flags] <command> [command flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "flags:")
	fmt.Fprint(out, flagSet.FlagUsages())
}

// session loads the saved session or explains how to get one.
func (e *env) session() (client.Session, error) {
	s, err := client.LoadSession(e.sessionPath)
	if errors.Is(err, client.ErrNoSession) {
		return s, errors.New("not logged in, run `taskctl login` or `taskctl register`")
	}
	return s, err
}

// board returns a Board loaded with the full task list.
func (e *env) board(ctx context.Context) (*client.Board, error) {
	s, err := e.session()
	if err != nil {
		return nil, err
	}
	server := e.server
	if s.Server != "" && server == defaultServer() {
		server = s.Server
	}
	b := client.NewBoard(client.New(server, client.WithToken(s.Token)))
	if err := b.Load(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// resolve turns a full id or unique prefix into a task id.
func resolve(b *client.Board, ref string) (string, error) {
	t, ok := b.Find(strings.TrimSpace(ref))
	if !ok {
		return "", fmt.Errorf("no single task matches %q", ref)
	}
	return t.ID, nil
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return args[0], nil
}
