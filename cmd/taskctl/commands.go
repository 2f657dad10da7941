package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
	"github.com/BuzzLyutic/personal-tasks/pkg/client"
)

func runRegister(ctx context.Context, e *env, args []string) error {
	var req model.RegisterRequest
	flags := pflag.NewFlagSet("register", pflag.ContinueOnError)
	flags.StringVarP(&req.Username, "username", "u", "", "username")
	flags.StringVarP(&req.Email, "email", "e", "", "email address")
	flags.StringVarP(&req.Password, "password", "p", "", "password (prompted when omitted)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var err error
	if req.Password, err = passwordOr(req.Password); err != nil {
		return err
	}

	c := client.New(e.server)
	resp, err := c.Register(ctx, req)
	if err != nil {
		return err
	}
	return e.saveSession(resp)
}

func runLogin(ctx context.Context, e *env, args []string) error {
	var req model.LoginRequest
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	flags.StringVarP(&req.Username, "username", "u", "", "username")
	flags.StringVarP(&req.Password, "password", "p", "", "password (prompted when omitted)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var err error
	if req.Password, err = passwordOr(req.Password); err != nil {
		return err
	}

	c := client.New(e.server)
	resp, err := c.Login(ctx, req)
	if err != nil {
		return err
	}
	return e.saveSession(resp)
}

func (e *env) saveSession(resp model.AuthResponse) error {
	err := client.SaveSession(e.sessionPath, client.Session{
		Server: e.server,
		Token:  resp.Token,
		User:   resp.User,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Welcome, %s\n", resp.User.Username)
	return nil
}

func runLogout(_ context.Context, e *env, _ []string) error {
	return client.ClearSession(e.sessionPath)
}

func runList(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	filter := flags.StringP("filter", "f", "all", "all, active or completed")
	if err := flags.Parse(args); err != nil {
		return err
	}
	f, err := client.ParseFilter(*filter)
	if err != nil {
		return err
	}

	b, err := e.board(ctx)
	if err != nil {
		return err
	}
	b.SetFilter(f)
	render(e.out, b)
	return nil
}

func runAdd(ctx context.Context, e *env, args []string) error {
	var req model.CreateTaskRequest
	var priority string
	flags := pflag.NewFlagSet("add", pflag.ContinueOnError)
	flags.StringVarP(&req.Description, "description", "d", "", "longer description")
	flags.StringVarP(&priority, "priority", "p", "medium", "low, medium or high")
	flags.StringVar(&req.DueDate, "due", "", "due date, YYYY-MM-DD")
	if err := flags.Parse(args); err != nil {
		return err
	}
	req.Title = strings.Join(flags.Args(), " ")
	req.Priority = model.Priority(priority)

	b, err := e.board(ctx)
	if err != nil {
		return err
	}
	if _, err := b.Add(ctx, req); err != nil {
		return err
	}
	render(e.out, b)
	return nil
}

func runEdit(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	title := flags.StringP("title", "t", "", "new title")
	description := flags.StringP("description", "d", "", "new description")
	priority := flags.StringP("priority", "p", "", "low, medium or high")
	due := flags.String("due", "", "due date YYYY-MM-DD, empty to clear")
	done := flags.Bool("done", false, "completed state")
	if err := flags.Parse(args); err != nil {
		return err
	}
	ref, err := oneArg(flags.Args(), "task id")
	if err != nil {
		return err
	}

	// только явно переданные флаги попадают в запрос
	var req model.UpdateTaskRequest
	if flags.Changed("title") {
		req.Title = title
	}
	if flags.Changed("description") {
		req.Description = description
	}
	if flags.Changed("priority") {
		p := model.Priority(*priority)
		req.Priority = &p
	}
	if flags.Changed("due") {
		req.DueDate = due
	}
	if flags.Changed("done") {
		req.Completed = done
	}

	b, err := e.board(ctx)
	if err != nil {
		return err
	}
	id, err := resolve(b, ref)
	if err != nil {
		return err
	}
	if _, err := b.Edit(ctx, id, req); err != nil {
		return err
	}
	render(e.out, b)
	return nil
}

func runToggle(ctx context.Context, e *env, args []string) error {
	ref, err := oneArg(args, "task id")
	if err != nil {
		return err
	}
	b, err := e.board(ctx)
	if err != nil {
		return err
	}
	id, err := resolve(b, ref)
	if err != nil {
		return err
	}
	if _, err := b.Toggle(ctx, id); err != nil {
		return err
	}
	render(e.out, b)
	return nil
}

func runRemove(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("rm", pflag.ContinueOnError)
	yes := flags.BoolP("yes", "y", false, "do not ask for confirmation")
	if err := flags.Parse(args); err != nil {
		return err
	}
	ref, err := oneArg(flags.Args(), "task id")
	if err != nil {
		return err
	}

	b, err := e.board(ctx)
	if err != nil {
		return err
	}
	id, err := resolve(b, ref)
	if err != nil {
		return err
	}
	if !*yes && !confirm(e, "Are you sure you want to delete this task?") {
		return nil
	}
	if err := b.Remove(ctx, id); err != nil {
		return err
	}
	render(e.out, b)
	return nil
}

func runProgress(ctx context.Context, e *env, _ []string) error {
	b, err := e.board(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, renderProgress(b.Progress()))
	return nil
}

func confirm(e *env, question string) bool {
	fmt.Fprintf(e.out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// passwordOr prompts without echo when the password was not given as a flag.
func passwordOr(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
