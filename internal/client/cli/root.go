package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) prompt() string {
	s := string(a.mode)
	if a.sess.CuratorName != "" {
		s = a.sess.CuratorName + " " + s
	}
	return fmt.Sprintf("pk (%s)> ", s)
}

func (a *App) repl(ctx context.Context) error {
	a.printf("placekeeper console (type 'help' for commands)\n")

	scanner := bufio.NewScanner(a.reader)
	for {
		a.printf("%s", a.prompt())
		if !scanner.Scan() {
			return scanner.Err()
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]
		if cmd == "exit" || cmd == "quit" {
			a.printf("bye\n")
			return nil
		}
		if err := a.dispatch(ctx, cmd, args); err != nil {
			a.printf("error: %v\n", err)
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		a.help()
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "add":
		return a.addEntity(ctx)
	case "list":
		return a.listEntities(ctx, args)
	case "show":
		return a.showEntity(ctx, args)
	case "delete":
		return a.deleteEntity(ctx, args)
	case "curate":
		return a.curate(ctx, args)
	case "curations":
		return a.listCurations(ctx, args)
	case "sync":
		return a.syncNow(ctx)
	case "conflicts":
		return a.listConflicts(ctx)
	case "conflict":
		return a.showConflict(ctx, args)
	case "resolve":
		return a.resolve(ctx, args)
	case "status":
		return a.status(ctx)
	default:
		a.printf("unknown command %q, try 'help'\n", cmd)
	}
	return nil
}

func (a *App) help() {
	if !a.isLoggedIn() {
		a.printf("commands: register, login, add, list, show <id>, status, exit\n")
		a.printf("(sync needs a logged-in session; local edits queue up meanwhile)\n")
		return
	}
	a.printf("venues:     add, list [type], show <id>, delete <id>\n")
	a.printf("curations:  curate <entity-id>, curations <entity-id>\n")
	a.printf("sync:       sync, conflicts, conflict <id>, resolve <id> <keep_local|keep_server>, status\n")
	a.printf("session:    login, register, exit\n")
}
