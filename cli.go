package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// runInteractiveCLI reads line commands from in and drives the same
// dispatcher as the web page, so the admin flow can be exercised without a
// browser. It returns the session state left after the last command.
func (a *App) runInteractiveCLI(ctx context.Context, in io.Reader, out io.Writer, state SessionState) SessionState {
	fmt.Fprintln(out, WelcomeMsg)
	fmt.Fprintln(out, HelpMsg)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n"+PromptStr)
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := strings.ToLower(parts[0])
		switch cmd {
		case "exit", "quit":
			return state

		case "help":
			fmt.Fprintln(out, HelpMsg)

		case "connect":
			conn, err := parseConnectArgs(parts[1:])
			if err != nil {
				fmt.Fprintln(out, "Usage: connect local | connect remote <host> <port>")
				continue
			}
			state = a.cliDispatch(ctx, out, state, SelectConnection{Config: conn})

		case "collections":
			state = a.cliCollections(ctx, out, state)

		case "use":
			if len(parts) < 2 {
				fmt.Fprintln(out, "Usage: use <collection>")
				continue
			}
			state = a.cliDispatch(ctx, out, state, SelectCollection{Collection: parts[1]})

		case "docs":
			state = a.cliDocuments(ctx, out, state)

		case "add":
			if len(parts) < 2 {
				fmt.Fprintln(out, "Usage: add <content>")
				continue
			}
			state = a.cliAdd(ctx, out, state, AddDocument{Content: strings.Join(parts[1:], " ")})

		case "addmeta":
			if len(parts) < 4 {
				fmt.Fprintln(out, "Usage: addmeta <key> <value> <content>")
				continue
			}
			state = a.cliAdd(ctx, out, state, AddDocument{
				MetadataKey:   parts[1],
				MetadataValue: parts[2],
				Content:       strings.Join(parts[3:], " "),
			})

		case "create":
			if len(parts) < 2 {
				fmt.Fprintln(out, "Usage: create <name>")
				continue
			}
			state = a.cliDispatch(ctx, out, state, CreateCollection{Collection: parts[1]})

		case "danger":
			if len(parts) < 2 || (parts[1] != "on" && parts[1] != "off") {
				fmt.Fprintln(out, "Usage: danger on|off")
				continue
			}
			state = a.cliDispatch(ctx, out, state, SetDangerMode{Enabled: parts[1] == "on"})

		case "delete":
			if len(parts) < 2 {
				fmt.Fprintln(out, "Usage: delete <name>")
				continue
			}
			state = a.cliDispatch(ctx, out, state, DeleteCollection{Collection: parts[1]})

		case "export":
			state = a.cliExport(ctx, out, state)

		default:
			fmt.Fprintln(out, UnknownCmdMsg)
		}
	}
	return state
}

func parseConnectArgs(args []string) (ConnectionConfig, error) {
	if len(args) == 0 {
		return ConnectionConfig{}, fmt.Errorf("missing connection type")
	}
	mode, err := ParseHostType(args[0])
	if err != nil {
		return ConnectionConfig{}, err
	}
	if mode == HostLocal {
		return LocalConnection(), nil
	}
	if len(args) < 3 {
		return ConnectionConfig{}, fmt.Errorf("remote needs host and port")
	}
	port, err := strconv.Atoi(args[2])
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("invalid port %q: %w", args[2], err)
	}
	return ConnectionConfig{Mode: HostRemote, Host: args[1], Port: port}, nil
}

// cliDispatch applies one command and prints its notices.
func (a *App) cliDispatch(ctx context.Context, out io.Writer, state SessionState, cmd Command) SessionState {
	next, _ := a.Dispatch(ctx, state, cmd)
	return printNotices(out, next)
}

func (a *App) cliAdd(ctx context.Context, out io.Writer, state SessionState, cmd AddDocument) SessionState {
	// pick the default collection the way the page does before adding
	_, state = a.Render(ctx, state)
	next, res := a.Dispatch(ctx, state, cmd)
	if res.Err == nil {
		fmt.Fprintf(out, "ID: %s\n", res.DocumentID)
	}
	return printNotices(out, next)
}

func (a *App) cliCollections(ctx context.Context, out io.Writer, state SessionState) SessionState {
	view, next := a.Render(ctx, state)
	printViewNotices(out, view)
	if view.EmptyNotice != "" {
		fmt.Fprintln(out, view.EmptyNotice)
	}
	for _, name := range view.Collections {
		marker := "  "
		if name == view.Selected {
			marker = "* "
		}
		fmt.Fprintln(out, marker+name)
	}
	return next
}

func (a *App) cliDocuments(ctx context.Context, out io.Writer, state SessionState) SessionState {
	view, next := a.Render(ctx, state)
	printViewNotices(out, view)
	switch {
	case view.EmptyNotice != "":
		fmt.Fprintln(out, view.EmptyNotice)
	case view.DocsNotice != "":
		fmt.Fprintln(out, view.DocsNotice)
	}
	for _, doc := range view.Documents {
		fmt.Fprintf(out, "Document ID: %s\n%s\nMetadata: %s\n---\n", doc.ID, doc.Content, doc.MetadataJSON)
	}
	return next
}

func (a *App) cliExport(ctx context.Context, out io.Writer, state SessionState) SessionState {
	_, state = a.Render(ctx, state)
	data, err := a.ExportCollection(ctx, state)
	if err != nil {
		fmt.Fprintln(out, describeError(err))
		return state
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return state
	}
	fmt.Fprintln(out, string(raw))
	return state
}

func printNotices(out io.Writer, state SessionState) SessionState {
	notices, next := state.TakeNotices()
	for _, n := range notices {
		fmt.Fprintln(out, n.Text)
	}
	return next
}

func printViewNotices(out io.Writer, view View) {
	for _, n := range view.Notices {
		fmt.Fprintln(out, n.Text)
	}
}
