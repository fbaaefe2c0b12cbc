package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const helpText = `Commands:
  :help                          show this help
  :tools                         list available tools
  :profile show|get <key>|set <key> <value>
  :topics [clear]                list (or clear) important topics
  :preferences [get <key>|set <key> <value>]
  :history                       show this session's turns
  :clear                         forget this session's turns
  :summary                       summarize the session for next time
  :quit                          exit (also :exit, quit, exit)

Anything else is sent to StudBot.`

var exitCommands = map[string]bool{":quit": true, ":exit": true, "quit": true, "exit": true}

// readLines feeds lines from r until EOF. The goroutine ends with r.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// runREPL reads utterances until EOF, an exit command or ctx ends.
func runREPL(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "StudBot - your AI study companion. Type :help for commands, :quit to exit.")
	if a.cfg.Offline {
		fmt.Fprintln(out, "Offline mode: requests are routed by keyword and web search is disabled.")
	}
	lines := readLines(in)
	for {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}
		fmt.Fprint(out, "You: ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if strings.HasPrefix(line, ":") {
			a.command(ctx, line, out)
			continue
		}
		reply := a.manager.HandleTurn(ctx, line)
		fmt.Fprintf(out, "StudBot: %s\n\n", reply.Text)
	}
}

// splitCommand accepts both ":profile set name Ada" and ":profile:set name Ada".
func splitCommand(line string) (name, action, rest string) {
	s := strings.TrimPrefix(strings.TrimSpace(line), ":")
	next := func() string {
		s = strings.TrimLeft(s, ": ")
		i := strings.IndexAny(s, ": ")
		if i < 0 {
			tok := s
			s = ""
			return tok
		}
		tok := s[:i]
		s = s[i:]
		return tok
	}
	name = strings.ToLower(next())
	action = strings.ToLower(next())
	rest = strings.TrimSpace(strings.TrimLeft(s, ": "))
	return name, action, rest
}

func splitKeyValue(s string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(strings.TrimSpace(s), " ")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	return key, value, ok && key != "" && value != ""
}

func (a *app) command(ctx context.Context, line string, out io.Writer) {
	name, action, rest := splitCommand(line)
	store := a.manager.Store()
	switch name {
	case "help":
		fmt.Fprintln(out, helpText)
	case "tools":
		printCatalog(out, a.registry.Catalog(), false)
	case "profile":
		switch action {
		case "", "show":
			printMap(out, "User Profile:", store.Profile())
		case "get":
			fmt.Fprintf(out, "%s: %s\n", rest, store.GetProfileField(rest))
		case "set":
			key, value, ok := splitKeyValue(rest)
			if !ok {
				fmt.Fprintln(out, "Usage: :profile set <key> <value>")
				return
			}
			if err := store.SetProfileField(key, value); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				return
			}
			a.save(out)
			fmt.Fprintf(out, "Profile set: %s = %s\n", key, value)
		default:
			fmt.Fprintln(out, "Usage: :profile set <key> <value> OR :profile get <key> OR :profile show")
		}
	case "topics":
		if action == "clear" {
			store.ClearTopics()
			a.save(out)
			fmt.Fprintln(out, "Topics cleared.")
			return
		}
		printTopics(out, store.Topics())
	case "preferences":
		switch action {
		case "", "show":
			printMap(out, "Learning Preferences:", store.GetPreferences())
		case "get":
			fmt.Fprintf(out, "%s: %s\n", rest, store.GetPreference(rest))
		case "set":
			key, value, ok := splitKeyValue(rest)
			if !ok {
				fmt.Fprintln(out, "Usage: :preferences set <key> <value>")
				return
			}
			if err := store.SetPreference(key, value); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				return
			}
			a.save(out)
			fmt.Fprintf(out, "Preference set: %s = %s\n", key, value)
		default:
			fmt.Fprintln(out, "Usage: :preferences set <key> <value> OR :preferences get <key>")
		}
	case "history":
		turns := a.manager.History()
		if len(turns) == 0 {
			fmt.Fprintln(out, "No turns yet.")
			return
		}
		for _, t := range turns {
			fmt.Fprintf(out, "[%s] %s: %s\n", t.At.Format("15:04:05"), t.Role, t.Content)
		}
	case "clear":
		a.manager.ClearHistory()
		fmt.Fprintln(out, "Conversation history cleared.")
	case "summary":
		summary, err := a.manager.Summarize(ctx)
		if err != nil && summary == "" {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Session summary: %s\n", summary)
	default:
		fmt.Fprintf(out, "Unknown command :%s. Type :help for commands.\n", name)
	}
}

func (a *app) save(out io.Writer) {
	if _, err := a.manager.Store().SaveIfDirty(); err != nil {
		fmt.Fprintf(out, "Error: could not save: %v\n", err)
	}
}
