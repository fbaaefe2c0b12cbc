package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/studbot/internal/db"
	"github.com/stupiduntilnot/studbot/internal/session"
	toolpkg "github.com/stupiduntilnot/studbot/internal/tool"
	"github.com/stupiduntilnot/studbot/internal/userctx"
)

func newAskCmd(c *cli) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Send a single message and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("--message is required")
			}
			a, err := buildApp(c.cfg, c.logger, c.errOut)
			if err != nil {
				return err
			}
			defer a.Close()
			reply := a.manager.HandleTurn(cmd.Context(), message)
			fmt.Fprintln(c.out, reply.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send")
	return cmd
}

// withStore runs fn against the loaded store and saves any change.
func (c *cli) withStore(fn func(s *userctx.Store) error) error {
	store, err := openStore(c.cfg, c.logger, c.errOut)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	_, err = store.SaveIfDirty()
	return err
}

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Show or edit the user profile"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every profile field",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withStore(func(s *userctx.Store) error {
					printMap(c.out, "User Profile:", s.Profile())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one profile field",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withStore(func(s *userctx.Store) error {
					fmt.Fprintf(c.out, "%s: %s\n", args[0], s.GetProfileField(args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a profile field",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := strings.Join(args[1:], " ")
				return c.withStore(func(s *userctx.Store) error {
					if err := s.SetProfileField(args[0], value); err != nil {
						return err
					}
					fmt.Fprintf(c.out, "Profile set: %s = %s\n", args[0], value)
					return nil
				})
			},
		},
	)
	return cmd
}

func newTopicsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "topics", Short: "List or clear important topics"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print topics, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withStore(func(s *userctx.Store) error {
					printTopics(c.out, s.Topics())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget every topic",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withStore(func(s *userctx.Store) error {
					s.ClearTopics()
					fmt.Fprintln(c.out, "Topics cleared.")
					return nil
				})
			},
		},
	)
	return cmd
}

func newPreferencesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "preferences", Short: "Show or edit learning preferences"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every preference",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withStore(func(s *userctx.Store) error {
					printMap(c.out, "Learning Preferences:", s.GetPreferences())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withStore(func(s *userctx.Store) error {
					fmt.Fprintf(c.out, "%s: %s\n", args[0], s.GetPreference(args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a preference",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := strings.Join(args[1:], " ")
				return c.withStore(func(s *userctx.Store) error {
					if err := s.SetPreference(args[0], value); err != nil {
						return err
					}
					fmt.Fprintf(c.out, "Preference set: %s = %s\n", args[0], value)
					return nil
				})
			},
		},
	)
	return cmd
}

func newToolsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available study tools and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			composer := session.NewComposer(nil, nil, nil, "", 0, 0)
			registry, err := newRegistry(c.cfg, composer, c.logger)
			if err != nil {
				return err
			}
			printCatalog(c.out, registry.Catalog(), true)
			return nil
		},
	}
}

func newJournalCmd(c *cli) *cobra.Command {
	var (
		dbPath    string
		eventID   int64
		maxDepth  int
		jsonOut   bool
		noPayload bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the event tree of a recorded session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = c.cfg.JournalPath
			}
			if dbPath == "" {
				return fmt.Errorf("no journal: set STUDBOT_JOURNAL_PATH or pass --db")
			}
			database, err := db.OpenReadOnly(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			rootID := eventID
			if rootID == 0 {
				if rootID, err = db.LatestSessionRoot(database); err != nil {
					return fmt.Errorf("find session root: %w", err)
				}
			}
			events, err := db.QuerySubtree(database, rootID)
			if err != nil {
				return fmt.Errorf("query subtree: %w", err)
			}
			root := db.BuildTree(events, rootID)
			if root == nil {
				return fmt.Errorf("event %d not found", rootID)
			}

			opts := db.TreeOptions{MaxDepth: maxDepth, NoPayload: noPayload}
			if jsonOut {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(db.ToJSONEvent(root, opts))
			}
			db.WriteTree(c.out, root, opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "journal database path (default STUDBOT_JOURNAL_PATH)")
	cmd.Flags().Int64Var(&eventID, "id", 0, "show subtree of a specific event ID")
	cmd.Flags().IntVarP(&maxDepth, "depth", "L", 0, "limit display depth (0 = unlimited)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON format")
	cmd.Flags().BoolVar(&noPayload, "no-payload", false, "hide payload details")
	return cmd
}

func printMap(w io.Writer, title string, m map[string]string) {
	fmt.Fprintln(w, title)
	if len(m) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, m[k])
	}
}

func printTopics(w io.Writer, topics []string) {
	fmt.Fprintln(w, "Important Topics:")
	if len(topics) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, t := range topics {
		fmt.Fprintf(w, "  %d. %s\n", i+1, t)
	}
}

func printCatalog(w io.Writer, catalog []toolpkg.Entry, withParams bool) {
	fmt.Fprintln(w, "Available Tools:")
	for _, e := range catalog {
		fmt.Fprintf(w, "  %s - %s\n", e.Name, e.Description)
		if !withParams {
			continue
		}
		for _, p := range e.Schema.Params {
			line := fmt.Sprintf("      %s (%s", p.Name, p.Type)
			if len(p.Enum) > 0 {
				line += ": " + strings.Join(p.Enum, "|")
			}
			if p.Required {
				line += ", required"
			}
			fmt.Fprintln(w, line+")")
		}
	}
}
