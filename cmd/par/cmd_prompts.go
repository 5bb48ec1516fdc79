package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"par/pkg/prompt"

	"github.com/spf13/cobra"
)

// newPromptsCmd creates the "par prompts" subcommand tree.
func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage the stored instruction library",
	}

	cmd.AddCommand(
		newPromptsListCmd(),
		newPromptsShowCmd(),
		newPromptsAddCmd(),
		newPromptsRemoveCmd(),
	)

	return cmd
}

// promptStore builds the store from config.
func promptStore() (*prompt.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return prompt.NewStore(cfg.Prompts.StorageDir), nil
}

func newPromptsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := promptStore()
			if err != nil {
				return err
			}
			return runPromptsList(store, cmd.OutOrStdout())
		},
	}
}

func newPromptsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a stored prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := promptStore()
			if err != nil {
				return err
			}
			return runPromptsShow(store, cmd.OutOrStdout(), args[0])
		},
	}
}

func newPromptsAddCmd() *cobra.Command {
	var file string
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a prompt from a file or stdin",
		Long:  "Stores a new prompt. Content comes from --file, or from stdin when\n--file is \"-\" or omitted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := promptStore()
			if err != nil {
				return err
			}
			return runPromptsAdd(store, cmd.OutOrStdout(), cmd.InOrStdin(), args[0], description, file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read prompt content from this file (\"-\" for stdin)")
	cmd.Flags().StringVar(&description, "description", "", "one-line prompt description")

	return cmd
}

func newPromptsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a stored prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := promptStore()
			if err != nil {
				return err
			}
			return runPromptsRemove(store, cmd.OutOrStdout(), args[0])
		},
	}
}

// runPromptsList prints a name/description table of every prompt.
func runPromptsList(store *prompt.Store, w io.Writer) error {
	prompts, err := store.List()
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		fmt.Fprintln(w, "No prompts stored.")
		return nil
	}

	fmt.Fprintf(w, "%-24s %s\n", "Name", "Description")
	fmt.Fprintf(w, "%-24s %s\n", "----", "-----------")
	for _, p := range prompts {
		fmt.Fprintf(w, "%-24s %s\n", p.Name, p.Description)
	}
	return nil
}

// runPromptsShow prints one prompt with its variables and content.
func runPromptsShow(store *prompt.Store, w io.Writer, name string) error {
	p, err := store.Load(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	if len(p.Variables) > 0 {
		keys := make([]string, 0, len(p.Variables))
		for k := range p.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "Variables:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %s\n", k, p.Variables[k])
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.Content)
	return nil
}

// runPromptsAdd stores a prompt read from a file or the given reader.
func runPromptsAdd(store *prompt.Store, w io.Writer, stdin io.Reader, name, description, file string) error {
	var content []byte
	var err error

	switch file {
	case "", "-":
		content, err = io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	default:
		content, err = os.ReadFile(file) //nolint:gosec // user-supplied path by design
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return fmt.Errorf("prompt %q has no content", name)
	}

	p := &prompt.Prompt{Name: name, Description: description, Content: text}
	if err := store.Save(p); err != nil {
		return err
	}
	fmt.Fprintf(w, "Stored prompt %q (%d bytes).\n", name, len(text))
	return nil
}

// runPromptsRemove deletes a prompt by name.
func runPromptsRemove(store *prompt.Store, w io.Writer, name string) error {
	if err := store.Delete(name); err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed prompt %q.\n", name)
	return nil
}
