package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gemai/internal/command"
	"gemai/internal/config"
	"gemai/internal/registry"
	"gemai/internal/run"
	"gemai/internal/screenshot"
)

var footerStyle = lipgloss.NewStyle().Faint(true)

// actionUse maps CLI subcommand names to action ids. The CLI names are
// short verbs; the ids are the stable keys used in history and
// preferences.
var actionUse = []struct {
	use string
	id  string
}{
	{"ask", command.Ask},
	{"translate", command.Translator},
	{"grammar", command.Grammar},
	{"rephrase", command.Rephraser},
	{"shorter", command.Shorter},
	{"longer", command.Longer},
	{"professional", command.Professional},
	{"friend", command.Friend},
	{"explain", command.Explainer},
	{"summarize", command.Summator},
	{"prompt-builder", command.PromptBuilder},
}

func registerActionCommands(root *cobra.Command) {
	for _, a := range actionUse {
		root.AddCommand(newActionCommand(a.use, a.id))
	}
}

func newActionCommand(use, actionID string) *cobra.Command {
	var file, temp string

	meta := command.Get(actionID)
	cmd := &cobra.Command{
		Use:   use + " [text]",
		Short: meta.Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			prefs = applyTemperature(prefs, temp)
			return executeAction(cmd, actionID, config.Invocation{Query: query, AttachmentFile: file})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "attach a file to the request")
	cmd.Flags().StringVarP(&temp, "temp", "t", "", "temperature: precise, creative, artist or a number")
	return cmd
}

// applyTemperature maps the preset names onto the temperature
// preference; anything else is passed through for numeric parsing.
func applyTemperature(p config.Preferences, temp string) config.Preferences {
	switch strings.ToLower(strings.TrimSpace(temp)) {
	case "":
	case "precise":
		p.Temperature = strconv.FormatFloat(registry.DefaultTemp, 'f', -1, 64)
	case "creative":
		p.Temperature = strconv.FormatFloat(registry.DefaultTempCreative, 'f', -1, 64)
	case "artist":
		p.Temperature = strconv.FormatFloat(registry.DefaultTempArtist, 'f', -1, 64)
	default:
		p.Temperature = temp
	}
	return p
}

func registerScreenshotCommands(root *cobra.Command) {
	screenshots := []struct {
		use string
		id  string
	}{
		{"scr-explain", command.ScrExplain},
		{"scr-markdown", command.ScrMarkdown},
		{"scr-translate", command.ScrTranslate},
	}
	for _, s := range screenshots {
		actionID := s.id
		var selection bool
		cmd := &cobra.Command{
			Use:   s.use,
			Short: command.Get(actionID).Description,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := screenshot.Capture(cmd.Context(), selection)
				if err != nil {
					return err
				}
				return executeAction(cmd, actionID, config.Invocation{
					Query:          "Analyze the attached screenshot.",
					AttachmentFile: path,
				})
			},
		}
		cmd.Flags().BoolVarP(&selection, "select", "s", false, "capture a selected region")
		root.AddCommand(cmd)
	}
}

// executeAction runs one request, streaming the response to stdout and
// closing with the stats footer.
func executeAction(cmd *cobra.Command, actionID string, inv config.Invocation) error {
	cfg, err := config.Build(actionID, inv, prefs)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	printed := 0
	runner := run.New(run.Options{
		Store: store,
		Render: func(text string) {
			fmt.Fprint(out, text[printed:])
			printed = len(text)
		},
	})

	result, err := runner.Execute(cmd.Context(), cfg, inv.Query)
	if err != nil {
		return err
	}

	if result.Substituted != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, footerStyle.Render("(rerouted to "+result.Substituted+": the requested model cannot see images)"))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, footerStyle.Render(result.Footer))
	return nil
}

// readQuery takes the query from the arguments, or from stdin when the
// input is piped and no arguments were given.
func readQuery(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return "", fmt.Errorf("no input: pass text as arguments or pipe it in")
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", fmt.Errorf("no input: pass text as arguments or pipe it in")
	}
	return query, nil
}
