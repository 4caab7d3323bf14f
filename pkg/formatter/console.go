package formatter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/johnsaigle/ghstars/pkg/lookup"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

const (
	iconActive   = "✓"
	iconArchived = "▣"
	iconInactive = "!"
	iconMissing  = "✗"
	iconUnknown  = "?"
	iconStar     = "★"
)

// ConsoleFormatter formats output for human-readable console display
type ConsoleFormatter struct {
	opts Options
}

type consoleStyles struct {
	title, repo, stars, dim, link lipgloss.Style
	icons                         map[lookup.Status]lipgloss.Style
}

// Styles are bound to the output writer so colour is only emitted to terminals.
func newConsoleStyles(w io.Writer) consoleStyles {
	r := lipgloss.NewRenderer(w)
	return consoleStyles{
		title: r.NewStyle().Bold(true).Foreground(colorCyan),
		repo:  r.NewStyle().Bold(true),
		stars: r.NewStyle().Foreground(colorYellow),
		dim:   r.NewStyle().Foreground(colorDim),
		link:  r.NewStyle().Foreground(colorBlue).Underline(true),
		icons: map[lookup.Status]lipgloss.Style{
			lookup.StatusActive:   r.NewStyle().Foreground(colorGreen),
			lookup.StatusArchived: r.NewStyle().Foreground(colorGray),
			lookup.StatusInactive: r.NewStyle().Foreground(colorYellow),
			lookup.StatusNotFound: r.NewStyle().Foreground(colorRed),
			lookup.StatusUnknown:  r.NewStyle().Foreground(colorRed),
		},
	}
}

// Format writes results in human-readable console format
func (f *ConsoleFormatter) Format(w io.Writer, results []lookup.Result) error {
	styles := newConsoleStyles(w)
	p := message.NewPrinter(localeTag(f.opts.Locale))

	fmt.Fprintln(w, styles.title.Render("Repository Lookup Results"))
	fmt.Fprintln(w, styles.dim.Render(strings.Repeat("─", 40)))

	for _, r := range results {
		status := r.Status()
		icon := styles.icons[status].Render(statusIcon(status))

		switch {
		case r.HasData():
			line := fmt.Sprintf("%s %s  %s  %s",
				icon,
				styles.repo.Render(r.Key.String()),
				styles.stars.Render(iconStar+" "+p.Sprintf("%d", r.Stars)),
				status)
			if r.DaysSinceLastPush >= 0 {
				line += "  " + styles.dim.Render(pushedAgo(r.DaysSinceLastPush))
			}
			if r.Stale() {
				line += "  " + styles.icons[lookup.StatusInactive].Render("(stale)")
			} else if r.FromCache {
				line += "  " + styles.dim.Render("(cached)")
			}
			fmt.Fprintln(w, line)

			if f.opts.Verbose {
				fmt.Fprintf(w, "   %s\n", styles.link.Render(repositoryURL(r)))
				fmt.Fprintf(w, "   %s\n", styles.dim.Render("fetched "+r.FetchedAt.Local().Format(time.DateTime)))
			}
		case status == lookup.StatusNotFound:
			fmt.Fprintf(w, "%s %s  %s\n", icon, styles.repo.Render(r.Key.String()), "not found")
		default:
			fmt.Fprintf(w, "%s %s  %s\n", icon, styles.repo.Render(r.Key.String()), styles.dim.Render(r.Message))
		}
	}

	summary := lookup.Summarize(results)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d repositories: %d active, %d archived, %d inactive, %d not found, %d failed\n",
		styles.title.Render("Summary"),
		summary.Total, summary.Active, summary.Archived, summary.Inactive, summary.NotFound, summary.Unknown)
	if summary.Stale > 0 {
		fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("   %d served from a stale cache after a failed refresh", summary.Stale)))
	}

	return nil
}

// ShouldExit returns the exit code based on results
func (f *ConsoleFormatter) ShouldExit(results []lookup.Result) int {
	return exitCode(f.opts, results)
}

func statusIcon(s lookup.Status) string {
	switch s {
	case lookup.StatusActive:
		return iconActive
	case lookup.StatusArchived:
		return iconArchived
	case lookup.StatusInactive:
		return iconInactive
	case lookup.StatusNotFound:
		return iconMissing
	default:
		return iconUnknown
	}
}

func pushedAgo(days int) string {
	switch days {
	case 0:
		return "pushed today"
	case 1:
		return "pushed yesterday"
	default:
		return fmt.Sprintf("pushed %d days ago", days)
	}
}

func localeTag(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
