package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	"github.com/faircombine/faircombine/internal/logging"
	"github.com/faircombine/faircombine/internal/store"
)

// Terminal styles for session rendering.
var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	disabledStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
)

// newSessionCmd creates the session command group.
func newSessionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect assessment sessions",
	}
	cmd.AddCommand(newSessionShowCmd(flags))
	return cmd
}

// newSessionShowCmd creates the session show command, which renders a
// stored session's task tree and scores.
func newSessionShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's task tree and scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionShow(cmd.Context(), cmd, flags, args[0])
		},
	}
}

func runSessionShow(ctx context.Context, cmd *cobra.Command, flags *globalFlags, sessionID string) error {
	cfg, err := config.Load(ctx, flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	ctx = logging.Setup(cfg.Logging).WithContext(ctx)

	st, err := store.NewRedisStore(ctx, store.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	session, err := st.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	cmd.Print(renderSession(session))
	return nil
}

// renderSession formats a session as a header, the task tree, and the
// aggregate scores.
func renderSession(session *domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("Session"), session.ID)
	fmt.Fprintf(&b, "%s %s  %s %s\n",
		dimStyle.Render("status:"), session.Status,
		dimStyle.Render("subject:"), session.Subject.AssessmentType)
	b.WriteString("\n")

	for _, root := range sortedTasks(session.Tasks) {
		renderTask(&b, root, 0)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("Scores"))
	fmt.Fprintf(&b, "  all            %.2f (essential %.2f, non-essential %.2f)\n",
		session.ScoreAll, session.ScoreAllEssential, session.ScoreAllNonEssential)
	fmt.Fprintf(&b, "  applicable     %.2f (essential %.2f, non-essential %.2f)\n",
		session.ScoreApplicable, session.ScoreApplicableEssential, session.ScoreApplicableNonEssential)
	fmt.Fprintf(&b, "  not applicable %.2f\n", session.RatioNotApplicable)

	return b.String()
}

// renderTask writes one task line and recurses into its children.
func renderTask(b *strings.Builder, task *domain.Task, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s %s", statusBadge(task), task.Name)
	if task.Automated {
		line += dimStyle.Render(" [auto]")
	}
	fmt.Fprintf(b, "%s%s\n", indent, line)

	for _, child := range sortedTasks(task.Children) {
		renderTask(b, child, depth+1)
	}
}

// statusBadge renders a task's outcome with a colour matching its kind.
func statusBadge(task *domain.Task) string {
	label := task.Status.String()
	if task.Disabled {
		return disabledStyle.Render(label)
	}
	switch task.Status {
	case constants.TaskStatusSuccess:
		return successStyle.Render(label)
	case constants.TaskStatusWarnings:
		return warningStyle.Render(label)
	case constants.TaskStatusFailed, constants.TaskStatusError:
		return failedStyle.Render(label)
	default:
		return dimStyle.Render(label)
	}
}

// sortedTasks orders a task map by indicator name for stable output.
func sortedTasks(tasks map[string]*domain.Task) []*domain.Task {
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
