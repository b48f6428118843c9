package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"contest-store/internal/contest"

	"github.com/spf13/cobra"
)

// ErrNoSession is returned by commands that need a selected role.
var ErrNoSession = errors.New("no role selected, run 'contest role select' first")

// NewRootCommand builds the contest command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "contest",
		Short:         "Submit, assign and rate music contest entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.Settings.Store.Driver, "driver", app.Settings.Store.Driver, "Storage driver: bolt, sqlite or redis")
	pf.StringVar(&app.Settings.Store.Path, "path", app.Settings.Store.Path, "Storage file for the bolt and sqlite drivers")
	pf.StringVar(&app.Settings.Store.RedisAddr, "redis-addr", app.Settings.Store.RedisAddr, "Redis address for the redis driver")
	pf.StringVar(&app.Settings.LogLevel, "log-level", app.Settings.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&app.Settings.LogFormat, "log-format", app.Settings.LogFormat, "Log format: json or text")

	root.AddCommand(
		newRoleCommand(app),
		newLogoutCommand(app),
		newSubmitCommand(app),
		newListCommand(app),
		newAssignCommand(app),
		newRateCommand(app),
		newJudgesCommand(app),
		newMetricsCommand(app),
	)
	return root
}

func newRoleCommand(app *App) *cobra.Command {
	role := &cobra.Command{
		Use:   "role",
		Short: "Select or show the role this device acts as",
	}

	var userID string
	selectCmd := &cobra.Command{
		Use:       "select <contestant|admin|judge>",
		Short:     "Start a session as contestant, admin or judge",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(contest.RoleContestant), string(contest.RoleAdmin), string(contest.RoleJudge)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				sess, err := e.svc.SelectRole(contest.Role(args[0]), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Signed in as %s (%s)\n", sess.Role, sess.UserID)
				return nil
			})
		},
	}
	selectCmd.Flags().StringVar(&userID, "user-id", "", "User id to act as (generated when empty)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				sess := e.repo.Session()
				if !sess.Active() {
					fmt.Fprintln(app.Out, "No role selected")
					return nil
				}
				fmt.Fprintf(app.Out, "%s (%s)\n", sess.Role, sess.UserID)
				return nil
			})
		},
	}

	role.AddCommand(selectCmd, showCmd)
	return role
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				e.repo.ClearRole(ctx)
				fmt.Fprintln(app.Out, "Logged out")
				return nil
			})
		},
	}
}

func newSubmitCommand(app *App) *cobra.Command {
	var title, artist, audioURL string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a track for review (contestant)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				sub, err := e.svc.Submit(title, artist, audioURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Your submission has been received! (%s)\n", sub.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().StringVar(&artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "URL of the audio file")
	return cmd
}

func newListCommand(app *App) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the submissions visible to the current role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				if !e.repo.Session().Active() {
					return ErrNoSession
				}
				subs := e.svc.Visible()
				if status != "" {
					st := contest.Status(status)
					if !st.Valid() {
						return fmt.Errorf("%w: %q", contest.ErrInvalidStatus, status)
					}
					subs = onlyStatus(subs, st)
				}
				return writeSubmissions(app.Out, subs)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show pending, assigned or judged submissions")
	return cmd
}

func newAssignCommand(app *App) *cobra.Command {
	var judgeID string
	cmd := &cobra.Command{
		Use:   "assign <submission-id>",
		Short: "Assign a submission to a judge (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				if err := requireRole(e, contest.RoleAdmin); err != nil {
					return err
				}
				sub, err := e.svc.Assign(args[0], judgeID)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Submission %s assigned to %s\n", sub.ID, sub.AssignedJudgeID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&judgeID, "judge", "", "Judge id from 'contest judges'")
	return cmd
}

func newRateCommand(app *App) *cobra.Command {
	var (
		rating   float64
		feedback string
	)
	cmd := &cobra.Command{
		Use:   "rate <submission-id>",
		Short: "Rate an assigned submission (judge)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				if err := requireRole(e, contest.RoleJudge); err != nil {
					return err
				}
				sub, err := e.svc.Rate(args[0], rating, feedback)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Your review of %s has been submitted! (%s/10)\n", sub.ID, formatRating(sub.Rating))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&rating, "rating", 0, "Score from 0 to 10")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Written feedback")
	return cmd
}

func newJudgesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "judges",
		Short: "List the judge roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, j := range e.repo.Judges() {
					fmt.Fprintf(tw, "%s\t%s\n", j.ID, j.Name)
				}
				return tw.Flush()
			})
		},
	}
}

func newMetricsCommand(app *App) *cobra.Command {
	var textfile string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print store metrics in the Prometheus text format",
		Long: `Print store metrics in the Prometheus text format.

The submissions gauge, the session gauge and the read fallback counter
describe the stored state. Every command runs in its own process, so the
other counters only count what this invocation did and read zero here.
They carry information when the store is embedded in a long-running program.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, e env) error {
				refresh := func() {
					counts := make(map[string]int)
					for st, n := range e.repo.StatusCounts() {
						counts[string(st)] = n
					}
					app.Metrics.SetSubmissionsByStatus(counts)
					app.Metrics.SetSessionActive(e.repo.Session().Active())
				}
				if textfile != "" {
					return app.Metrics.WriteTextfile(textfile, refresh)
				}
				return app.Metrics.WriteText(app.Out, refresh)
			})
		},
	}
	cmd.Flags().StringVar(&textfile, "textfile", "", "Write to this file for the node exporter textfile collector instead of stdout")
	return cmd
}

func requireRole(e env, role contest.Role) error {
	sess := e.repo.Session()
	if !sess.Active() {
		return ErrNoSession
	}
	if sess.Role != role {
		return fmt.Errorf("this command requires the %s role, signed in as %s", role, sess.Role)
	}
	return nil
}

func onlyStatus(subs []contest.Submission, st contest.Status) []contest.Submission {
	out := make([]contest.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status == st {
			out = append(out, s)
		}
	}
	return out
}

func writeSubmissions(w io.Writer, subs []contest.Submission) error {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No submissions")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tSUBMITTED\tSTATUS\tJUDGE\tRATING")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Title, s.ArtistName,
			s.SubmittedAt.Format(time.DateOnly),
			s.Status, dash(s.AssignedJudgeID), formatRating(s.Rating))
	}
	return tw.Flush()
}

func formatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
