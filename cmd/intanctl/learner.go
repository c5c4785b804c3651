package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"intan/internal/models"
	"intan/internal/service"
)

func newRegisterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a learner profile and make it the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			var in service.RegisterInput
			in.Name, _ = flags.GetString("name")
			in.Email, _ = flags.GetString("email")
			in.Age, _ = flags.GetInt("age")
			in.Grade, _ = flags.GetInt("grade")

			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			profile, err := a.progress.Register(ctx, sess, in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", profile.Name, profile.ID)
			return nil
		},
	}

	cmd.Flags().String("name", "", "Learner name")
	cmd.Flags().String("email", "", "Contact email (optional)")
	cmd.Flags().Int("age", 0, "Learner age")
	cmd.Flags().Int("grade", 0, "School grade")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Make an existing learner the current user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			profile, err := a.repo.GetProfile(ctx, args[0])
			if err != nil {
				return err
			}
			if profile == nil {
				return fmt.Errorf("%w: %s", service.ErrProfileNotFound, args[0])
			}

			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := a.progress.Login(ctx, sess, profile.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", profile.Name)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := a.progress.Logout(ctx, sess); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the current user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			profile, err := a.progress.GetProfile(ctx, sess, "")
			if err != nil {
				return err
			}

			printProfile(cmd.OutOrStdout(), profile)
			return nil
		},
	}
}

func newRecordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <step> <score>",
		Short: "Record a step result for the current user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			step, err := models.ParseStepID(args[0])
			if err != nil {
				return err
			}
			score, err := strconv.Atoi(args[1])
			if err != nil || score < 0 || score > models.MaxStepScore {
				return fmt.Errorf("score must be a whole number from 0 to %d", models.MaxStepScore)
			}
			completed, _ := cmd.Flags().GetBool("completed")

			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			progress, err := a.progress.UpdateStepProgress(ctx, sess, step, score, completed)
			if err != nil {
				return err
			}

			printProgress(cmd.OutOrStdout(), progress)
			return nil
		},
	}

	cmd.Flags().Bool("completed", false, "Mark the step as completed")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [user-id]",
		Short: "Print learning progress for the current or given user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID := ""
			if len(args) == 1 {
				userID = args[0]
			}

			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			progress, err := a.progress.GetProgress(ctx, sess, userID)
			if errors.Is(err, service.ErrNoCurrentUser) {
				return fmt.Errorf("%w; pass a user id or run login first", err)
			}
			if err != nil {
				return err
			}

			printProgress(cmd.OutOrStdout(), progress)
			return nil
		},
	}
}

func printProfile(w io.Writer, p *models.UserProfile) {
	fmt.Fprintf(w, "ID:      %s\n", p.ID)
	fmt.Fprintf(w, "Name:    %s\n", p.Name)
	if p.HasEmail() {
		fmt.Fprintf(w, "Email:   %s\n", p.Email)
	}
	if p.Age > 0 {
		fmt.Fprintf(w, "Age:     %d\n", p.Age)
	}
	if p.Grade > 0 {
		fmt.Fprintf(w, "Grade:   %d\n", p.Grade)
	}
	fmt.Fprintf(w, "Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04"))
}

func printProgress(w io.Writer, p *models.LearningProgress) {
	for _, id := range models.Steps {
		step, _ := p.Step(id)
		status := "pending"
		if step.Completed {
			status = "completed"
		}
		fmt.Fprintf(w, "%s: %-9s score=%d best=%d attempts=%d\n", id, status, step.Score, step.BestScore, step.Attempts)
	}

	summary := p.Summary()
	fmt.Fprintf(w, "Total: %d / %d (%d of %d steps, %.0f%%)\n",
		summary.TotalScore, summary.MaxScore, summary.CompletedSteps, summary.TotalSteps, summary.PercentComplete)
	if len(p.Achievements) > 0 {
		fmt.Fprint(w, "Achievements:")
		for _, a := range p.Achievements {
			fmt.Fprintf(w, " %s", a)
		}
		fmt.Fprintln(w)
	}
}
