package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/scraper"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in interactively and save the session artifact",
		Long: `Login opens a visible browser on the sign-in page. Sign in by hand
(including any second factor), then press Enter in this terminal. The
browser's cookies are written to ORGSCOPE_SESSION_FILE for later runs.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
	cmd.Flags().StringP("out", "o", "", "Artifact path (overrides ORGSCOPE_SESSION_FILE)")
	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	path := cfg.Session.File
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		path = out
	}

	sess, err := scraper.CaptureSession(cmd.Context(), cfg.Browser, scraper.LoginOptions{
		LoginURL: cfg.Session.LoginURL,
		Domain:   cfg.Session.Domain,
		Path:     path,
		Wait:     waitForEnter(cmd.InOrStdin(), cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session saved to %s (%d %s cookies)\n",
		path, len(sess.DomainCookieNames()), sess.Domain())
	return nil
}

// waitForEnter prompts on w and returns once a line is read from r or ctx
// is done.
func waitForEnter(r io.Reader, w io.Writer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		fmt.Fprintln(w, "Sign in inside the browser window, then press Enter here.")

		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(r).ReadString('\n')
			if err == io.EOF {
				err = nil
			}
			done <- err
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
