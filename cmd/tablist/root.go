package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rflorenc/tablist/internal/config"
	"github.com/rflorenc/tablist/internal/credentials"
	"github.com/rflorenc/tablist/internal/lister"
	"github.com/rflorenc/tablist/internal/models"
	"github.com/rflorenc/tablist/internal/platform"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, prompter credentials.Prompter, stdout, stderr io.Writer) int {
	cmd := newRootCommand(prompter)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var usage *config.UsageError
	if errors.As(err, &usage) {
		fmt.Fprint(stderr, cmd.UsageString())
		return exitUsage
	}
	return exitError
}

func newRootCommand(prompter credentials.Prompter) *cobra.Command {
	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:   "tablist [flags] {workbook|datasource|project|view|job|task}",
		Short: "List out the names and LUIDs for different resource types",
		Long: `List out the names and LUIDs for different resource types on a
Tableau Server or Tableau Cloud site.

Generic resources print "<id> <name>" per item, walking every page.
Tasks print "<id> <task_type> <target_name>" for the first page of tasks.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		ValidArgs:     models.KindNames(),
		Args:          resourceTypeArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Finalize(args); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, prompter, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cfg.BindFlags(cmd.Flags())
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.UsageError{Msg: err.Error()}
	})
	return cmd
}

func resourceTypeArgs(_ *cobra.Command, args []string) error {
	_, err := config.ParseResourceType(args)
	return err
}

// run resolves the password, signs in, lists and always signs out again.
func run(ctx context.Context, cfg *config.Config, prompter credentials.Prompter, stdout, stderr io.Writer) (err error) {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LoggingLevel.Level()}))

	conn, err := cfg.Connection()
	if err != nil {
		return err
	}
	conn.Password, err = credentials.Resolve(cfg.SuppliedPassword(), prompter)
	if err != nil {
		if errors.Is(err, credentials.ErrNoTerminal) {
			return &config.UsageError{Arg: "--password", Msg: err.Error()}
		}
		return err
	}
	logger.Debug("connecting", "server", conn.BaseURL(), "site", conn.Site,
		"user", conn.Username, "password", conn.MaskedPassword())

	client := platform.NewClient(conn, platform.Options{PageSize: cfg.PageSize, Logger: logger})
	if conn.APIVersion == "" {
		if err := client.UseServerVersion(ctx); err != nil {
			return err
		}
	}

	session, err := platform.SignIn(ctx, client, platform.Credentials{
		Site:     conn.Site,
		Username: conn.Username,
		Password: conn.Password,
	})
	if err != nil {
		return err
	}
	logger.Debug("session opened", "site_id", session.SiteID(), "user_id", session.UserID())
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			logger.Error("sign-out failed", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	l := &lister.Lister{
		Source:    session,
		Out:       stdout,
		Logger:    logger,
		KeepGoing: cfg.KeepGoing,
	}
	return l.List(ctx, cfg.Kind)
}
