package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"intan/internal/config"
	"intan/internal/logging"
	"intan/internal/repository"
	"intan/internal/service"
	"intan/internal/storage"
)

// openStore is replaced in tests
var openStore = storage.Open

// app carries the services every subcommand works against
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	store    storage.Storage
	repo     *repository.ProgressRepository
	progress *service.ProgressService
	backup   *service.BackupService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "intanctl",
		Short:         "Manage intan learner profiles and progress",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().String("env-file", config.DefaultEnvFile, "Env file to read configuration from")
	root.PersistentFlags().String("storage", "", "Override STORAGE_TYPE (memory, sqlite, postgres, mysql, redis)")
	root.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")

	root.AddCommand(
		newExportCmd(a),
		newImportCmd(a),
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRecordCmd(a),
		newShowCmd(a),
	)

	return root
}

func (a *app) open(cmd *cobra.Command) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if v, _ := flags.GetString("storage"); v != "" {
		cfg.StorageType = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}

	a.cfg = cfg
	a.logger = logging.NewWithOutput(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.store = store

	email, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	a.repo = repository.NewProgressRepository(store)
	a.progress = service.NewProgressService(a.repo, email, a.logger)
	a.backup = service.NewBackupService(a.repo, cfg.StorageType, a.logger)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// session restores the persisted current-user session
func (a *app) session(ctx context.Context) (*service.Session, error) {
	sess, err := a.progress.RestoreSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return sess, nil
}
