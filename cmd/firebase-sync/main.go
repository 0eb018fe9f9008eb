package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"fastpay-backend/internal/config"
	"fastpay-backend/internal/firebase"
	"fastpay-backend/internal/repository"
	"fastpay-backend/internal/sync"

	_ "github.com/lib/pq"

	"go.uber.org/zap"
)

// firebase-sync runs sync passes from the command line: a plain pass over
// the registered commands, a full copy with device discovery, or a listing
// of the device ids present in Firebase.
func main() {
	var (
		deviceID    = flag.String("device-id", "", "sync only this device")
		listDevices = flag.Bool("devices", false, "list device ids found in Firebase and exit")
		doCopy      = flag.Bool("copy", false, "run a full copy pass with device discovery")
		prod        = flag.Bool("prod", false, "force the production Firebase tree")
		stage       = flag.Bool("stage", false, "force the staging Firebase tree")
		limit       = flag.Int("limit", 0, "message fetch limit (0 uses the configured default)")
		dryRun      = flag.Bool("dry-run", false, "report what would change without writing")
		noClean     = flag.Bool("no-clean", false, "skip Firebase-side cleanup")
	)
	flag.Parse()

	if err := run(*deviceID, *listDevices, *doCopy, *prod, *stage, *limit, *dryRun, *noClean); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// validateFlags rejects flag combinations outside the copy path; -limit
// and -dry-run only apply to a copy pass.
func validateFlags(doCopy bool, limit int, dryRun bool) error {
	if !doCopy && dryRun {
		return fmt.Errorf("-dry-run requires -copy")
	}
	if !doCopy && limit > 0 {
		return fmt.Errorf("-limit requires -copy")
	}
	return nil
}

func run(deviceID string, listDevices, doCopy, prod, stage bool, limit int, dryRun, noClean bool) error {
	if err := validateFlags(doCopy, limit, dryRun); err != nil {
		return err
	}

	cfg := config.Load()
	if prod {
		cfg.Firebase.Env = firebase.EnvProduction
	}
	if stage {
		cfg.Firebase.Env = firebase.EnvStaging
	}
	if limit <= 0 {
		limit = cfg.Sync.MessageLimit
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	fb := firebase.NewClient(cfg.Firebase.DatabaseURL, cfg.Firebase.AuthToken, cfg.Firebase.Env, logger)
	ctx := context.Background()

	if listDevices {
		ids, err := fb.ListDeviceIDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		fmt.Printf("%d devices\n", len(ids))
		return nil
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	devicesRepo := repository.NewPostgresDevicesRepo(db, logger)
	messagesRepo := repository.NewPostgresMessagesRepo(db)
	notificationsRepo := repository.NewPostgresNotificationsRepo(db)
	contactsRepo := repository.NewPostgresContactsRepo(db)
	syncLogsRepo := repository.NewPostgresSyncLogsRepo(db)

	var ids []string
	if deviceID != "" {
		ids = []string{deviceID}
	}

	if doCopy {
		copier := sync.NewCopier(fb, devicesRepo, messagesRepo, notificationsRepo, contactsRepo, syncLogsRepo, logger)
		summary, err := copier.Run(ctx, ids, sync.CopierConfig{
			MessageLimit: limit,
			DryRun:       dryRun,
		})
		if err != nil {
			return err
		}
		printSummary(summary)
		if summary.DevicesFailed > 0 {
			return fmt.Errorf("%d devices failed", summary.DevicesFailed)
		}
		return nil
	}

	registry := sync.NewRegistry()
	registry.Register(sync.NewMessagesCommand(fb, messagesRepo, devicesRepo, logger))
	registry.Register(sync.NewNotificationsCommand(fb, notificationsRepo, devicesRepo, logger))
	registry.Register(sync.NewContactsCommand(fb, contactsRepo, devicesRepo, logger))
	runner := sync.NewRunner(registry, devicesRepo, syncLogsRepo, logger)

	opts := map[string]sync.Options{
		"messages":      {KeepLatest: cfg.Sync.KeepMessages, NoClean: noClean},
		"notifications": {KeepLatest: cfg.Sync.KeepNotifications, NoClean: noClean},
		"contacts":      {KeepLatest: cfg.Sync.KeepContacts, NoClean: noClean},
	}
	summary, err := runner.RunAll(ctx, ids, opts)
	if err != nil {
		return err
	}
	printSummary(summary)
	if summary.DevicesFailed > 0 {
		return fmt.Errorf("%d devices failed", summary.DevicesFailed)
	}
	return nil
}

func printSummary(s *sync.Summary) {
	fmt.Printf("devices: %d total, %d synced, %d failed\n",
		s.TotalDevices, s.DevicesSynced, s.DevicesFailed)
	for name, t := range s.Totals {
		fmt.Printf("  %-14s created=%d updated=%d skipped=%d cleaned=%d\n",
			name, t.Created, t.Updated, t.Skipped, t.Cleaned)
	}
	for _, e := range s.Errors {
		fmt.Println("  error:", e)
	}
	fmt.Printf("took %s\n", s.FinishedAt.Sub(s.StartedAt))
}
