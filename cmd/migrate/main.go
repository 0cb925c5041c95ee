package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"citizen-auth/internal/bucketing"
	"citizen-auth/internal/config"
	"citizen-auth/internal/models"
	"citizen-auth/internal/phone"
	"citizen-auth/internal/repository/scylla"
	"citizen-auth/internal/util"
)

// legacyUser is one row of the legacy Postgres users table.
type legacyUser struct {
	Email        string
	FIN          string
	Phone        string
	FullName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

const legacyQuery = `
    SELECT email, COALESCE(fin, ''), COALESCE(phone, ''), COALESCE(full_name, ''),
           password_hash, COALESCE(role, 'citizen'), created_at
    FROM users
    ORDER BY created_at`

func main() {
	var (
		legacyDSN = flag.String("legacy-dsn", os.Getenv("LEGACY_DATABASE_URL"), "Postgres connection string of the legacy system")
		workers   = flag.Int("workers", 8, "number of concurrent writers")
		dryRun    = flag.Bool("dry-run", false, "read and validate without writing")
	)
	flag.Parse()

	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	if *legacyDSN == "" {
		util.Fatal("legacy DSN is required (--legacy-dsn or LEGACY_DATABASE_URL)")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, *legacyDSN)
	if err != nil {
		util.Fatal("Failed to connect to legacy Postgres", util.ErrorField(err))
	}
	defer pool.Close()

	scyllaClient, err := scylla.NewScyllaClient(cfg, util.Get())
	if err != nil {
		util.Fatal("Failed to connect to ScyllaDB", util.ErrorField(err))
	}
	defer scyllaClient.Close()

	repo := scylla.NewAccountRepository(scyllaClient, bucketing.NewBucketingManager(cfg), util.Get())

	start := time.Now()
	migrated, skipped, failed, err := migrate(ctx, pool, repo, *workers, *dryRun)
	if err != nil {
		util.Fatal("Migration aborted", util.ErrorField(err))
	}

	util.Info("Migration finished",
		util.Int("migrated", int(migrated)),
		util.Int("skipped_duplicates", int(skipped)),
		util.Int("failed", int(failed)),
		util.Duration("duration", time.Since(start)),
		util.Bool("dry_run", *dryRun),
	)
}

// migrate streams legacy rows through a worker pool. Duplicate emails and FINs
// are counted and skipped; the first row wins, matching the legacy system's
// uniqueness guarantees.
func migrate(ctx context.Context, pool *pgxpool.Pool, repo scylla.AccountRepository, workers int, dryRun bool) (migrated, skipped, failed int64, err error) {
	rows := make(chan legacyUser, workers*4)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(rows)

		pgRows, err := pool.Query(groupCtx, legacyQuery)
		if err != nil {
			return err
		}
		defer pgRows.Close()

		for pgRows.Next() {
			var user legacyUser
			if err := pgRows.Scan(&user.Email, &user.FIN, &user.Phone, &user.FullName,
				&user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
				return err
			}
			select {
			case rows <- user:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return pgRows.Err()
	})

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for user := range rows {
				if err := migrateOne(groupCtx, repo, user, dryRun); err != nil {
					if errors.Is(err, scylla.ErrDuplicateEmail) || errors.Is(err, scylla.ErrDuplicateFIN) {
						atomic.AddInt64(&skipped, 1)
						util.Warn("Skipping duplicate account",
							util.String("email", user.Email))
						continue
					}
					atomic.AddInt64(&failed, 1)
					util.Error("Failed to migrate account",
						util.String("email", user.Email),
						util.ErrorField(err))
					continue
				}
				atomic.AddInt64(&migrated, 1)
			}
			return nil
		})
	}

	err = group.Wait()
	return migrated, skipped, failed, err
}

func migrateOne(ctx context.Context, repo scylla.AccountRepository, user legacyUser, dryRun bool) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return errors.New("empty email")
	}

	role := user.Role
	switch role {
	case models.RoleCitizen, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		role = models.RoleCitizen
	}

	canonicalPhone := ""
	var representations []string
	if user.Phone != "" {
		canonicalPhone = phone.Canonical(user.Phone)
		representations = phone.Variants(canonicalPhone)
	}

	account := &models.Account{
		Email:        email,
		FIN:          phone.Normalize(user.FIN),
		Phone:        canonicalPhone,
		FullName:     strings.TrimSpace(user.FullName),
		Role:         role,
		PasswordHash: user.PasswordHash,
	}

	if dryRun {
		if exists, err := repo.EmailExists(ctx, email); err != nil {
			return err
		} else if exists {
			return scylla.ErrDuplicateEmail
		}
		return nil
	}

	return repo.CreateAccount(ctx, account, representations)
}
