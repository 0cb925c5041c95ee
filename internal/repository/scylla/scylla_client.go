package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"citizen-auth/internal/config"
	"citizen-auth/internal/util"
)

const accountColumns = `user_bucket, account_id, email, fin, fin_encrypted, phone,
    phone_encrypted, pii_key_id, full_name, date_of_birth, gender, photo_ref,
    role, email_verified, password_hash, failed_attempts, locked_until,
    created_at, last_login, updated_at`

// PreparedStatements holds the statements the account repository uses.
type PreparedStatements struct {
	InsertAccount     *gocql.Query
	InsertPhoneLookup *gocql.Query
	GetAccountByID    *gocql.Query
	GetFINLookup      *gocql.Query
	GetEmailLookup    *gocql.Query
	GetPhoneLookup    *gocql.Query
	UpdateKYCProfile  *gocql.Query
	SetPassword       *gocql.Query
	ResetLockout      *gocql.Query
	UpdateLastLogin   *gocql.Query
	UpdateRole        *gocql.Query
	MarkEmailVerified *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.Mutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.InsertAccount = s.Session.Query(`
        INSERT INTO accounts (` + accountColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.InsertPhoneLookup = s.Session.Query(`
        INSERT INTO phone_to_account (phone, user_bucket, account_id, created_at)
        VALUES (?, ?, ?, ?)`)

	prepared.GetAccountByID = s.Session.Query(`
        SELECT ` + accountColumns + `
        FROM accounts WHERE user_bucket = ? AND account_id = ?`)

	prepared.GetFINLookup = s.Session.Query(`
        SELECT user_bucket, account_id FROM fin_to_account WHERE fin = ?`)

	prepared.GetEmailLookup = s.Session.Query(`
        SELECT user_bucket, account_id FROM email_to_account WHERE email = ?`)

	prepared.GetPhoneLookup = s.Session.Query(`
        SELECT user_bucket, account_id FROM phone_to_account WHERE phone = ?`)

	prepared.UpdateKYCProfile = s.Session.Query(`
        UPDATE accounts SET full_name = ?, phone = ?, phone_encrypted = ?,
            date_of_birth = ?, gender = ?, photo_ref = ?, pii_key_id = ?, updated_at = ?
        WHERE user_bucket = ? AND account_id = ?`)

	prepared.SetPassword = s.Session.Query(`
        UPDATE accounts SET password_hash = ?, updated_at = ?
        WHERE user_bucket = ? AND account_id = ?`)

	prepared.ResetLockout = s.Session.Query(`
        UPDATE accounts SET failed_attempts = 0, locked_until = null, updated_at = ?
        WHERE user_bucket = ? AND account_id = ?`)

	prepared.UpdateLastLogin = s.Session.Query(`
        UPDATE accounts SET last_login = ? WHERE user_bucket = ? AND account_id = ?`)

	prepared.UpdateRole = s.Session.Query(`
        UPDATE accounts SET role = ?, updated_at = ?
        WHERE user_bucket = ? AND account_id = ?`)

	prepared.MarkEmailVerified = s.Session.Query(`
        UPDATE accounts SET email_verified = true, updated_at = ?
        WHERE user_bucket = ? AND account_id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

// ScanWithRetry retries transient read failures a few times before giving up.
func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if err == gocql.ErrNotFound {
				return err
			}
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
