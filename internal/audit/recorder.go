package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/models"
	"citizen-auth/internal/util"
)

const insertLoginAudit = `
    INSERT INTO login_audit
        (account_id, identifier_kind, outcome, remaining_attempts, ip_address, user_agent, attempt_time)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

// Recorder writes login attempts to the ClickHouse analytics table. Like the
// event publisher it is best-effort and nil-safe.
type Recorder struct {
	ch     *client.ClickHouseClient
	logger *zap.Logger
}

func NewRecorder(ch *client.ClickHouseClient, logger *zap.Logger) *Recorder {
	return &Recorder{
		ch:     ch,
		logger: logger,
	}
}

// RecordLogin queues one audit row via async insert so the login path does not
// block on ClickHouse batching.
func (r *Recorder) RecordLogin(ctx context.Context, entry *models.LoginAudit) {
	if r == nil || r.ch == nil {
		return
	}

	if entry.AttemptTime.IsZero() {
		entry.AttemptTime = time.Now().UTC()
	}

	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := r.ch.AsyncInsert(insertCtx, insertLoginAudit,
		entry.AccountID, entry.IdentifierKind, entry.Outcome,
		entry.RemainingAttempts, entry.IPAddress, entry.UserAgent,
		entry.AttemptTime)
	if err != nil {
		util.Warn("Failed to record login audit row",
			zap.String("outcome", entry.Outcome),
			zap.Error(err))
	}
}
