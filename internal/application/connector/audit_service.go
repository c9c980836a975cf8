package connector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
)

// appendTimeout bounds one audit write so a stuck database cannot pile up
// goroutines indefinitely.
const appendTimeout = 5 * time.Second

// AuditService records security-relevant actions. Writes are asynchronous
// and never surface an error to the caller: a failing audit store must not
// take the control plane down with it.
type AuditService struct {
	repo   connector.AuditRepository
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewAuditService creates the audit service
func NewAuditService(repo connector.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record appends an audit entry in the background. Metadata must carry
// identifiers and status enums only, never credential or token material.
func (s *AuditService) Record(tenantID uuid.UUID, performedBy *uuid.UUID, action connector.ActionType, metadata map[string]string) {
	entry := connector.NewAuditEntry(tenantID, performedBy, action, metadata)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()

		if err := s.repo.Append(ctx, entry); err != nil {
			s.logger.Error("Failed to append audit entry",
				zap.String("tenant_id", tenantID.String()),
				zap.String("action", string(action)),
				zap.Error(err),
			)
		}
	}()
}

// Flush waits for pending audit writes; used on shutdown and in tests
func (s *AuditService) Flush() {
	s.wg.Wait()
}

// List returns the caller's tenant audit trail, newest first
func (s *AuditService) List(ctx context.Context, principal identity.Principal, limit, offset int) ([]*AuditEntryResult, int64, error) {
	if principal.IsSystem {
		return nil, 0, shared.ErrForbidden
	}

	entries, total, err := s.repo.FindForTenant(ctx, principal.TenantID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to query audit trail", zap.Error(err))
		return nil, 0, shared.ErrInternal
	}

	results := make([]*AuditEntryResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, toAuditEntryResult(entry))
	}
	return results, total, nil
}
