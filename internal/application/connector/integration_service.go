package connector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/vault"
)

// IntegrationService manages a tenant's ERP integrations: connecting,
// testing, disabling, and the per-entity sync configuration seeded on
// connect.
type IntegrationService struct {
	integrations connector.IntegrationRepository
	entities     connector.EntityRepository
	registry     connector.Registry
	builder      *connectionBuilder
	vault        *vault.Vault
	audit        *AuditService
	logger       *zap.Logger
	now          func() time.Time
}

// NewIntegrationService creates the integration service
func NewIntegrationService(
	integrations connector.IntegrationRepository,
	entities connector.EntityRepository,
	registry connector.Registry,
	v *vault.Vault,
	audit *AuditService,
	logger *zap.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrations: integrations,
		entities:     entities,
		registry:     registry,
		builder:      &connectionBuilder{vault: v},
		vault:        v,
		audit:        audit,
		logger:       logger,
		now:          time.Now,
	}
}

// Connect links the caller's tenant to an ERP system. The connection is
// probed before anything is activated; credentials are encrypted before the
// row is written either way. Reconnecting an existing (tenant, system) pair
// replaces its stored credentials instead of creating a duplicate.
func (s *IntegrationService) Connect(ctx context.Context, principal identity.Principal, input ConnectInput) (*IntegrationResult, error) {
	integration, err := s.integrations.FindByTenantAndSystem(ctx, principal.TenantID, input.System)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Integration lookup failed", zap.Error(err))
			return nil, shared.ErrInternal
		}
		integration, err = connector.NewIntegration(principal.TenantID, input.System, input.Name, input.APIEndpoint, input.IsSandbox)
		if err != nil {
			return nil, err
		}
	} else {
		integration.Name = input.Name
		integration.APIEndpoint = input.APIEndpoint
		integration.IsSandbox = input.IsSandbox
		integration.IsActive = true
	}

	if err := s.storeSecrets(integration, input); err != nil {
		s.logger.Error("Failed to encrypt integration secrets", zap.Error(err))
		return nil, shared.ErrInternal
	}

	probe, probeErr := s.probe(ctx, integration)
	now := s.now()
	if probeErr != nil {
		integration.MarkTestFailed(now)
		if err := s.integrations.Save(ctx, integration); err != nil {
			s.logger.Error("Failed to persist integration after failed test", zap.Error(err))
		}
		s.audit.Record(principal.TenantID, principal.UserID, connector.ActionIntegrationTestFailed, map[string]string{
			"integration_id": integration.ID.String(),
			"system":         integration.System.String(),
		})
		return nil, probeErr
	}

	integration.MarkConnected(now)
	if err := s.integrations.Save(ctx, integration); err != nil {
		s.logger.Error("Failed to persist integration", zap.Error(err))
		return nil, shared.ErrInternal
	}

	if err := s.seedEntities(ctx, integration, probe.EntityMap); err != nil {
		s.logger.Error("Failed to seed sync entities",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
	}

	s.audit.Record(principal.TenantID, principal.UserID, connector.ActionIntegrationConnected, map[string]string{
		"integration_id": integration.ID.String(),
		"system":         integration.System.String(),
	})

	return toIntegrationResult(integration), nil
}

// Test re-probes an existing integration and updates its connection status
func (s *IntegrationService) Test(ctx context.Context, principal identity.Principal, integrationID uuid.UUID) (*IntegrationResult, error) {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return nil, err
	}

	_, probeErr := s.probe(ctx, integration)
	now := s.now()
	if probeErr != nil {
		integration.MarkTestFailed(now)
		if err := s.integrations.Save(ctx, integration); err != nil {
			s.logger.Error("Failed to persist test result", zap.Error(err))
		}
		s.audit.Record(integration.TenantID, principal.UserID, connector.ActionIntegrationTestFailed, map[string]string{
			"integration_id": integration.ID.String(),
			"system":         integration.System.String(),
		})
		return nil, probeErr
	}

	integration.MarkConnected(now)
	if err := s.integrations.Save(ctx, integration); err != nil {
		s.logger.Error("Failed to persist test result", zap.Error(err))
		return nil, shared.ErrInternal
	}
	return toIntegrationResult(integration), nil
}

// List returns the caller's tenant integrations
func (s *IntegrationService) List(ctx context.Context, principal identity.Principal) ([]*IntegrationResult, error) {
	integrations, err := s.integrations.FindAllForTenant(ctx, principal.TenantID)
	if err != nil {
		s.logger.Error("Failed to list integrations", zap.Error(err))
		return nil, shared.ErrInternal
	}

	results := make([]*IntegrationResult, 0, len(integrations))
	for _, integration := range integrations {
		results = append(results, toIntegrationResult(integration))
	}
	return results, nil
}

// Get returns one integration owned by the caller's tenant
func (s *IntegrationService) Get(ctx context.Context, principal identity.Principal, integrationID uuid.UUID) (*IntegrationResult, error) {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return nil, err
	}
	return toIntegrationResult(integration), nil
}

// Disable soft-disables an integration. Credentials stay encrypted at rest
// and history is preserved; only new sync activity stops.
func (s *IntegrationService) Disable(ctx context.Context, principal identity.Principal, integrationID uuid.UUID) error {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return err
	}

	integration.Disable(s.now())
	if err := s.integrations.Save(ctx, integration); err != nil {
		s.logger.Error("Failed to disable integration", zap.Error(err))
		return shared.ErrInternal
	}

	s.audit.Record(integration.TenantID, principal.UserID, connector.ActionIntegrationDisabled, map[string]string{
		"integration_id": integration.ID.String(),
		"system":         integration.System.String(),
	})
	return nil
}

// ListEntities returns the sync entities of an integration
func (s *IntegrationService) ListEntities(ctx context.Context, principal identity.Principal, integrationID uuid.UUID) ([]*EntityResult, error) {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return nil, err
	}

	entities, err := s.entities.FindEntities(ctx, integration.ID)
	if err != nil {
		s.logger.Error("Failed to list sync entities", zap.Error(err))
		return nil, shared.ErrInternal
	}

	results := make([]*EntityResult, 0, len(entities))
	for _, entity := range entities {
		results = append(results, toEntityResult(entity))
	}
	return results, nil
}

// SetEntityEnabled toggles one entity type of an integration
func (s *IntegrationService) SetEntityEnabled(ctx context.Context, principal identity.Principal, integrationID uuid.UUID, entityType connector.EntityType, enabled bool) (*EntityResult, error) {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return nil, err
	}

	entity, err := s.entities.FindEntity(ctx, integration.ID, entityType)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	entity.IsEnabled = enabled
	entity.UpdatedAt = s.now()
	if err := s.entities.SaveEntity(ctx, entity); err != nil {
		s.logger.Error("Failed to save sync entity", zap.Error(err))
		return nil, shared.ErrInternal
	}
	return toEntityResult(entity), nil
}

// ListMappings returns the field mappings of one entity type
func (s *IntegrationService) ListMappings(ctx context.Context, principal identity.Principal, integrationID uuid.UUID, entityType connector.EntityType) ([]*MappingResult, error) {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return nil, err
	}

	entity, err := s.entities.FindEntity(ctx, integration.ID, entityType)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	mappings, err := s.entities.FindMappings(ctx, entity.ID)
	if err != nil {
		s.logger.Error("Failed to list field mappings", zap.Error(err))
		return nil, shared.ErrInternal
	}

	results := make([]*MappingResult, 0, len(mappings))
	for _, mapping := range mappings {
		results = append(results, toMappingResult(mapping))
	}
	return results, nil
}

// ReplaceMappings replaces the field mappings of one entity type. The new
// set fully supersedes the old one; the swap is atomic, so a failure leaves
// the previous mappings in place.
func (s *IntegrationService) ReplaceMappings(ctx context.Context, principal identity.Principal, integrationID uuid.UUID, entityType connector.EntityType, inputs []MappingInput) ([]*MappingResult, error) {
	integration, err := s.loadOwned(ctx, principal, integrationID)
	if err != nil {
		return nil, err
	}

	entity, err := s.entities.FindEntity(ctx, integration.ID, entityType)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	mappings := make([]*connector.FieldMapping, 0, len(inputs))
	for _, input := range inputs {
		if input.LocalField == "" || input.ERPField == "" {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Mapping fields must not be empty")
		}
		mappings = append(mappings, connector.NewFieldMapping(integration.TenantID, entity.ID, input.LocalField, input.ERPField, input.IsCustom))
	}

	if err := s.entities.ReplaceMappings(ctx, entity.ID, mappings); err != nil {
		s.logger.Error("Failed to replace field mappings", zap.Error(err))
		return nil, shared.ErrInternal
	}

	results := make([]*MappingResult, 0, len(mappings))
	for _, mapping := range mappings {
		results = append(results, toMappingResult(mapping))
	}
	return results, nil
}

// loadOwned resolves an integration and applies the cross-tenant guard.
// A tenant mismatch is Forbidden regardless of object linkage, and the
// denial is audited under the caller's tenant.
func (s *IntegrationService) loadOwned(ctx context.Context, principal identity.Principal, id uuid.UUID) (*connector.Integration, error) {
	integration, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	if !principal.ActsFor(integration.TenantID) {
		s.logger.Warn("Cross-tenant integration access denied",
			zap.String("tenant_id", principal.TenantID.String()),
			zap.String("integration_id", id.String()),
		)
		s.audit.Record(principal.TenantID, principal.UserID, connector.ActionAccessDenied, map[string]string{
			"integration_id": id.String(),
		})
		return nil, shared.ErrForbidden
	}
	return integration, nil
}

func (s *IntegrationService) storeSecrets(integration *connector.Integration, input ConnectInput) error {
	encrypted, err := encryptCredentials(s.vault, input.Credentials)
	if err != nil {
		return err
	}
	integration.EncryptedCredentials = encrypted

	integration.OAuthClientID = input.OAuthClientID
	integration.OAuthTokenURL = input.OAuthTokenURL
	integration.OAuthScopes = input.OAuthScopes

	if input.OAuthClientSecret != "" {
		secret, err := s.vault.Encrypt(input.OAuthClientSecret)
		if err != nil {
			return err
		}
		integration.EncryptedClientSecret = secret
	}

	if input.AccessToken != "" {
		access, err := s.vault.Encrypt(input.AccessToken)
		if err != nil {
			return err
		}
		refresh, err := s.vault.Encrypt(input.RefreshToken)
		if err != nil {
			return err
		}
		expiresAt := s.now()
		if input.TokenExpiresAt != nil {
			expiresAt = *input.TokenExpiresAt
		}
		integration.SetTokens(access, refresh, expiresAt, s.now())
	}
	return nil
}

// probe runs the adapter connection test. The upstream detail is logged here
// and never crosses the boundary; callers see the sanitized taxonomy error.
func (s *IntegrationService) probe(ctx context.Context, integration *connector.Integration) (*connector.ProbeResult, error) {
	adapter, err := s.registry.Adapter(integration.System)
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unsupported ERP system")
	}

	conn, err := s.builder.build(integration)
	if err != nil {
		s.logger.Error("Failed to assemble connection",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
		return nil, shared.ErrInternal
	}

	probe, err := adapter.TestConnection(ctx, conn)
	if err != nil {
		s.logger.Warn("Connection test failed",
			zap.String("integration_id", integration.ID.String()),
			zap.String("system", integration.System.String()),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, connector.ErrProbeTimeout):
			return nil, shared.ErrUpstreamTimeout
		case errors.Is(err, connector.ErrInvalidCredentials):
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Connection credentials are incomplete")
		default:
			return nil, shared.ErrUpstreamRejected
		}
	}
	return probe, nil
}

// seedEntities creates the sync entities and default field mappings for a
// freshly connected integration. Entities that already exist from an earlier
// connect are left untouched.
func (s *IntegrationService) seedEntities(ctx context.Context, integration *connector.Integration, entityMap map[connector.EntityType]string) error {
	for _, entityType := range connector.AllEntityTypes() {
		resource, ok := entityMap[entityType]
		if !ok {
			continue
		}

		if _, err := s.entities.FindEntity(ctx, integration.ID, entityType); err == nil {
			continue
		}

		entity := connector.NewSyncEntity(integration.TenantID, integration.ID, entityType, resource)
		if err := s.entities.SaveEntity(ctx, entity); err != nil {
			return err
		}

		for _, localField := range connector.DefaultFieldMappings[entityType] {
			mapping := connector.NewFieldMapping(integration.TenantID, entity.ID, localField, resource+"."+localField, false)
			if err := s.entities.SaveMapping(ctx, mapping); err != nil {
				return err
			}
		}
	}
	return nil
}
