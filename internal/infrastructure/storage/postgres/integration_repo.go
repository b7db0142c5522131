package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"skusync/internal/core/apperror"
	"skusync/internal/domain/settings"
	"skusync/internal/infrastructure/teamleader"
)

var (
	_ settings.Repository        = (*SettingsRepo)(nil)
	_ teamleader.CredentialStore = (*TeamleaderStore)(nil)
)

// IntegrationRepo stores per-service JSON settings blobs in the
// integrations table. Both application settings and the Teamleader
// credentials live here, keyed by service name.
type IntegrationRepo struct {
	txManager *TxManager
}

// NewIntegrationRepo creates a new integration repository.
func NewIntegrationRepo(txManager *TxManager) *IntegrationRepo {
	return &IntegrationRepo{txManager: txManager}
}

func (r *IntegrationRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Load returns the stored settings blob for a service, or nil when the
// service was never configured.
func (r *IntegrationRepo) Load(ctx context.Context, service string) (json.RawMessage, error) {
	sql, args, err := r.builder().
		Select("settings").
		From("integrations").
		Where(squirrel.Eq{"service": service}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select integration: %w", err)
	}

	var row struct {
		Settings []byte `db:"settings"`
	}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, apperror.NewDatabase(err)
	}
	return row.Settings, nil
}

// Save upserts the settings blob for a service.
func (r *IntegrationRepo) Save(ctx context.Context, service string, blob json.RawMessage) error {
	sql, args, err := r.builder().
		Insert("integrations").
		Columns("service", "settings").
		Values(service, []byte(blob)).
		Suffix(`ON CONFLICT (service) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert integration: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}
	return nil
}

const (
	serviceAppSettings = "app_settings"
	serviceTeamleader  = "teamleader"
)

// SettingsRepo persists application settings as one integrations row.
type SettingsRepo struct {
	integrations *IntegrationRepo
}

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(integrations *IntegrationRepo) *SettingsRepo {
	return &SettingsRepo{integrations: integrations}
}

// storedSettings carries the legacy single-formula key some older rows
// still hold; it fills the B2B formula when the split keys are absent.
type storedSettings struct {
	settings.AppSettings
	LegacyFormula string `json:"priceFormula,omitempty"`
}

// Get returns stored settings, or nil when none were saved yet.
func (r *SettingsRepo) Get(ctx context.Context) (*settings.AppSettings, error) {
	blob, err := r.integrations.Load(ctx, serviceAppSettings)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}

	var stored storedSettings
	if err := json.Unmarshal(blob, &stored); err != nil {
		return nil, fmt.Errorf("decode app settings: %w", err)
	}
	if stored.B2BFormula == "" && stored.LegacyFormula != "" {
		stored.B2BFormula = stored.LegacyFormula
	}
	out := stored.AppSettings
	return &out, nil
}

// Save persists the settings.
func (r *SettingsRepo) Save(ctx context.Context, s settings.AppSettings) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode app settings: %w", err)
	}
	return r.integrations.Save(ctx, serviceAppSettings, blob)
}

// TeamleaderStore persists Teamleader OAuth credentials as one
// integrations row.
type TeamleaderStore struct {
	integrations *IntegrationRepo
}

// NewTeamleaderStore creates a new Teamleader credential store.
func NewTeamleaderStore(integrations *IntegrationRepo) *TeamleaderStore {
	return &TeamleaderStore{integrations: integrations}
}

// Load returns the stored credentials, or nil when the integration has
// never been configured.
func (s *TeamleaderStore) Load(ctx context.Context) (*teamleader.Credentials, error) {
	blob, err := s.integrations.Load(ctx, serviceTeamleader)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}

	var creds teamleader.Credentials
	if err := json.Unmarshal(blob, &creds); err != nil {
		return nil, fmt.Errorf("decode teamleader credentials: %w", err)
	}
	return &creds, nil
}

// Save persists the credentials.
func (s *TeamleaderStore) Save(ctx context.Context, creds *teamleader.Credentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode teamleader credentials: %w", err)
	}
	return s.integrations.Save(ctx, serviceTeamleader, blob)
}
