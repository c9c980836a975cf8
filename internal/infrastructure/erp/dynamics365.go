package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erpsync/backend/internal/domain/connector"
)

// Dynamics365Adapter talks to the Dataverse Web API of Dynamics 365. Calls
// are bearer-authenticated; tokens come from the Azure AD refresh grant.
type Dynamics365Adapter struct {
	client *http.Client
}

// NewDynamics365Adapter creates the Dynamics 365 adapter
func NewDynamics365Adapter() *Dynamics365Adapter {
	return &Dynamics365Adapter{client: newHTTPClient()}
}

// System returns the ERP system this adapter handles
func (a *Dynamics365Adapter) System() connector.ERPSystem {
	return connector.ERPSystemDynamics365
}

// DefaultEntityMap returns the Dataverse entity set per entity type
func (a *Dynamics365Adapter) DefaultEntityMap() map[connector.EntityType]string {
	return map[connector.EntityType]string{
		connector.EntityTypeOrders:    "salesorders",
		connector.EntityTypeCustomers: "accounts",
		connector.EntityTypeProducts:  "products",
		connector.EntityTypeInvoices:  "invoices",
		connector.EntityTypePayments:  "msdyn_payments",
	}
}

// TestConnection calls WhoAmI to verify the token and organization
func (a *Dynamics365Adapter) TestConnection(ctx context.Context, conn connector.Connection) (*connector.ProbeResult, error) {
	if conn.Token == nil || conn.Token.AccessToken == "" {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	raw, err := doJSON(ctx, a.client, http.MethodGet, conn.Endpoint+"/api/data/v9.2/WhoAmI", nil, a.bearer(conn))
	if err != nil {
		return nil, err
	}

	var resp struct {
		UserID string `json:"UserId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.UserID == "" {
		return nil, connector.ErrProbeRejected
	}

	return &connector.ProbeResult{
		Success:   true,
		Message:   "Connection established",
		EntityMap: a.DefaultEntityMap(),
	}, nil
}

// RefreshToken runs the Azure AD refresh grant; the client credentials
// travel in the form body rather than a basic auth header
func (a *Dynamics365Adapter) RefreshToken(ctx context.Context, conn connector.Connection) (*connector.OAuthToken, error) {
	if conn.Token == nil || conn.Token.RefreshToken == "" || conn.OAuthTokenURL == "" {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", conn.Token.RefreshToken)
	values.Set("client_id", conn.OAuthClientID)
	values.Set("client_secret", conn.OAuthClientSecret)
	if conn.OAuthScopes != "" {
		values.Set("scope", conn.OAuthScopes)
	}

	raw, err := doForm(ctx, a.client, conn.OAuthTokenURL, values, nil)
	if err != nil {
		return nil, err
	}

	var tokenResp oauthTokenResponse
	if err := json.Unmarshal(raw, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return nil, connector.ErrTokenRefreshRejected
	}
	return tokenResp.toToken(conn.Token.RefreshToken, time.Now()), nil
}

// PullRecords reads entities modified since the given time
func (a *Dynamics365Adapter) PullRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return nil, connector.ErrUnsupportedEntityType
	}
	if conn.Token == nil {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	filter := url.QueryEscape(fmt.Sprintf("modifiedon gt %s", since.UTC().Format(time.RFC3339)))
	endpoint := fmt.Sprintf("%s/api/data/v9.2/%s?$filter=%s", conn.Endpoint, resource, filter)

	raw, err := doJSON(ctx, a.client, http.MethodGet, endpoint, nil, a.bearer(conn))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value []struct {
			ID          string    `json:"@odata.id"`
			Name        string    `json:"name"`
			TotalAmount float64   `json:"totalamount"`
			ModifiedOn  time.Time `json:"modifiedon"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, connector.ErrProbeRejected
	}

	records := make([]connector.Record, 0, len(resp.Value))
	for _, row := range resp.Value {
		records = append(records, connector.Record{
			ExternalID: row.ID,
			Name:       row.Name,
			Amount:     decimal.NewFromFloat(row.TotalAmount),
			UpdatedAt:  row.ModifiedOn,
			Attributes: map[string]string{"entityset": resource},
		})
	}
	return records, nil
}

// PushRecords creates entities and returns how many were accepted
func (a *Dynamics365Adapter) PushRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, records []connector.Record) (int, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return 0, connector.ErrUnsupportedEntityType
	}
	if conn.Token == nil {
		return 0, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/data/v9.2/%s", conn.Endpoint, resource)

	accepted := 0
	for _, record := range records {
		body := map[string]any{"name": record.Name}
		if _, err := doJSON(ctx, a.client, http.MethodPost, endpoint, body, a.bearer(conn)); err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

func (a *Dynamics365Adapter) bearer(conn connector.Connection) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+conn.Token.AccessToken)
		req.Header.Set("OData-Version", "4.0")
	}
}

var _ connector.Adapter = (*Dynamics365Adapter)(nil)
