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

// SageAdapter talks to a Sage SData endpoint with HTTP basic auth. There is
// no OAuth flow; credentials are presented on every request.
type SageAdapter struct {
	client *http.Client
}

// NewSageAdapter creates the Sage adapter
func NewSageAdapter() *SageAdapter {
	return &SageAdapter{client: newHTTPClient()}
}

// System returns the ERP system this adapter handles
func (a *SageAdapter) System() connector.ERPSystem {
	return connector.ERPSystemSage
}

// DefaultEntityMap returns the SData resource per entity type
func (a *SageAdapter) DefaultEntityMap() map[connector.EntityType]string {
	return map[connector.EntityType]string{
		connector.EntityTypeOrders:    "salesOrders",
		connector.EntityTypeCustomers: "customers",
		connector.EntityTypeProducts:  "commodities",
		connector.EntityTypeInvoices:  "salesInvoices",
		connector.EntityTypePayments:  "receipts",
	}
}

// TestConnection fetches the customers resource with a single-row page
func (a *SageAdapter) TestConnection(ctx context.Context, conn connector.Connection) (*connector.ProbeResult, error) {
	if conn.Credentials.Username == "" || conn.Credentials.Password == "" {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	endpoint := conn.Endpoint + "/sdata/accounts50/GCRM/-/customers?count=1"
	if _, err := doJSON(ctx, a.client, http.MethodGet, endpoint, nil, a.basic(conn)); err != nil {
		return nil, err
	}

	return &connector.ProbeResult{
		Success:   true,
		Message:   "Connection established",
		EntityMap: a.DefaultEntityMap(),
	}, nil
}

// RefreshToken is not supported; Sage SData uses basic auth
func (a *SageAdapter) RefreshToken(ctx context.Context, conn connector.Connection) (*connector.OAuthToken, error) {
	return nil, connector.ErrRefreshNotSupported
}

// PullRecords reads resources changed since the given time
func (a *SageAdapter) PullRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return nil, connector.ErrUnsupportedEntityType
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	where := url.QueryEscape(fmt.Sprintf("updated gt '%s'", since.UTC().Format(time.RFC3339)))
	endpoint := fmt.Sprintf("%s/sdata/accounts50/GCRM/-/%s?where=%s", conn.Endpoint, resource, where)

	raw, err := doJSON(ctx, a.client, http.MethodGet, endpoint, nil, a.basic(conn))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Resources []struct {
			ID      string    `json:"$key"`
			Name    string    `json:"name"`
			Total   float64   `json:"total"`
			Updated time.Time `json:"$updated"`
		} `json:"$resources"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, connector.ErrProbeRejected
	}

	records := make([]connector.Record, 0, len(resp.Resources))
	for _, row := range resp.Resources {
		records = append(records, connector.Record{
			ExternalID: row.ID,
			Name:       row.Name,
			Amount:     decimal.NewFromFloat(row.Total),
			UpdatedAt:  row.Updated,
			Attributes: map[string]string{"resource": resource},
		})
	}
	return records, nil
}

// PushRecords creates resources and returns how many were accepted
func (a *SageAdapter) PushRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, records []connector.Record) (int, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return 0, connector.ErrUnsupportedEntityType
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/sdata/accounts50/GCRM/-/%s", conn.Endpoint, resource)

	accepted := 0
	for _, record := range records {
		body := map[string]any{"name": record.Name}
		if _, err := doJSON(ctx, a.client, http.MethodPost, endpoint, body, a.basic(conn)); err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

func (a *SageAdapter) basic(conn connector.Connection) func(*http.Request) {
	return func(req *http.Request) {
		req.SetBasicAuth(conn.Credentials.Username, conn.Credentials.Password)
	}
}

var _ connector.Adapter = (*SageAdapter)(nil)
