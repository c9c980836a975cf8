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

// QuickBooksAdapter talks to the QuickBooks Online accounting API. Calls are
// bearer-authenticated and scoped to the company realm; tokens come from the
// OAuth refresh grant with the client credentials in the Authorization
// header.
type QuickBooksAdapter struct {
	client *http.Client
}

// NewQuickBooksAdapter creates the QuickBooks adapter
func NewQuickBooksAdapter() *QuickBooksAdapter {
	return &QuickBooksAdapter{client: newHTTPClient()}
}

// System returns the ERP system this adapter handles
func (a *QuickBooksAdapter) System() connector.ERPSystem {
	return connector.ERPSystemQuickBooks
}

// DefaultEntityMap returns the QuickBooks entity per entity type
func (a *QuickBooksAdapter) DefaultEntityMap() map[connector.EntityType]string {
	return map[connector.EntityType]string{
		connector.EntityTypeOrders:    "SalesReceipt",
		connector.EntityTypeCustomers: "Customer",
		connector.EntityTypeProducts:  "Item",
		connector.EntityTypeInvoices:  "Invoice",
		connector.EntityTypePayments:  "Payment",
	}
}

// TestConnection fetches the company info for the connected realm
func (a *QuickBooksAdapter) TestConnection(ctx context.Context, conn connector.Connection) (*connector.ProbeResult, error) {
	if conn.Token == nil || conn.Token.AccessToken == "" || conn.Credentials.RealmID == "" {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v3/company/%s/companyinfo/%s",
		conn.Endpoint, conn.Credentials.RealmID, conn.Credentials.RealmID)

	raw, err := doJSON(ctx, a.client, http.MethodGet, endpoint, nil, a.bearer(conn))
	if err != nil {
		return nil, err
	}

	var resp struct {
		CompanyInfo struct {
			CompanyName string `json:"CompanyName"`
		} `json:"CompanyInfo"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.CompanyInfo.CompanyName == "" {
		return nil, connector.ErrProbeRejected
	}

	return &connector.ProbeResult{
		Success:   true,
		Message:   "Connection established",
		EntityMap: a.DefaultEntityMap(),
	}, nil
}

// RefreshToken runs the OAuth refresh grant with HTTP basic client auth
func (a *QuickBooksAdapter) RefreshToken(ctx context.Context, conn connector.Connection) (*connector.OAuthToken, error) {
	ctx, cancel := callContext(ctx)
	defer cancel()

	return refreshGrant(ctx, a.client, conn, func(req *http.Request) {
		req.SetBasicAuth(conn.OAuthClientID, conn.OAuthClientSecret)
	})
}

// PullRecords queries entities changed since the given time
func (a *QuickBooksAdapter) PullRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return nil, connector.ErrUnsupportedEntityType
	}
	if conn.Token == nil || conn.Credentials.RealmID == "" {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT * FROM %s WHERE Metadata.LastUpdatedTime > '%s'",
		resource, since.UTC().Format(time.RFC3339))
	endpoint := fmt.Sprintf("%s/v3/company/%s/query?query=%s",
		conn.Endpoint, conn.Credentials.RealmID, url.QueryEscape(query))

	raw, err := doJSON(ctx, a.client, http.MethodGet, endpoint, nil, a.bearer(conn))
	if err != nil {
		return nil, err
	}

	var resp struct {
		QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, connector.ErrProbeRejected
	}

	var rows []struct {
		ID          string  `json:"Id"`
		DisplayName string  `json:"DisplayName"`
		DocNumber   string  `json:"DocNumber"`
		TotalAmt    float64 `json:"TotalAmt"`
		MetaData    struct {
			LastUpdatedTime time.Time `json:"LastUpdatedTime"`
		} `json:"MetaData"`
	}
	if body, ok := resp.QueryResponse[resource]; ok {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, connector.ErrProbeRejected
		}
	}

	records := make([]connector.Record, 0, len(rows))
	for _, row := range rows {
		name := row.DisplayName
		if name == "" {
			name = row.DocNumber
		}
		records = append(records, connector.Record{
			ExternalID: row.ID,
			Name:       name,
			Amount:     decimal.NewFromFloat(row.TotalAmt),
			UpdatedAt:  row.MetaData.LastUpdatedTime,
			Attributes: map[string]string{"entity": resource},
		})
	}
	return records, nil
}

// PushRecords creates entities and returns how many were accepted
func (a *QuickBooksAdapter) PushRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, records []connector.Record) (int, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return 0, connector.ErrUnsupportedEntityType
	}
	if conn.Token == nil || conn.Credentials.RealmID == "" {
		return 0, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v3/company/%s/%s", conn.Endpoint, conn.Credentials.RealmID, resource)

	accepted := 0
	for _, record := range records {
		body := map[string]any{"DisplayName": record.Name}
		if _, err := doJSON(ctx, a.client, http.MethodPost, endpoint, body, a.bearer(conn)); err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

func (a *QuickBooksAdapter) bearer(conn connector.Connection) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+conn.Token.AccessToken)
	}
}

var _ connector.Adapter = (*QuickBooksAdapter)(nil)
