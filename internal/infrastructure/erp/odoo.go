package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erpsync/backend/internal/domain/connector"
)

// OdooAdapter talks to Odoo's JSON-RPC web API. Odoo uses session
// authentication: every call chain starts with /web/session/authenticate,
// which sets a session cookie that must accompany the data calls, and there
// is no OAuth token to refresh.
type OdooAdapter struct {
	client *http.Client
}

// NewOdooAdapter creates the Odoo adapter
func NewOdooAdapter() *OdooAdapter {
	return &OdooAdapter{client: newHTTPClient()}
}

// sessionClient returns a client with a fresh cookie jar. The jar is scoped
// to one call chain so sessions of different tenants never mix.
func (a *OdooAdapter) sessionClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create cookie jar: %w", err)
	}
	client := *a.client
	client.Jar = jar
	return &client, nil
}

// System returns the ERP system this adapter handles
func (a *OdooAdapter) System() connector.ERPSystem {
	return connector.ERPSystemOdoo
}

// DefaultEntityMap returns the Odoo model name per entity type
func (a *OdooAdapter) DefaultEntityMap() map[connector.EntityType]string {
	return map[connector.EntityType]string{
		connector.EntityTypeOrders:    "sale.order",
		connector.EntityTypeCustomers: "res.partner",
		connector.EntityTypeProducts:  "product.product",
		connector.EntityTypeInvoices:  "account.move",
		connector.EntityTypePayments:  "account.payment",
	}
}

type odooRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type odooRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// TestConnection authenticates against /web/session/authenticate
func (a *OdooAdapter) TestConnection(ctx context.Context, conn connector.Connection) (*connector.ProbeResult, error) {
	if conn.Credentials.Database == "" || conn.Credentials.Username == "" || conn.Credentials.Password == "" {
		return nil, connector.ErrInvalidCredentials
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	client, err := a.sessionClient()
	if err != nil {
		return nil, err
	}

	raw, err := a.authenticate(ctx, client, conn)
	if err != nil {
		return nil, err
	}

	var session struct {
		UID json.Number `json:"uid"`
	}
	if err := json.Unmarshal(raw, &session); err != nil || session.UID.String() == "" || session.UID.String() == "0" {
		return nil, connector.ErrProbeRejected
	}

	return &connector.ProbeResult{
		Success:   true,
		Message:   "Connection established",
		EntityMap: a.DefaultEntityMap(),
	}, nil
}

// RefreshToken is not supported; Odoo uses session authentication
func (a *OdooAdapter) RefreshToken(ctx context.Context, conn connector.Connection) (*connector.OAuthToken, error) {
	return nil, connector.ErrRefreshNotSupported
}

// PullRecords reads records of one model changed since the given time
func (a *OdooAdapter) PullRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	model, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return nil, connector.ErrUnsupportedEntityType
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	client, err := a.sessionClient()
	if err != nil {
		return nil, err
	}

	if _, err := a.authenticate(ctx, client, conn); err != nil {
		return nil, err
	}

	result, err := a.callKw(ctx, client, conn, model, "search_read", map[string]any{
		"domain": []any{[]any{"write_date", ">", since.UTC().Format("2006-01-02 15:04:05")}},
		"fields": []string{"id", "display_name", "amount_total", "write_date"},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID          int64   `json:"id"`
		DisplayName string  `json:"display_name"`
		AmountTotal float64 `json:"amount_total"`
		WriteDate   string  `json:"write_date"`
	}
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, connector.ErrProbeRejected
	}

	records := make([]connector.Record, 0, len(rows))
	for _, row := range rows {
		updatedAt, _ := time.Parse("2006-01-02 15:04:05", row.WriteDate)
		records = append(records, connector.Record{
			ExternalID: strconv.FormatInt(row.ID, 10),
			Name:       row.DisplayName,
			Amount:     decimal.NewFromFloat(row.AmountTotal),
			UpdatedAt:  updatedAt,
			Attributes: map[string]string{"model": model},
		})
	}
	return records, nil
}

// PushRecords creates records of one model and returns how many were accepted
func (a *OdooAdapter) PushRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, records []connector.Record) (int, error) {
	model, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return 0, connector.ErrUnsupportedEntityType
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	client, err := a.sessionClient()
	if err != nil {
		return 0, err
	}

	if _, err := a.authenticate(ctx, client, conn); err != nil {
		return 0, err
	}

	accepted := 0
	for _, record := range records {
		_, err := a.callKw(ctx, client, conn, model, "create", map[string]any{
			"vals": map[string]any{"name": record.Name},
		})
		if err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

func (a *OdooAdapter) authenticate(ctx context.Context, client *http.Client, conn connector.Connection) (json.RawMessage, error) {
	body := odooRPCRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]any{
			"db":       conn.Credentials.Database,
			"login":    conn.Credentials.Username,
			"password": conn.Credentials.Password,
		},
	}

	raw, err := doJSON(ctx, client, http.MethodPost, conn.Endpoint+"/web/session/authenticate", body, nil)
	if err != nil {
		return nil, err
	}

	var resp odooRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, connector.ErrProbeRejected
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", connector.ErrProbeRejected, "authentication failed")
	}
	return resp.Result, nil
}

func (a *OdooAdapter) callKw(ctx context.Context, client *http.Client, conn connector.Connection, model, method string, kwargs map[string]any) (json.RawMessage, error) {
	body := odooRPCRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]any{
			"model":  model,
			"method": method,
			"args":   []any{},
			"kwargs": kwargs,
		},
	}

	raw, err := doJSON(ctx, client, http.MethodPost, conn.Endpoint+"/web/dataset/call_kw", body, nil)
	if err != nil {
		return nil, err
	}

	var resp odooRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, connector.ErrProbeRejected
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s call failed", connector.ErrProbeRejected, method)
	}
	return resp.Result, nil
}

var _ connector.Adapter = (*OdooAdapter)(nil)
