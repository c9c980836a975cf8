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

// SAPB1Adapter talks to the SAP Business One Service Layer. Authentication
// is a session login against /b1s/v1/Login; there is no OAuth refresh.
type SAPB1Adapter struct {
	client *http.Client
}

// NewSAPB1Adapter creates the SAP B1 adapter
func NewSAPB1Adapter() *SAPB1Adapter {
	return &SAPB1Adapter{client: newHTTPClient()}
}

// System returns the ERP system this adapter handles
func (a *SAPB1Adapter) System() connector.ERPSystem {
	return connector.ERPSystemSAPB1
}

// DefaultEntityMap returns the Service Layer resource per entity type
func (a *SAPB1Adapter) DefaultEntityMap() map[connector.EntityType]string {
	return map[connector.EntityType]string{
		connector.EntityTypeOrders:    "Orders",
		connector.EntityTypeCustomers: "BusinessPartners",
		connector.EntityTypeProducts:  "Items",
		connector.EntityTypeInvoices:  "Invoices",
		connector.EntityTypePayments:  "IncomingPayments",
	}
}

// TestConnection logs in against the Service Layer
func (a *SAPB1Adapter) TestConnection(ctx context.Context, conn connector.Connection) (*connector.ProbeResult, error) {
	ctx, cancel := callContext(ctx)
	defer cancel()

	if _, err := a.login(ctx, conn); err != nil {
		return nil, err
	}

	return &connector.ProbeResult{
		Success:   true,
		Message:   "Connection established",
		EntityMap: a.DefaultEntityMap(),
	}, nil
}

// RefreshToken is not supported; the Service Layer uses session cookies
func (a *SAPB1Adapter) RefreshToken(ctx context.Context, conn connector.Connection) (*connector.OAuthToken, error) {
	return nil, connector.ErrRefreshNotSupported
}

// PullRecords reads resources changed since the given time via OData filter
func (a *SAPB1Adapter) PullRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return nil, connector.ErrUnsupportedEntityType
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	session, err := a.login(ctx, conn)
	if err != nil {
		return nil, err
	}

	filter := url.QueryEscape(fmt.Sprintf("UpdateDate ge '%s'", since.UTC().Format("2006-01-02")))
	endpoint := fmt.Sprintf("%s/b1s/v1/%s?$filter=%s", conn.Endpoint, resource, filter)

	raw, err := doJSON(ctx, a.client, http.MethodGet, endpoint, nil, func(req *http.Request) {
		req.Header.Set("Cookie", "B1SESSION="+session)
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value []struct {
			DocEntry   int64   `json:"DocEntry"`
			CardCode   string  `json:"CardCode"`
			CardName   string  `json:"CardName"`
			DocTotal   float64 `json:"DocTotal"`
			UpdateDate string  `json:"UpdateDate"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, connector.ErrProbeRejected
	}

	records := make([]connector.Record, 0, len(resp.Value))
	for _, row := range resp.Value {
		updatedAt, _ := time.Parse("2006-01-02", row.UpdateDate)
		externalID := fmt.Sprintf("%d", row.DocEntry)
		if row.DocEntry == 0 {
			externalID = row.CardCode
		}
		records = append(records, connector.Record{
			ExternalID: externalID,
			Name:       row.CardName,
			Amount:     decimal.NewFromFloat(row.DocTotal),
			UpdatedAt:  updatedAt,
			Attributes: map[string]string{"resource": resource},
		})
	}
	return records, nil
}

// PushRecords creates resources and returns how many were accepted
func (a *SAPB1Adapter) PushRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, records []connector.Record) (int, error) {
	resource, ok := a.DefaultEntityMap()[entity]
	if !ok {
		return 0, connector.ErrUnsupportedEntityType
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	session, err := a.login(ctx, conn)
	if err != nil {
		return 0, err
	}

	accepted := 0
	for _, record := range records {
		body := map[string]any{"CardName": record.Name}
		_, err := doJSON(ctx, a.client, http.MethodPost, conn.Endpoint+"/b1s/v1/"+resource, body, func(req *http.Request) {
			req.Header.Set("Cookie", "B1SESSION="+session)
		})
		if err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

// login authenticates against the Service Layer and returns the session ID
func (a *SAPB1Adapter) login(ctx context.Context, conn connector.Connection) (string, error) {
	if conn.Credentials.CompanyDB == "" || conn.Credentials.Username == "" || conn.Credentials.Password == "" {
		return "", connector.ErrInvalidCredentials
	}

	body := map[string]string{
		"CompanyDB": conn.Credentials.CompanyDB,
		"UserName":  conn.Credentials.Username,
		"Password":  conn.Credentials.Password,
	}

	raw, err := doJSON(ctx, a.client, http.MethodPost, conn.Endpoint+"/b1s/v1/Login", body, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		SessionID string `json:"SessionId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.SessionID == "" {
		return "", connector.ErrProbeRejected
	}
	return resp.SessionID, nil
}

var _ connector.Adapter = (*SAPB1Adapter)(nil)
