// qbclient/client_test.go
package qbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(ctx context.Context, realmID string) (string, error) {
	return s.token, s.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(serverURL string) *Client {
	c := NewClient(Sandbox, "75", staticTokens{token: "bearer-token"}, testLogger())
	c.baseURL = serverURL
	return c.WithRealm("realm-1")
}

func TestEnvironmentBaseURL(t *testing.T) {
	assert.Equal(t, "https://sandbox-quickbooks.api.intuit.com/v3/company", Sandbox.BaseURL())
	assert.Equal(t, "https://quickbooks.api.intuit.com/v3/company", Production.BaseURL())
}

func TestDoAttachesAuthAndMinorVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bearer-token", r.Header.Get("Authorization"))
		assert.Equal(t, "75", r.URL.Query().Get("minorversion"))
		assert.Equal(t, "/realm-1/invoice/42", r.URL.Path)
		fmt.Fprint(w, `{"Invoice":{"Id":"42","SyncToken":"3","DocNumber":"INV-100"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	inv, err := client.GetInvoice(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", inv.ID)
	assert.Equal(t, "3", inv.SyncToken)
}

func TestDoFailsFastWithoutRealm(t *testing.T) {
	client := NewClient(Sandbox, "", staticTokens{token: "t"}, testLogger())

	err := client.Do(context.Background(), http.MethodGet, "/invoice/1", nil, nil)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestDoFailsFastOnTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("call must not reach the API when no credential exists")
	}))
	defer server.Close()

	client := NewClient(Sandbox, "", staticTokens{err: errors.New("no token stored")}, testLogger())
	client.baseURL = server.URL

	err := client.WithRealm("realm-1").Do(context.Background(), http.MethodGet, "/invoice/1", nil, nil)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, IsRetryable(err))
}

func TestDoClassifiesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"Fault":{"type":"ValidationFault","Error":[{"Message":"Invalid Reference Id","code":"2500"}]}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetInvoice(context.Background(), "42")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.NotNil(t, apiErr.Fault)
	assert.Equal(t, "2500", apiErr.Fault.Errors[0].Code)
	assert.False(t, IsRetryable(err))
	assert.False(t, IsStaleObject(err))
}

func TestDoServerErrorsAreRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetInvoice(context.Background(), "42")
	assert.True(t, IsRetryable(err))
}

func TestDoTransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL)
	_, err := client.GetInvoice(context.Background(), "42")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, IsRetryable(err))
}

func TestStaleObjectDetection(t *testing.T) {
	tests := []struct {
		name  string
		err   *APIError
		stale bool
	}{
		{
			name:  "conflict status",
			err:   &APIError{StatusCode: http.StatusConflict},
			stale: true,
		},
		{
			name: "stale fault code",
			err: &APIError{
				StatusCode: http.StatusBadRequest,
				Fault:      &Fault{Errors: []FaultError{{Code: "5010", Message: "Stale Object Error"}}},
			},
			stale: true,
		},
		{
			name: "unrelated fault code",
			err: &APIError{
				StatusCode: http.StatusBadRequest,
				Fault:      &Fault{Errors: []FaultError{{Code: "2500"}}},
			},
			stale: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stale, tt.err.StaleObject())
			assert.Equal(t, tt.stale, IsStaleObject(tt.err))
		})
	}
}

func TestDoMalformed2xxBodyIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>gateway timeout</html>`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetInvoice(context.Background(), "42")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "malformed response body")
}

func TestEscapeQueryValue(t *testing.T) {
	assert.Equal(t, `O\'Brien Plumbing`, EscapeQueryValue("O'Brien Plumbing"))
	assert.Equal(t, `a\\b`, EscapeQueryValue(`a\b`))
	assert.Equal(t, "plain", EscapeQueryValue("plain"))
}

func TestFindInvoiceByDocNumberEscapesValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expr := r.URL.Query().Get("query")
		assert.Contains(t, expr, `DocNumber = 'INV\'--'`)
		fmt.Fprint(w, `{"QueryResponse":{}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	inv, err := client.FindInvoiceByDocNumber(context.Background(), "INV'--")
	require.NoError(t, err)
	assert.Nil(t, inv, "no match must return nil without error")
}

func TestUpdateInvoiceRequiresIdentityAndSyncToken(t *testing.T) {
	client := newTestClient("http://unused")

	_, err := client.UpdateInvoice(context.Background(), &InvoiceUpsert{DocNumber: "INV-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyncToken")
}

func TestUpdateInvoiceSendsSparseFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, true, payload["sparse"])
		assert.Equal(t, "9", payload["SyncToken"])
		fmt.Fprint(w, `{"Invoice":{"Id":"42","SyncToken":"10"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	inv, err := client.UpdateInvoice(context.Background(), &InvoiceUpsert{ID: "42", SyncToken: "9"})
	require.NoError(t, err)
	assert.Equal(t, "10", inv.SyncToken)
}

func TestInvoiceUpsertNeverCarriesComputedFields(t *testing.T) {
	upsert := &InvoiceUpsert{
		DocNumber:   "INV-100",
		CustomerRef: &Ref{Value: "7"},
		Line: []Line{{
			Amount:     decimal.NewFromInt(150),
			DetailType: "SalesItemLineDetail",
			SalesItemLineDetail: &SalesItemLineDetail{
				ItemRef:   &Ref{Value: "1"},
				Qty:       decimal.NewFromInt(3),
				UnitPrice: decimal.NewFromInt(50),
			},
		}},
	}

	payload, err := json.Marshal(upsert)
	require.NoError(t, err)

	body := string(payload)
	assert.NotContains(t, body, "TotalAmt")
	assert.NotContains(t, body, "Balance")
	assert.False(t, strings.Contains(body, `"Id"`), "create payload must not carry an Id")
}
