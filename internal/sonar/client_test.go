package sonar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "secret-token", 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient("  ", "token", 0)
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestClient_ExecuteSendsGraphQLRequest(t *testing.T) {
	companyID := int64(3)
	var received graphQLRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-Id"))
		assert.NoError(t, err, "request id should be a uuid")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		var raw struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.Unmarshal(body, &raw))
		assert.Contains(t, raw.Variables, "accountStatusID")
		assert.Nil(t, raw.Variables["accountStatusID"], "unset filters are sent as null")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"total":{"page_info":{"total_count":1569}},"down":{"page_info":{"total_count":71}}}}`)
	})

	var data FullListData
	err := c.Execute(context.Background(), FullListSummary(Filter{CompanyID: &companyID}), &data)
	require.NoError(t, err)

	assert.Equal(t, "full_list", received.OperationName)
	assert.Contains(t, received.Query, "uninventoried_only")
	require.NotNil(t, received.Variables.CompanyID)
	assert.Equal(t, int64(3), *received.Variables.CompanyID)

	require.NotNil(t, data.Total.TotalCount())
	assert.Equal(t, 1569, *data.Total.TotalCount())
	assert.Equal(t, 71, *data.Down.TotalCount())
	assert.Nil(t, data.Good.TotalCount())
}

func TestClient_ExecuteNonSuccessIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, strings.Repeat("x", 2048))
	})

	err := c.Execute(context.Background(), FullListSummary(Filter{}), &FullListData{})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsUpstreamError(err))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Len(t, te.Body, maxErrorBody)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_ExecuteGraphQLErrorsAreUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":null,"errors":[{"message":"Unauthenticated."},{"message":"again"}]}`)
	})

	err := c.Execute(context.Background(), DownAccounts(Filter{}, Page{}), &AccountsData{})
	require.Error(t, err)
	assert.True(t, IsUpstreamError(err))
	assert.False(t, IsTransportError(err))
	assert.Equal(t, "sonar returned errors: Unauthenticated.; again", err.Error())
}

func TestClient_ExecuteUndecodableBodyIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>maintenance</html>`)
	})

	err := c.Execute(context.Background(), FullListSummary(Filter{}), &FullListData{})
	assert.True(t, IsTransportError(err))
}

func TestClient_ExecuteMissingDataLeavesZeroValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":null}`)
	})

	var data FullListData
	require.NoError(t, c.Execute(context.Background(), FullListSummary(Filter{}), &data))
	assert.Nil(t, data.Total)
}

func TestClient_ExecuteUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, err := NewClient(endpoint, "token", time.Second)
	require.NoError(t, err)

	err = c.Execute(context.Background(), FullListSummary(Filter{}), &FullListData{})
	assert.True(t, IsTransportError(err))
}

func TestClient_ExecuteHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Execute(ctx, FullListSummary(Filter{}), &FullListData{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
