package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "lead-capture/internal/common/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *CRMClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCRMClient(Options{BaseURL: srv.URL + "/", AccessToken: "tok", Timeout: 2 * time.Second})
}

func TestSearchContactByEmail(t *testing.T) {
	var got searchRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crm/v3/objects/contacts/search", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"total":1,"results":[{"id":"42","properties":{"email":"a@b.co"}}]}`))
	})

	obj, err := client.SearchContactByEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, "42", obj.ID)
	assert.Equal(t, "a@b.co", obj.Properties["email"])

	require.Len(t, got.FilterGroups, 1)
	assert.Equal(t, filter{PropertyName: "email", Operator: "EQ", Value: "a@b.co"}, got.FilterGroups[0].Filters[0])
	assert.Equal(t, 1, got.Limit)
}

func TestSearchContactByEmail_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
	})

	obj, err := client.SearchContactByEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestCreate_RequiresID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{}}`))
	})

	_, err := client.CreateDeal(context.Background(), map[string]string{"dealname": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id in deals create response")
}

func TestUpdateContact_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/crm/v3/objects/contacts/7", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := client.UpdateContact(context.Background(), "7", map[string]string{"firstname": "A"})
	require.Error(t, err)

	var statusErr *httpclient.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, statusErr.Retryable())
}

func TestAssociate(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	err := client.Associate(context.Background(), "tasks", "t1", "deals", "d1", AssocTaskToDeal)
	require.NoError(t, err)
	assert.Equal(t, "/crm/v3/objects/tasks/t1/associations/deals/d1/216", path)
}

func TestNewCRMClient_DefaultBaseURL(t *testing.T) {
	client := NewCRMClient(Options{AccessToken: "tok"})
	assert.Equal(t, "https://api.hubapi.com/crm/v3/objects/contacts", client.objectsURL("contacts"))
}
