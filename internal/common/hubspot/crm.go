package hubspot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	httpclient "lead-capture/internal/common/http"
)

// Association type ids from the HubSpot v3 associations API.
const (
	AssocDealToContact = "3"
	AssocTaskToContact = "204"
	AssocTaskToDeal    = "216"
)

// CRMClient talks to the HubSpot CRM v3 objects API.
type CRMClient struct {
	accessToken string
	baseURL     string
	httpClient  *httpclient.Client
}

// Object is the common shape of contacts, deals and tasks.
type Object struct {
	ID         string            `json:"id,omitempty"`
	Properties map[string]string `json:"properties"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
}

type Options struct {
	BaseURL           string
	AccessToken       string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

func NewCRMClient(opts Options) *CRMClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.hubapi.com"
	}
	clientOpts := []httpclient.Option{httpclient.WithRateLimit(opts.RequestsPerSecond, opts.Burst)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(opts.HTTPClient))
	}
	return &CRMClient{
		accessToken: opts.AccessToken,
		baseURL:     baseURL,
		httpClient:  httpclient.NewClient(opts.Timeout, clientOpts...),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.accessToken}
}

func (c *CRMClient) objectsURL(objectType string, parts ...string) string {
	u := fmt.Sprintf("%s/crm/v3/objects/%s", c.baseURL, objectType)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// SearchContactByEmail returns the first contact whose email matches, or nil.
func (c *CRMClient) SearchContactByEmail(ctx context.Context, email string) (*Object, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}},
		}},
		Properties: []string{"email", "firstname", "lastname"},
		Limit:      1,
	}

	var resp searchResponse
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.objectsURL("contacts", "search"), c.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

func (c *CRMClient) CreateContact(ctx context.Context, properties map[string]string) (string, error) {
	return c.create(ctx, "contacts", properties)
}

func (c *CRMClient) UpdateContact(ctx context.Context, contactID string, properties map[string]string) error {
	var out Object
	if err := c.httpClient.DoJSON(ctx, http.MethodPatch, c.objectsURL("contacts", contactID), c.headers(), Object{Properties: properties}, &out); err != nil {
		return fmt.Errorf("failed to update contact %s: %w", contactID, err)
	}
	return nil
}

func (c *CRMClient) CreateDeal(ctx context.Context, properties map[string]string) (string, error) {
	return c.create(ctx, "deals", properties)
}

func (c *CRMClient) CreateTask(ctx context.Context, properties map[string]string) (string, error) {
	return c.create(ctx, "tasks", properties)
}

// Associate links two objects with the given association type id.
func (c *CRMClient) Associate(ctx context.Context, fromType, fromID, toType, toID, assocType string) error {
	u := c.objectsURL(fromType, fromID, "associations", toType, toID, assocType)
	if err := c.httpClient.DoJSON(ctx, http.MethodPut, u, c.headers(), nil, nil); err != nil {
		return fmt.Errorf("failed to associate %s %s with %s %s: %w", fromType, fromID, toType, toID, err)
	}
	return nil
}

func (c *CRMClient) create(ctx context.Context, objectType string, properties map[string]string) (string, error) {
	var out Object
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.objectsURL(objectType), c.headers(), Object{Properties: properties}, &out); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", strings.TrimSuffix(objectType, "s"), err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("no id in %s create response", objectType)
	}
	return out.ID, nil
}
