package instance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"driftsync/internal/api"
	"driftsync/internal/reconciler"
	"driftsync/pkg/logging"
)

// ClientConfig configures the HTTP client for the instance's resource API.
type ClientConfig struct {
	// Endpoint is the base URL of the instance API.
	Endpoint string

	// Token is the bearer token used for every request.
	Token string

	// TLS configures transport security.
	TLS TLSConfig

	// Timeout bounds each request; zero means 30 seconds.
	Timeout time.Duration
}

// APIClient talks to the live instance's resource store over HTTP. It
// implements reconciler.InstanceStore.
//
// The wire format is JSON; resource content travels base64-encoded so that
// opaque binary files round-trip byte-exact.
type APIClient struct {
	base string
	http *http.Client
}

// apiResource is the wire representation of one stored resource.
type apiResource struct {
	ID       string `json:"id"`
	Content  []byte `json:"content"`
	Revision string `json:"revision"`
}

// NewAPIClient builds a client for the given configuration.
func NewAPIClient(cfg ClientConfig) (*APIClient, error) {
	if cfg.Endpoint == "" {
		return nil, api.NewConfigurationError("instance.endpoint", "must be set")
	}

	transport, err := transportFor(cfg.TLS)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Transport: transport, Timeout: timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = timeout
	}

	return &APIClient{
		base: strings.TrimSuffix(cfg.Endpoint, "/"),
		http: httpClient,
	}, nil
}

// Read lists the resources of one (scope, kind) pair from the instance.
func (c *APIClient) Read(ctx context.Context, scope string, kind reconciler.Kind) (map[reconciler.ResourceKey]reconciler.ResourceRecord, error) {
	endpoint := c.collectionURL(scope, kind, "")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing %s resources: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, fmt.Sprintf("listing %s resources", kind))
	}

	var resources []apiResource
	if err := json.NewDecoder(resp.Body).Decode(&resources); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", kind, err)
	}

	records := make(map[reconciler.ResourceKey]reconciler.ResourceRecord, len(resources))
	for _, res := range resources {
		key := reconciler.ResourceKey{Scope: scope, ID: res.ID, Kind: kind}
		records[key] = reconciler.ResourceRecord{
			Key:          key,
			Content:      res.Content,
			Origin:       reconciler.OriginInstance,
			ChangeMarker: res.Revision,
		}
	}
	logging.Debug("InstanceReader", "Listed %d %s resources from %s", len(records), kind, endpoint)
	return records, nil
}

// Write stores content for the key in the instance. A 422 response maps to
// a ValidationError so the applier can apply the onInvalidContent policy.
func (c *APIClient) Write(ctx context.Context, key reconciler.ResourceKey, content []byte) error {
	body, err := json.Marshal(apiResource{ID: key.ID, Content: content})
	if err != nil {
		return err
	}

	endpoint := c.collectionURL(key.Scope, key.Kind, key.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnprocessableEntity:
		return api.NewValidationError(key.String(), c.statusError(resp, "write rejected"))
	default:
		return c.statusError(resp, fmt.Sprintf("writing %s", key))
	}
}

// Delete removes the key from the instance. Deleting an already-absent
// resource is not an error.
func (c *APIClient) Delete(ctx context.Context, key reconciler.ResourceKey) error {
	endpoint := c.collectionURL(key.Scope, key.Kind, key.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return c.statusError(resp, fmt.Sprintf("deleting %s", key))
	}
}

// collectionURL builds the API URL for a kind collection or a single
// resource within it.
func (c *APIClient) collectionURL(scope string, kind reconciler.Kind, id string) string {
	endpoint := c.base + "/api/v1/" + kindPath(kind)
	if id != "" {
		endpoint += "/" + url.PathEscape(id)
	}
	if scope != "" {
		endpoint += "?namespace=" + url.QueryEscape(scope)
	}
	return endpoint
}

// statusError extracts a readable error from a non-success response.
func (c *APIClient) statusError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("%s: %s (HTTP %d)", op, msg, resp.StatusCode)
}

// kindPath maps a kind to its API collection path.
func kindPath(kind reconciler.Kind) string {
	switch kind {
	case reconciler.KindDefinition:
		return "workflows"
	case reconciler.KindFile:
		return "files"
	case reconciler.KindDashboard:
		return "dashboards"
	default:
		return strings.ToLower(string(kind))
	}
}
