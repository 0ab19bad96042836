package instance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftsync/internal/api"
	"driftsync/internal/reconciler"
)

// fakeAPI is a minimal instance API: per-path resource collections with the
// wire shape the client expects.
type fakeAPI struct {
	t *testing.T

	resources   map[string][]apiResource // keyed by "<kindPath>|<namespace>"
	gotAuth     string
	writeStatus int // 0 means 204
	writes      []string
	deletes     []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		f.gotAuth = r.Header.Get("Authorization")
		namespace := r.URL.Query().Get("namespace")

		switch r.Method {
		case http.MethodGet:
			key := r.URL.Path[len("/api/v1/"):] + "|" + namespace
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(f.resources[key]); err != nil {
				f.t.Errorf("encoding response: %v", err)
			}
		case http.MethodPut:
			f.writes = append(f.writes, r.URL.Path)
			status := f.writeStatus
			if status == 0 {
				status = http.StatusNoContent
			}
			if status == http.StatusUnprocessableEntity {
				http.Error(w, "schema mismatch", status)
				return
			}
			w.WriteHeader(status)
		case http.MethodDelete:
			f.deletes = append(f.deletes, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAPI, token string) (*APIClient, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client, err := NewAPIClient(ClientConfig{Endpoint: srv.URL, Token: token})
	require.NoError(t, err)
	return client, srv
}

func TestNewAPIClientRequiresEndpoint(t *testing.T) {
	_, err := NewAPIClient(ClientConfig{})
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}

func TestReadListsNamespacedResources(t *testing.T) {
	f := &fakeAPI{t: t, resources: map[string][]apiResource{
		"workflows|team-a": {
			{ID: "deploy", Content: []byte("id: deploy\n"), Revision: "7"},
			{ID: "cleanup", Content: []byte("id: cleanup\n"), Revision: "2"},
		},
	}}
	client, _ := newTestClient(t, f, "secret-token")

	records, err := client.Read(context.Background(), "team-a", reconciler.KindDefinition)
	require.NoError(t, err)

	require.Len(t, records, 2)
	key := reconciler.ResourceKey{Scope: "team-a", ID: "deploy", Kind: reconciler.KindDefinition}
	rec, ok := records[key]
	require.True(t, ok)
	assert.Equal(t, []byte("id: deploy\n"), rec.Content)
	assert.Equal(t, "7", rec.ChangeMarker)
	assert.Equal(t, reconciler.OriginInstance, rec.Origin)

	// The bearer token travels on every request.
	assert.Equal(t, "Bearer secret-token", f.gotAuth)
}

func TestContentRoundTripsBinary(t *testing.T) {
	// The wire format carries content base64-encoded; arbitrary bytes
	// survive the trip.
	raw := []byte{0x00, 0xff, 0x10, 0x80}
	encoded, err := json.Marshal(apiResource{ID: "blob", Content: raw})
	require.NoError(t, err)

	var decoded apiResource
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, raw, decoded.Content)
}

func TestWriteMapsRejectionToValidationError(t *testing.T) {
	f := &fakeAPI{t: t, writeStatus: http.StatusUnprocessableEntity}
	client, _ := newTestClient(t, f, "")

	key := reconciler.ResourceKey{Scope: "team-a", ID: "bad", Kind: reconciler.KindDefinition}
	err := client.Write(context.Background(), key, []byte("nope"))
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
}

func TestWriteSucceeds(t *testing.T) {
	f := &fakeAPI{t: t}
	client, _ := newTestClient(t, f, "")

	key := reconciler.ResourceKey{Scope: "team-a", ID: "deploy", Kind: reconciler.KindDefinition}
	require.NoError(t, client.Write(context.Background(), key, []byte("id: deploy\n")))
	require.Len(t, f.writes, 1)
	assert.Equal(t, "/api/v1/workflows/deploy", f.writes[0])
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	f := &fakeAPI{t: t} // always answers 404 on DELETE
	client, _ := newTestClient(t, f, "")

	key := reconciler.ResourceKey{Scope: "team-a", ID: "gone", Kind: reconciler.KindDefinition}
	require.NoError(t, client.Delete(context.Background(), key))
	assert.Len(t, f.deletes, 1)
}

func TestCollectionURL(t *testing.T) {
	c := &APIClient{base: "https://instance.example.com"}

	assert.Equal(t, "https://instance.example.com/api/v1/workflows?namespace=team-a",
		c.collectionURL("team-a", reconciler.KindDefinition, ""))
	assert.Equal(t, "https://instance.example.com/api/v1/dashboards/overview.json",
		c.collectionURL("", reconciler.KindDashboard, "overview.json"))
	// ids with path separators stay a single path segment
	assert.Equal(t, "https://instance.example.com/api/v1/files/certs%2Fca.pem?namespace=team-a",
		c.collectionURL("team-a", reconciler.KindFile, "certs/ca.pem"))
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewAPIClient(ClientConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = client.Read(context.Background(), "team-a", reconciler.KindDefinition)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}
