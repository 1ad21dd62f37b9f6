package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/dokany-admin/models"
	"github.com/golang-jwt/jwt/v5"
)

// TestSigningSecret signs fixture tokens when the caller does not care about verification
const TestSigningSecret = "test-secret-key-for-jwt-signing-32-chars"

// AdminClaims describes a fixture bearer token
type AdminClaims struct {
	ID        any
	Email     string
	Name      string
	ExpiresAt time.Time
}

// SignAdminToken mints an HS256 token carrying the claims the dashboard API issues
func SignAdminToken(claims AdminClaims, secret string) (string, error) {
	if secret == "" {
		secret = TestSigningSecret
	}
	mc := jwt.MapClaims{}
	if claims.ID != nil {
		mc["id"] = claims.ID
	}
	if claims.Email != "" {
		mc["email"] = claims.Email
	}
	if claims.Name != "" {
		mc["name"] = claims.Name
	}
	if !claims.ExpiresAt.IsZero() {
		mc["exp"] = claims.ExpiresAt.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign fixture token: %w", err)
	}
	return token, nil
}

// ValidAdminToken returns a token for admin 42 expiring in an hour
func ValidAdminToken() (string, error) {
	return SignAdminToken(AdminClaims{
		ID:        "42",
		Email:     "admin@dokany.test",
		Name:      "Dokany Admin",
		ExpiresAt: time.Now().Add(time.Hour),
	}, "")
}

// SampleThemes is a small theme catalog
func SampleThemes() []models.Theme {
	return []models.Theme{
		{ID: "t1", Name: "Summer Sale", PreviewImage: "https://cdn.dokany.test/t1.png"},
		{ID: "t2", Name: "Ramadan Offers", PreviewImage: "https://cdn.dokany.test/t2.png"},
		{ID: "t3", Name: "Back to School"},
	}
}

// SampleLocationTiers returns countries, governorates and cities as the dashboard API sends them
func SampleLocationTiers() (countries, governorates, cities []models.LocationEntry) {
	countries = []models.LocationEntry{
		{Name: "Egypt", SellerCount: 120},
		{Name: "Saudi Arabia", SellerCount: 80},
	}
	governorates = []models.LocationEntry{
		{Name: "Cairo", SellerCount: 60},
		{Name: "Giza", SellerCount: 25},
	}
	cities = []models.LocationEntry{
		{Name: "Nasr City", SellerCount: 15},
		{Name: "Cairo", SellerCount: 40},
	}
	return countries, governorates, cities
}

// SampleLocationCatalog is SampleLocationTiers flattened
func SampleLocationCatalog() models.LocationCatalog {
	return models.NewLocationCatalog(SampleLocationTiers())
}

// RecordedRequest is one call the fake dashboard API received
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	RequestID     string
	ContentType   string
	Body          []byte
}

// Form decodes a multipart body
func (r RecordedRequest) Form() (*multipart.Form, error) {
	mediaType, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("not a multipart body: %s", mediaType)
	}
	return multipart.NewReader(bytes.NewReader(r.Body), params["boundary"]).ReadForm(8 << 20)
}

// FakeDashboardAPI stands in for the dashboard REST API
type FakeDashboardAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeDashboardAPI starts a server that answers 404 until routes are registered
func NewFakeDashboardAPI() *FakeDashboardAPI {
	f := &FakeDashboardAPI{routes: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeDashboardAPI) URL() string {
	return f.Server.URL
}

func (f *FakeDashboardAPI) Close() {
	f.Server.Close()
}

// Respond registers a JSON answer for method and path. A nil body sends no content.
func (f *FakeDashboardAPI) Respond(method, path string, status int, body any) {
	f.RespondFunc(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// RespondFunc registers a custom handler for method and path
func (f *FakeDashboardAPI) RespondFunc(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// Requests returns a copy of every request received so far
func (f *FakeDashboardAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestCount counts requests received for method and path
func (f *FakeDashboardAPI) RequestCount(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeDashboardAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}
	h(w, r)
}

// WriteJSON writes status and body as JSON; a nil body writes no content
func WriteJSON(w http.ResponseWriter, status int, body any) {
	if body == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
