package http_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	pagehandler "github.com/sjaconsulting/static-page-handler"
	handlerhttp "github.com/sjaconsulting/static-page-handler/http"
)

const testSecret = "mysecretpassword"

// readSeekNopCloser wraps an io.ReadSeeker to add a no-op Close method
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }

// MockService is a mock implementation of http.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, key string) (pagehandler.ObjectInfo, io.ReadSeekCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(1) == nil {
		return args.Get(0).(pagehandler.ObjectInfo), nil, args.Error(2)
	}
	return args.Get(0).(pagehandler.ObjectInfo), args.Get(1).(io.ReadSeekCloser), args.Error(2)
}

func (m *MockService) Put(ctx context.Context, key string, headers pagehandler.ObjectHeaders, content io.Reader) (pagehandler.ObjectInfo, error) {
	args := m.Called(ctx, key, headers, content)
	return args.Get(0).(pagehandler.ObjectInfo), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func testRoutes() pagehandler.RouteTable {
	return pagehandler.RouteTable{
		"example2.com": {
			"/security.txt": "example2/security.txt",
			"/index.html":   "example2/index.html",
		},
		"crafty.social": {
			"/security/policy": "crafty/security-policy.txt",
		},
	}
}

func newHandler(service handlerhttp.Service) *handlerhttp.Handler {
	config := &handlerhttp.HandlerConfig{
		Routes: testRoutes(),
		Reads:  pagehandler.NewAllowList([]string{"/security/policy", "/index.html"}),
		Auth:   handlerhttp.AuthConfig{Secret: testSecret},
	}
	return handlerhttp.NewHandler(config, service)
}

func TestHandler_UnmappedRoute_404ForEveryMethod(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	requests := []struct {
		method string
		url    string
	}{
		{http.MethodGet, "http://evil.com/security.txt"},
		{http.MethodPut, "http://evil.com/anything"},
		{http.MethodDelete, "http://evil.com/anything"},
		{http.MethodPost, "http://evil.com/anything"},
		{http.MethodGet, "http://example2.com/unmapped.txt"},
		{http.MethodPut, "http://example2.com/unmapped.txt"},
	}

	for _, tc := range requests {
		req := httptest.NewRequest(tc.method, tc.url, nil)
		// Credentials must make no difference before resolution.
		req.Header.Set(handlerhttp.DefaultAuthHeader, testSecret)
		rec := httptest.NewRecorder()

		handler.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.url)
		assert.Equal(t, "Not Found", rec.Body.String())
	}

	// Resolution failure must short-circuit before any storage access.
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	service.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	service.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestHandler_MappedRoute_UnsupportedMethod_405(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	for _, method := range []string{http.MethodPost, http.MethodPatch, http.MethodHead} {
		req := httptest.NewRequest(method, "http://example2.com/security.txt", nil)
		rec := httptest.NewRecorder()

		handler.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "method %s", method)
		assert.Equal(t, "PUT, GET, DELETE", rec.Header().Get("Allow"))
	}

	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_Put_Authorized(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	service.On("Put", mock.Anything, "example2/security.txt",
		pagehandler.ObjectHeaders{ContentType: "text/plain"}, mock.Anything).
		Return(pagehandler.ObjectInfo{Key: "example2/security.txt"}, nil)

	req := httptest.NewRequest(http.MethodPut, "http://example2.com/security.txt", bytes.NewBufferString("abc"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(handlerhttp.DefaultAuthHeader, testSecret)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Put example2/security.txt successfully!", rec.Body.String())
	service.AssertExpectations(t)
}

func TestHandler_Put_AuthMismatch_403(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	secrets := []string{
		"",                             // missing header
		"wrongpassword",                // wrong value
		strings.ToUpper(testSecret),    // case difference
		testSecret + " ",               // trailing whitespace
		testSecret[:len(testSecret)-1], // truncated
	}

	for _, secret := range secrets {
		req := httptest.NewRequest(http.MethodPut, "http://example2.com/security.txt", bytes.NewBufferString("abc"))
		if secret != "" {
			req.Header.Set(handlerhttp.DefaultAuthHeader, secret)
		}
		rec := httptest.NewRecorder()

		handler.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "secret %q", secret)
		assert.Equal(t, "Forbidden", rec.Body.String())
	}

	service.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Delete_Authorized_204(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	service.On("Delete", mock.Anything, "example2/security.txt").Return(nil)

	// Idempotent: repeated deletes always answer 204.
	for range 2 {
		req := httptest.NewRequest(http.MethodDelete, "http://example2.com/security.txt", nil)
		req.Header.Set(handlerhttp.DefaultAuthHeader, testSecret)
		rec := httptest.NewRecorder()

		handler.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	}

	service.AssertExpectations(t)
}

func TestHandler_Delete_AuthMismatch_403(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "http://example2.com/security.txt", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	service.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestHandler_Get_PathNotAllowListed_403(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	// /security.txt is mapped but not allow-listed; the route existing is
	// not enough, and object existence plays no role.
	req := httptest.NewRequest(http.MethodGet, "http://example2.com/security.txt", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", rec.Body.String())
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_Get_AllowListKeysOnRequestPath(t *testing.T) {
	service := new(MockService)

	// The resolved storage key is allow-listed as a path string, but the
	// request path is not: authorization must use the request path and fail.
	config := &handlerhttp.HandlerConfig{
		Routes: pagehandler.RouteTable{
			"example2.com": {"/page": "allowed/page"},
		},
		Reads: pagehandler.NewAllowList([]string{"allowed/page"}),
		Auth:  handlerhttp.AuthConfig{Secret: testSecret},
	}
	handler := handlerhttp.NewHandler(config, service)

	req := httptest.NewRequest(http.MethodGet, "http://example2.com/page", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_Get_ObjectAbsent_404(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	service.On("Get", mock.Anything, "crafty/security-policy.txt").
		Return(pagehandler.ObjectInfo{}, nil, pagehandler.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "http://crafty.social/security/policy", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Object Not Found", rec.Body.String())
	service.AssertExpectations(t)
}

func TestHandler_Get_ObjectPresent_200(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	body := []byte("Contact: mailto:security@crafty.social\n")
	info := pagehandler.ObjectInfo{
		Key:          "crafty/security-policy.txt",
		ContentType:  "text/plain",
		CacheControl: "max-age=3600",
		Etag:         "deadbeef",
	}
	service.On("Get", mock.Anything, "crafty/security-policy.txt").
		Return(info, readSeekNopCloser{bytes.NewReader(body)}, nil)

	req := httptest.NewRequest(http.MethodGet, "http://crafty.social/security/policy", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.Bytes())
	assert.Equal(t, `"deadbeef"`, rec.Header().Get("ETag"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=3600", rec.Header().Get("Cache-Control"))
	service.AssertExpectations(t)
}

func TestHandler_Get_BackendFailure_500(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	service.On("Get", mock.Anything, "crafty/security-policy.txt").
		Return(pagehandler.ObjectInfo{}, nil, errors.New("backend unavailable"))

	req := httptest.NewRequest(http.MethodGet, "http://crafty.social/security/policy", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
}

func TestHandler_Put_BackendFailure_500(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	service.On("Put", mock.Anything, "example2/security.txt", mock.Anything, mock.Anything).
		Return(pagehandler.ObjectInfo{}, errors.New("backend unavailable"))

	req := httptest.NewRequest(http.MethodPut, "http://example2.com/security.txt", bytes.NewBufferString("abc"))
	req.Header.Set(handlerhttp.DefaultAuthHeader, testSecret)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_HostWithPortResolves(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	service.On("Delete", mock.Anything, "example2/security.txt").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "http://example2.com:8080/security.txt", nil)
	req.Header.Set(handlerhttp.DefaultAuthHeader, testSecret)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	service.AssertExpectations(t)
}

func TestHandler_AllowListIndependentOfObjectExistence(t *testing.T) {
	service := new(MockService)
	handler := newHandler(service)

	// PUT succeeds with the correct secret...
	service.On("Put", mock.Anything, "example2/security.txt", mock.Anything, mock.Anything).
		Return(pagehandler.ObjectInfo{Key: "example2/security.txt"}, nil)

	put := httptest.NewRequest(http.MethodPut, "http://example2.com/security.txt", bytes.NewBufferString("abc"))
	put.Header.Set(handlerhttp.DefaultAuthHeader, testSecret)
	putRec := httptest.NewRecorder()
	handler.Router().ServeHTTP(putRec, put)

	assert.Equal(t, http.StatusCreated, putRec.Code)
	assert.Contains(t, putRec.Body.String(), "example2/security.txt")

	// ...but a GET on the same path stays 403: the path is not on the
	// allow list, regardless of the object now existing.
	get := httptest.NewRequest(http.MethodGet, "http://example2.com/security.txt", nil)
	getRec := httptest.NewRecorder()
	handler.Router().ServeHTTP(getRec, get)

	assert.Equal(t, http.StatusForbidden, getRec.Code)
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
