package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
)

const testSecret = "test-secret"

// ---- fakes ----

type fakeUsers struct {
	regErr   error
	loginOut string
	loginErr error

	gotUser, gotPass string
}

func (f *fakeUsers) Register(ctx context.Context, username, password string) (*models.User, error) {
	f.gotUser, f.gotPass = username, password
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.User{ID: "u1", UserName: username}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (string, error) {
	return f.loginOut, f.loginErr
}

type fakeAssets struct {
	owner       string
	upload      services.Upload
	uploads     []services.Upload
	category    string
	description string
	deletedID   string

	err        error
	list       []*models.Asset
	categories []string
}

func (f *fakeAssets) Ingest(ctx context.Context, ownerID string, u services.Upload, category, description string) (*models.Asset, error) {
	f.owner, f.upload, f.category, f.description = ownerID, u, category, description
	if f.err != nil {
		return nil, f.err
	}
	return &models.Asset{ID: "a1", OwnerID: ownerID, BlobLocator: "uploads/x.jpg", Category: services.NormalizeCategory(category), Description: description}, nil
}

func (f *fakeAssets) IngestMany(ctx context.Context, ownerID string, files []services.Upload, category, description string) ([]*models.Asset, error) {
	f.owner, f.uploads, f.category, f.description = ownerID, files, category, description
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.Asset, len(files))
	for i := range files {
		out[i] = &models.Asset{ID: "a", OwnerID: ownerID, Category: "default", GroupID: "g"}
	}
	return out, nil
}

func (f *fakeAssets) Delete(ctx context.Context, ownerID, assetID string) error {
	f.owner, f.deletedID = ownerID, assetID
	return f.err
}

func (f *fakeAssets) ListByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error) {
	f.owner = ownerID
	return f.list, f.err
}

func (f *fakeAssets) ListCategories(ctx context.Context) ([]string, error) {
	return f.categories, f.err
}

type fakeSweeper struct {
	report *services.SweepReport
	err    error
	calls  int
}

func (f *fakeSweeper) Sweep(ctx context.Context) (*services.SweepReport, error) {
	f.calls++
	return f.report, f.err
}

// ---- helpers ----

func newTestServer(t *testing.T, u *fakeUsers, a *fakeAssets, s *fakeSweeper, mc *metrics.Collector) http.Handler {
	t.Helper()
	return NewServer(Options{
		Logger:         logging.NopLogger{},
		Gate:           auth.NewGate(testSecret),
		Users:          u,
		Assets:         a,
		Sweeper:        s,
		Metrics:        mc,
		MaxUploadBytes: 1 << 20,
	}).Handler()
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

// ---- tests ----

func TestRoot(t *testing.T) {
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, &fakeSweeper{}, nil)

	rec := do(t, h, http.MethodGet, "/", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend is running!", rec.Body.String())
}

func TestAuth_ProtectedRoutesRequireToken(t *testing.T) {
	a := &fakeAssets{}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/upload"},
		{http.MethodPost, "/upload-multiple"},
		{http.MethodGet, "/images"},
		{http.MethodDelete, "/delete-file/abc"},
		{http.MethodDelete, "/clean-database"},
		{http.MethodGet, "/protected"},
	}
	for _, r := range routes {
		rec := do(t, h, r.method, r.path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
		assert.Contains(t, rec.Body.String(), "no token", r.path)

		rec = do(t, h, r.method, r.path, "garbage", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
		assert.Contains(t, rec.Body.String(), "invalid token", r.path)
	}
	assert.Empty(t, a.owner)
}

func TestAuth_ExpiredToken(t *testing.T) {
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, &fakeSweeper{}, nil)
	expired, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/images", expired, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuth_WrongSecret(t *testing.T) {
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, &fakeSweeper{}, nil)
	forged, err := auth.GenerateToken("u1", []byte("other"), time.Hour)
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/images", forged, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtected_EchoesPrincipal(t *testing.T) {
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, &fakeSweeper{}, nil)

	rec := do(t, h, http.MethodGet, "/protected", token(t, "u-42"), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ProtectedResponse](t, rec)
	assert.Equal(t, "u-42", got.User["userId"])
}

func TestSignup(t *testing.T) {
	u := &fakeUsers{}
	h := newTestServer(t, u, &fakeAssets{}, &fakeSweeper{}, nil)

	rec := doJSON(t, h, http.MethodPost, "/signup", "", CredentialsRequest{Username: "alice", Password: "secret123"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", u.gotUser)
	assert.Equal(t, "secret123", u.gotPass)

	u.regErr = common.ErrDuplicateUsername
	rec = doJSON(t, h, http.MethodPost, "/signup", "", CredentialsRequest{Username: "alice", Password: "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignup_MissingFields(t *testing.T) {
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, &fakeSweeper{}, nil)

	rec := doJSON(t, h, http.MethodPost, "/signup", "", CredentialsRequest{Username: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/signup", "", strings.NewReader("{not json"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	u := &fakeUsers{loginOut: "tok"}
	h := newTestServer(t, u, &fakeAssets{}, &fakeSweeper{}, nil)

	rec := doJSON(t, h, http.MethodPost, "/login", "", CredentialsRequest{Username: "alice", Password: "p"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", decode[LoginResponse](t, rec).Token)

	u.loginErr = common.ErrInvalidCredentials
	rec = doJSON(t, h, http.MethodPost, "/login", "", CredentialsRequest{Username: "alice", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "tok\"")
}

func TestUpload_PassesFormToService(t *testing.T) {
	a := &fakeAssets{}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	body, ct := multipartBody(t, map[string]string{"category": "Nature", "description": "lake"},
		filePart{field: "file", name: "a.jpg", contentType: "image/jpeg", data: jpegBytes})
	rec := do(t, h, http.MethodPost, "/upload", token(t, "u1"), body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "u1", a.owner)
	assert.Equal(t, "Nature", a.category)
	assert.Equal(t, "lake", a.description)
	assert.Equal(t, "image/jpeg", a.upload.ContentType)
	assert.Equal(t, jpegBytes, a.upload.Data)

	got := decode[map[string]any](t, rec)
	assert.Equal(t, "nature", got["category"])
	assert.Equal(t, "uploads/x.jpg", got["fileUrl"])
	assert.Equal(t, "File uploaded successfully!", got["message"])
}

func TestUpload_NoFile(t *testing.T) {
	a := &fakeAssets{}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	body, ct := multipartBody(t, map[string]string{"category": "x"})
	rec := do(t, h, http.MethodPost, "/upload", token(t, "u1"), body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/upload", token(t, "u1"), nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, a.owner)
}

func TestUpload_TooLarge(t *testing.T) {
	a := &fakeAssets{}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	body, ct := multipartBody(t, nil, filePart{field: "file", name: "big.png", contentType: "image/png", data: make([]byte, 1<<20+1)})
	rec := do(t, h, http.MethodPost, "/upload", token(t, "u1"), body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, a.owner)
}

func TestUpload_ServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{common.ErrUnsupportedContentType, http.StatusBadRequest},
		{common.ErrBlobWriteFailed, http.StatusBadGateway},
		{common.ErrMetadataWriteFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		h := newTestServer(t, &fakeUsers{}, &fakeAssets{err: tt.err}, &fakeSweeper{}, nil)
		body, ct := multipartBody(t, nil, filePart{field: "file", name: "a.gif", contentType: "image/gif", data: []byte("GIF")})
		rec := do(t, h, http.MethodPost, "/upload", token(t, "u1"), body, ct)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestUploadMultiple(t *testing.T) {
	a := &fakeAssets{}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	body, ct := multipartBody(t, map[string]string{"category": "Trips"},
		filePart{field: "files", name: "1.jpg", contentType: "image/jpeg", data: jpegBytes},
		filePart{field: "files", name: "2.png", contentType: "image/png", data: pngBytes},
	)
	rec := do(t, h, http.MethodPost, "/upload-multiple", token(t, "u1"), body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, a.uploads, 2)
	assert.Equal(t, "image/png", a.uploads[1].ContentType)
	assert.Equal(t, "Trips", a.category)
	assert.Len(t, decode[UploadManyResponse](t, rec).Files, 2)
}

func TestUploadMultiple_NoFiles(t *testing.T) {
	a := &fakeAssets{err: common.ErrNoFilesProvided}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	body, ct := multipartBody(t, map[string]string{"category": "x"})
	rec := do(t, h, http.MethodPost, "/upload-multiple", token(t, "u1"), body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, a.uploads)
}

func TestImages_ScopedToPrincipal(t *testing.T) {
	a := &fakeAssets{list: []*models.Asset{{ID: "a1", OwnerID: "u7", Category: "c"}}}
	h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

	rec := do(t, h, http.MethodGet, "/images", token(t, "u7"), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u7", a.owner)
	assert.Len(t, decode[[]models.Asset](t, rec), 1)
}

func TestCategories_NoAuthNeeded(t *testing.T) {
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{categories: []string{"city", "nature"}}, &fakeSweeper{}, nil)

	rec := do(t, h, http.MethodGet, "/categories", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"city", "nature"}, decode[[]string](t, rec))
}

func TestDeleteFile(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrorForbidden, http.StatusForbidden},
		{common.ErrBlobDeleteFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		a := &fakeAssets{err: tt.err}
		h := newTestServer(t, &fakeUsers{}, a, &fakeSweeper{}, nil)

		rec := do(t, h, http.MethodDelete, "/delete-file/a-1", token(t, "u1"), nil, "")
		assert.Equal(t, tt.code, rec.Code)
		assert.Equal(t, "a-1", a.deletedID)
		assert.Equal(t, "u1", a.owner)
	}
}

func TestCleanDatabase(t *testing.T) {
	s := &fakeSweeper{report: &services.SweepReport{Checked: 3, Removed: 1}}
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, s, nil)

	rec := do(t, h, http.MethodDelete, "/clean-database", token(t, "u1"), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[CleanResponse](t, rec)
	assert.Equal(t, 1, got.Report.Removed)
	assert.Equal(t, 1, s.calls)
}

func TestCleanDatabase_PartialFailureStillReports(t *testing.T) {
	s := &fakeSweeper{report: &services.SweepReport{Checked: 2}, err: errors.New("asset x: db down")}
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, s, nil)

	rec := do(t, h, http.MethodDelete, "/clean-database", token(t, "u1"), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCleanDatabase_Unsupported(t *testing.T) {
	s := &fakeSweeper{err: common.ErrSweepUnsupported}
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{}, s, nil)

	rec := do(t, h, http.MethodDelete, "/clean-database", token(t, "u1"), nil, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMetrics_RecordsRouteTemplates(t *testing.T) {
	mc := metrics.NewCollector()
	h := newTestServer(t, &fakeUsers{}, &fakeAssets{err: common.ErrorNotFound}, &fakeSweeper{}, mc)

	do(t, h, http.MethodDelete, "/delete-file/a-1", token(t, "u1"), nil, "")
	do(t, h, http.MethodGet, "/images", "", nil, "")

	assert.Equal(t, 1.0, testutil.ToFloat64(mc.HTTPRequestsTotal.WithLabelValues("DELETE", "/delete-file/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.HTTPRequestsTotal.WithLabelValues("GET", "/images", "401")))

	rec := do(t, h, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gophgallery_http_requests_total")
}
