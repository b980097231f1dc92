package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/blobstore"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	assetsrepo "github.com/dmitrijs2005/gophgallery/internal/server/repositories/assets"
	usersrepo "github.com/dmitrijs2005/gophgallery/internal/server/repositories/users"
)

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User

	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrDuplicateUsername
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	f.byName[u.UserName] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

// --- assets ---

type fakeAssetsRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Asset
	seq  int
	// order keeps insertion order for FindAll.
	order map[string]int

	insertErr   error
	findErr     error
	findAllErr  error
	deleteErr   error
	insertCalls int
}

func newFakeAssetsRepo() *fakeAssetsRepo {
	return &fakeAssetsRepo{rows: map[string]*models.Asset{}, order: map[string]int{}}
}

func (f *fakeAssetsRepo) put(a *models.Asset) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	f.rows[a.ID] = &cp
	f.seq++
	f.order[a.ID] = f.seq
}

func (f *fakeAssetsRepo) Insert(ctx context.Context, a *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.put(a)
	return nil
}

func (f *fakeAssetsRepo) InsertMany(ctx context.Context, list []*models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, a := range list {
		f.put(a)
	}
	return nil
}

func (f *fakeAssetsRepo) FindByID(ctx context.Context, id string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssetsRepo) sorted(keep func(*models.Asset) bool) []*models.Asset {
	var out []*models.Asset
	for _, a := range f.rows {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return f.order[out[i].ID] < f.order[out[j].ID] })
	return out
}

func (f *fakeAssetsRepo) FindAllByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(a *models.Asset) bool { return a.OwnerID == ownerID }), nil
}

func (f *fakeAssetsRepo) FindAll(ctx context.Context) ([]*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findAllErr != nil {
		return nil, f.findAllErr
	}
	return f.sorted(func(*models.Asset) bool { return true }), nil
}

func (f *fakeAssetsRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range f.rows {
		if !seen[a.Category] {
			seen[a.Category] = true
			out = append(out, a.Category)
		}
	}
	return out, nil
}

func (f *fakeAssetsRepo) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAssetsRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// --- repository manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	a *fakeAssetsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), a: newFakeAssetsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context) error { return nil }
func (m *fakeRepoManager) Users() usersrepo.Repository         { return m.u }
func (m *fakeRepoManager) Assets() assetsrepo.Repository       { return m.a }
func (m *fakeRepoManager) Close(context.Context) error         { return nil }

// --- remote blob store ---

// fakeRemoteStore behaves like an object store: Put hands out a delete key
// and Delete needs it.
type fakeRemoteStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr    error
	deleteErr error
	puts      int
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{objects: map[string][]byte{}}
}

func (s *fakeRemoteStore) Put(ctx context.Context, data []byte, contentType string) (blobstore.Blob, error) {
	if _, _, err := blobstore.NormalizeContentType(contentType); err != nil {
		return blobstore.Blob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return blobstore.Blob{}, s.putErr
	}
	key := uuid.NewString()
	s.objects[key] = append([]byte(nil), data...)
	return blobstore.Blob{Locator: "https://cdn.example/" + key, DeleteKey: key}, nil
}

func (s *fakeRemoteStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.objects {
		if "https://cdn.example/"+k == locator {
			return io.NopCloser(bytes.NewReader(v)), nil
		}
	}
	return nil, common.ErrBlobNotFound
}

func (s *fakeRemoteStore) Delete(ctx context.Context, locator, deleteKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if deleteKey == "" {
		return errors.New("missing delete key")
	}
	if _, ok := s.objects[deleteKey]; !ok {
		return common.ErrBlobNotFound
	}
	delete(s.objects, deleteKey)
	return nil
}

func (s *fakeRemoteStore) Exists(ctx context.Context, locator string) (bool, error) {
	rc, err := s.Open(ctx, locator)
	if err != nil {
		return false, nil
	}
	rc.Close()
	return true, nil
}

func (s *fakeRemoteStore) Kind() blobstore.Kind { return blobstore.KindRemote }

// --- config ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	return cfg
}

var (
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'e', 'g'}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)
