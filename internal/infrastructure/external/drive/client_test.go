package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

type fakeItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     string `json:"size,omitempty"`
	parent   string
	data     []byte
}

// fakeDrive serves the subset of the Drive v3 files API the client uses
type fakeDrive struct {
	mu      sync.Mutex
	items   []*fakeItem
	nextID  int
	creates int
	fail    bool
}

var (
	parentRe = regexp.MustCompile(`'((?:[^'\\]|\\.)*)' in parents`)
	nameRe   = regexp.MustCompile(`name = '((?:[^'\\]|\\.)*)'`)
)

func unescape(s string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}

func (f *fakeDrive) add(parent, name, mimeType string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("id%d", f.nextID)
	item := &fakeItem{ID: id, Name: name, MimeType: mimeType, parent: parent, data: data}
	if mimeType != folderMimeType {
		item.Size = strconv.Itoa(len(data))
	}
	f.items = append(f.items, item)
	return id
}

func (f *fakeDrive) folder(parent, name string) string {
	return f.add(parent, name, folderMimeType, nil)
}

func (f *fakeDrive) find(parent, name string) *fakeItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.parent == parent && it.Name == name {
			return it
		}
	}
	return nil
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.fail {
		http.Error(w, `{"error": {"code": 500, "message": "backend error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		f.list(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/files":
		var req struct {
			Name     string   `json:"name"`
			MimeType string   `json:"mimeType"`
			Parents  []string `json:"parents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := f.add(req.Parents[0], req.Name, req.MimeType, nil)
		f.mu.Lock()
		f.creates++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/"):
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		var item *fakeItem
		f.mu.Lock()
		for _, it := range f.items {
			if it.ID == id {
				item = it
			}
		}
		f.mu.Unlock()
		if item == nil {
			http.Error(w, `{"error": {"code": 404, "message": "not found"}}`, http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			w.Header().Set("Content-Type", item.MimeType)
			_, _ = w.Write(item.data)
			return
		}
		_ = json.NewEncoder(w).Encode(item)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	parent := ""
	if m := parentRe.FindStringSubmatch(q); m != nil {
		parent = unescape(m[1])
	}
	name, byName := "", false
	if m := nameRe.FindStringSubmatch(q); m != nil {
		name, byName = unescape(m[1]), true
	}
	foldersOnly := strings.Contains(q, "mimeType = '"+folderMimeType+"'")

	var matched []*fakeItem
	f.mu.Lock()
	for _, it := range f.items {
		if it.parent != parent || (byName && it.Name != name) || (foldersOnly && it.MimeType != folderMimeType) {
			continue
		}
		matched = append(matched, it)
	}
	f.mu.Unlock()

	offset, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if size <= 0 {
		size = len(matched)
	}
	end := offset + size
	resp := map[string]interface{}{}
	if end < len(matched) {
		resp["nextPageToken"] = strconv.Itoa(end)
	} else {
		end = len(matched)
	}
	resp["files"] = matched[offset:end]
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, fake *fakeDrive, maxBytes int64) *Client {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return NewClient(svc, Config{RootFolderID: "root", MaxFileBytes: maxBytes}, zap.NewNop())
}

func TestClient_List(t *testing.T) {
	fake := &fakeDrive{}
	business := fake.folder("root", "La Glorieta Express")
	day := fake.folder(business, "2026-02-09")
	expenses := fake.folder(day, entity.FolderExpenses)
	bank := fake.folder(day, entity.FolderBank)
	fake.folder(day, "Varios")
	fake.add(expenses, "hielo.jpg", "image/jpeg", []byte("jpg"))
	fake.add(expenses, "gas.pdf", "application/pdf", []byte("%PDF"))
	fake.add(bank, "nequi.png", "image/png", []byte("png"))
	fake.add(day, "suelto.jpg", "image/jpeg", []byte("loose"))
	other := fake.folder("root", "Plaza Central")
	fake.folder(other, "2026-02-09")

	client := newTestClient(t, fake, 0)
	listing, err := client.List(context.Background(), "La Glorieta Express", "2026-02-09")

	require.NoError(t, err)
	assert.Len(t, listing, len(entity.EvidenceFolders))
	require.Len(t, listing[entity.FolderExpenses], 2)
	assert.Equal(t, "hielo.jpg", listing[entity.FolderExpenses][0].Name)
	assert.Equal(t, entity.FolderExpenses, listing[entity.FolderExpenses][0].Folder)
	assert.Equal(t, "image/jpeg", listing[entity.FolderExpenses][0].MimeType)
	assert.Equal(t, int64(3), listing[entity.FolderExpenses][0].Size)
	assert.Equal(t, "gas.pdf", listing[entity.FolderExpenses][1].Name)
	require.Len(t, listing[entity.FolderBank], 1)
	assert.Empty(t, listing[entity.FolderPOSClosings])

	require.Len(t, listing[entity.FolderOther], 1)
	assert.Equal(t, "suelto.jpg", listing[entity.FolderOther][0].Name)
	assert.Equal(t, entity.FolderOther, listing[entity.FolderOther][0].Folder)
}

func TestClient_List_Missing(t *testing.T) {
	fake := &fakeDrive{}
	fake.folder("root", "La Glorieta Express")
	client := newTestClient(t, fake, 0)

	listing, err := client.List(context.Background(), "La Glorieta Express", "2026-02-09")
	require.NoError(t, err)
	assert.Empty(t, listing)

	listing, err = client.List(context.Background(), "Desconocido", "2026-02-09")
	require.NoError(t, err)
	assert.Empty(t, listing)
}

func TestClient_List_Paginates(t *testing.T) {
	fake := &fakeDrive{}
	day := fake.folder(fake.folder("root", "Parque"), "2026-02-09")
	expenses := fake.folder(day, entity.FolderExpenses)
	for i := 0; i < listPageSize+20; i++ {
		fake.add(expenses, fmt.Sprintf("f%03d.jpg", i), "image/jpeg", []byte("x"))
	}

	listing, err := newTestClient(t, fake, 0).List(context.Background(), "Parque", "2026-02-09")

	require.NoError(t, err)
	assert.Len(t, listing[entity.FolderExpenses], listPageSize+20)
}

func TestClient_List_QuotesNames(t *testing.T) {
	fake := &fakeDrive{}
	fake.folder(fake.folder("root", "D'Leña"), "2026-02-09")

	listing, err := newTestClient(t, fake, 0).List(context.Background(), "D'Leña", "2026-02-09")

	require.NoError(t, err)
	assert.Len(t, listing, len(entity.EvidenceFolders))
}

func TestClient_List_Error(t *testing.T) {
	_, err := newTestClient(t, &fakeDrive{fail: true}, 0).List(context.Background(), "Parque", "2026-02-09")
	assert.Error(t, err)
}

func TestClient_Fetch(t *testing.T) {
	fake := &fakeDrive{}
	photo := fake.add("x", "hielo.jpg", "image/jpeg", []byte("0123456789"))
	sheet := fake.add("x", "caja.xlsx", "application/vnd.ms-excel", []byte("xls"))
	big := fake.add("x", "grande.jpg", "image/jpeg", make([]byte, 64))
	client := newTestClient(t, fake, 32)

	data, err := client.Fetch(context.Background(), entity.EvidenceFile{ID: photo, Name: "hielo.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	_, err = client.Fetch(context.Background(), entity.EvidenceFile{ID: sheet, Name: "caja.xlsx"})
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = client.Fetch(context.Background(), entity.EvidenceFile{ID: big, Name: "grande.jpg"})
	assert.ErrorContains(t, err, "too large")

	_, err = client.Fetch(context.Background(), entity.EvidenceFile{ID: "nope", Name: "nope.jpg"})
	assert.Error(t, err)
}

func TestClient_EnsureDateFolders(t *testing.T) {
	fake := &fakeDrive{}
	existing := fake.folder("root", "Parque")
	client := newTestClient(t, fake, 0)

	require.NoError(t, client.EnsureDateFolders(context.Background(), "Parque", "2026-02-11"))

	day := fake.find(existing, "2026-02-11")
	require.NotNil(t, day)
	for _, name := range entity.EvidenceFolders {
		assert.NotNil(t, fake.find(day.ID, name), name)
	}
	assert.Equal(t, 1+len(entity.EvidenceFolders), fake.creates)

	require.NoError(t, client.EnsureDateFolders(context.Background(), "Parque", "2026-02-11"))
	assert.Equal(t, 1+len(entity.EvidenceFolders), fake.creates)
}

func TestClient_EnsureDateFolders_Errors(t *testing.T) {
	fake := &fakeDrive{fail: true}
	assert.Error(t, newTestClient(t, fake, 0).EnsureDateFolders(context.Background(), "Parque", "2026-02-11"))

	srv := httptest.NewServer(&fakeDrive{})
	defer srv.Close()
	svc, err := drive.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	client := NewClient(svc, Config{}, zap.NewNop())
	assert.ErrorContains(t, client.EnsureDateFolders(context.Background(), "Parque", "2026-02-11"), "root folder")
}

func TestNewService_InvalidKey(t *testing.T) {
	_, err := NewService(context.Background(), "")
	assert.Error(t, err)

	_, err = NewService(context.Background(), "not-base64!!")
	assert.Error(t, err)

	_, err = NewService(context.Background(), `{"type": "authorized_user"}`)
	assert.Error(t, err)
}
