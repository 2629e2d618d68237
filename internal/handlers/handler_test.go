// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory fakes of the handler dependencies and
// request helpers shared by the handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devnote/internal/middleware"
	"devnote/internal/models"
	"devnote/internal/moderation"
	"devnote/internal/session"
	"devnote/internal/store"
)

var errFake = errors.New("fake store failure")

// fakeBlogs is an in-memory BlogRepository. Public queries filter on
// status the same way the SQL does.
type fakeBlogs struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.Blog
	order []uuid.UUID
	err   error
	now   time.Time
}

func newFakeBlogs() *fakeBlogs {
	return &fakeBlogs{
		byID: make(map[uuid.UUID]*models.Blog),
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// put stores a blog directly, bypassing the handlers.
func (f *fakeBlogs) put(b models.Blog) *models.Blog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Slug == "" {
		b.Slug = "post-" + b.ID.String()[:8]
	}
	if b.Status == models.BlogStatusApproved && b.PublishedAt == nil {
		t := f.now
		b.PublishedAt = &t
	}
	f.byID[b.ID] = &b
	f.order = append(f.order, b.ID)
	cp := b
	return &cp
}

func (f *fakeBlogs) get(id uuid.UUID) *models.Blog {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (f *fakeBlogs) Create(_ context.Context, b *models.Blog) (*models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *b
	cp.CreatedAt, cp.UpdatedAt = f.now, f.now
	return f.put(cp), nil
}

func (f *fakeBlogs) Update(_ context.Context, b *models.Blog) (*models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[b.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cur.Title, cur.Slug, cur.Excerpt, cur.Content = b.Title, b.Slug, b.Excerpt, b.Content
	cur.IsDraft, cur.WordCount, cur.ReadTime = b.IsDraft, b.WordCount, b.ReadTime
	f.setStatus(cur, b.Status)
	cp := *cur
	return &cp, nil
}

func (f *fakeBlogs) UpdateStatus(_ context.Context, id uuid.UUID, status models.BlogStatus) (*models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cur.IsDraft = status == models.BlogStatusDraft
	f.setStatus(cur, status)
	cp := *cur
	return &cp, nil
}

func (f *fakeBlogs) setStatus(b *models.Blog, status models.BlogStatus) {
	b.Status = status
	b.UpdatedAt = f.now
	if status == models.BlogStatusApproved && b.PublishedAt == nil {
		t := f.now
		b.PublishedAt = &t
	}
}

func (f *fakeBlogs) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func (f *fakeBlogs) FindByID(_ context.Context, id uuid.UUID) (*models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.get(id), nil
}

func (f *fakeBlogs) FindPublicBySlug(_ context.Context, slug string) (*models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, b := range f.all() {
		if b.Slug == slug && b.IsPublic() {
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeBlogs) ListPublic(_ context.Context, limit, offset int) ([]models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return paginate(f.filter(func(b models.Blog) bool { return b.IsPublic() }), limit, offset), nil
}

func (f *fakeBlogs) Search(_ context.Context, query string, limit int) ([]models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := strings.ToLower(query)
	return paginate(f.filter(func(b models.Blog) bool {
		return b.IsPublic() && strings.Contains(strings.ToLower(b.Title+" "+b.Content), q)
	}), limit, 0), nil
}

func (f *fakeBlogs) ListByAuthor(_ context.Context, authorID uuid.UUID) ([]models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.filter(func(b models.Blog) bool { return b.AuthorID == authorID }), nil
}

func (f *fakeBlogs) ListByStatus(_ context.Context, status models.BlogStatus, limit, offset int) ([]models.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return paginate(f.filter(func(b models.Blog) bool { return b.Status == status }), limit, offset), nil
}

func (f *fakeBlogs) CountByStatus(context.Context) (map[models.BlogStatus]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := make(map[models.BlogStatus]int, len(models.BlogStatuses))
	for _, s := range models.BlogStatuses {
		counts[s] = 0
	}
	for _, b := range f.all() {
		counts[b.Status]++
	}
	return counts, nil
}

// all returns live blogs in insertion order.
func (f *fakeBlogs) all() []models.Blog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Blog
	for _, id := range f.order {
		if b, ok := f.byID[id]; ok {
			out = append(out, *b)
		}
	}
	return out
}

func (f *fakeBlogs) filter(keep func(models.Blog) bool) []models.Blog {
	var out []models.Blog
	for _, b := range f.all() {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func paginate(blogs []models.Blog, limit, offset int) []models.Blog {
	if offset >= len(blogs) {
		return nil
	}
	blogs = blogs[offset:]
	if limit < len(blogs) {
		blogs = blogs[:limit]
	}
	return blogs
}

// fakeAudit records entries in memory.
type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (f *fakeAudit) Log(_ context.Context, e models.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
}

func (f *fakeAudit) Recent(_ context.Context, limit int) ([]models.AuditEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditEntry, len(f.entries))
	copy(out, f.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAudit) ForBlog(_ context.Context, blogID uuid.UUID) ([]models.AuditEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].BlogID == blogID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeAudit) last(t *testing.T) models.AuditEntry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		t.Fatal("no audit entries recorded")
	}
	return f.entries[len(f.entries)-1]
}

// fakeFeedCache is an in-memory FeedCache with generations that counts
// invalidations.
type fakeFeedCache struct {
	mu            sync.Mutex
	gen           int64
	docs          map[string][]byte
	invalidations int
}

func newFakeFeedCache() *fakeFeedCache {
	return &fakeFeedCache{docs: make(map[string][]byte)}
}

func (f *fakeFeedCache) docKey(gen int64, key string) string {
	return strconv.FormatInt(gen, 10) + ":" + key
}

// current returns the document cached for key in the current generation.
func (f *fakeFeedCache) current(key string) ([]byte, bool) {
	doc, _, ok := f.Get(context.Background(), key)
	return doc, ok
}

func (f *fakeFeedCache) Get(_ context.Context, key string) ([]byte, int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[f.docKey(f.gen, key)]
	return doc, f.gen, ok
}

func (f *fakeFeedCache) Set(_ context.Context, key string, gen int64, doc []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[f.docKey(gen, key)] = doc
}

func (f *fakeFeedCache) InvalidateAll(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.invalidations++
}

// fakeUsers stores users with plain-text passwords.
type fakeUsers struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.User
	passwords map[uuid.UUID]string
	err       error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:      make(map[uuid.UUID]*models.User),
		passwords: make(map[uuid.UUID]string),
	}
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Create(_ context.Context, email, password, displayName string, role models.Role) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: email, DisplayName: displayName, Role: role}
	f.byID[u.ID] = u
	f.passwords[u.ID] = password
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, userID uuid.UUID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[userID].TOTPSecret = &secret
	return nil
}

func (f *fakeUsers) EnableTOTP(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[userID].TOTPEnabled = true
	return nil
}

func (f *fakeUsers) CheckPassword(user *models.User, password string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwords[user.ID] == password
}

// fakeSessions records session calls.
type fakeSessions struct {
	created   []*session.Data
	updated   []*session.Data
	destroyed int
	err       error
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, data)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "test-session"})
	return "test-session", nil
}

func (f *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, data)
	return nil
}

func (f *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	f.destroyed++
	return f.err
}

// testModerator returns a moderator using the built-in rules.
func testModerator(t *testing.T) *moderation.Moderator {
	t.Helper()
	scorer, err := moderation.NewScorer(moderation.DefaultRules())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return moderation.NewModerator(scorer)
}

// testSession creates a session.Data for testing.
func testSession(role models.Role, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       string(role) + "@devnote.test",
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
	}
}

// newJSONRequest builds a request with an optional JSON body and session.
func newJSONRequest(t *testing.T, method, target string, body any, sess *session.Data) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	return req
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeResponse decodes a JSON response body into T.
func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// sampleBlog returns an approved post owned by authorID.
func sampleBlog(authorID uuid.UUID, status models.BlogStatus) models.Blog {
	return models.Blog{
		AuthorID:  authorID,
		Title:     "Caching strategies",
		Excerpt:   "A look at read-through caches.",
		Content:   "This is a normal, well-written technical article about caching strategies.",
		IsDraft:   status == models.BlogStatusDraft,
		Status:    status,
		WordCount: 10,
		ReadTime:  1,
	}
}
