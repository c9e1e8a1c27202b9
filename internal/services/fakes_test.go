package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/purgo-board/apiserver/internal/store"
	"github.com/purgo-board/apiserver/types"
)

// memoryStore is an in-memory stand-in for store.Store. Commit methods
// apply all writes or none, like the real transactions.
type memoryStore struct {
	mu        sync.Mutex
	users     map[int]types.User
	posts     map[int]types.Post
	comments  map[int]types.Comment
	penalties map[int]types.PenaltyCounter
	limits    map[int]types.LimitWindow
	logs      []types.ModerationLogEntry
	nextID    int

	postCreates int
	commits     int
	commitErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     map[int]types.User{},
		posts:     map[int]types.Post{},
		comments:  map[int]types.Comment{},
		penalties: map[int]types.PenaltyCounter{},
		limits:    map[int]types.LimitWindow{},
	}
}

func (m *memoryStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) addUser(loginID string) types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := types.User{ID: m.id(), LoginID: loginID, Username: loginID + "-name", Email: loginID + "@example.com"}
	m.users[user.ID] = user
	m.penalties[user.ID] = types.PenaltyCounter{UserID: user.ID}
	m.limits[user.ID] = types.LimitWindow{UserID: user.ID, IsActive: true}
	return user
}

// users

func (m *memoryStore) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryStore) findUser(match func(types.User) bool) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryStore) GetByLoginID(_ context.Context, loginID string) (types.User, error) {
	return m.findUser(func(u types.User) bool { return u.LoginID == loginID })
}

func (m *memoryStore) GetByUsername(_ context.Context, username string) (types.User, error) {
	return m.findUser(func(u types.User) bool { return u.Username == username })
}

func (m *memoryStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	return m.findUser(func(u types.User) bool { return u.Email == email })
}

func (m *memoryStore) Update(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryStore) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryStore) CreateAccount(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.id()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	m.penalties[user.ID] = types.PenaltyCounter{UserID: user.ID, LastUpdate: user.CreatedAt}
	m.limits[user.ID] = types.LimitWindow{UserID: user.ID, IsActive: true}
	return user, nil
}

// standing

func (m *memoryStore) GetPenalty(_ context.Context, userID int) (types.PenaltyCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	penalty, ok := m.penalties[userID]
	if !ok {
		return types.PenaltyCounter{}, store.ErrNotFound
	}
	return penalty, nil
}

func (m *memoryStore) GetLimit(_ context.Context, userID int) (types.LimitWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit, ok := m.limits[userID]
	if !ok {
		return types.LimitWindow{}, store.ErrNotFound
	}
	return limit, nil
}

func (m *memoryStore) SetLimit(_ context.Context, limit types.LimitWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[limit.UserID] = limit
	return nil
}

func (m *memoryStore) penalty(userID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.penalties[userID].Count
}

// ListByUser serves the moderation log reader.
func (m *memoryStore) ListByUser(_ context.Context, userID int) ([]types.ModerationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ModerationLogEntry
	for _, entry := range m.logs {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *memoryStore) recordLocked(violations []types.ModerationLogEntry, commentID *int) {
	for _, entry := range violations {
		entry.ID = m.id()
		entry.CommentID = commentID
		m.logs = append(m.logs, entry)
		penalty := m.penalties[entry.UserID]
		penalty.Count++
		penalty.LastUpdate = entry.CreatedAt
		m.penalties[entry.UserID] = penalty
	}
}

func (m *memoryStore) CommitPost(_ context.Context, post types.Post, violations []types.ModerationLogEntry) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.commitErr != nil {
		return types.Post{}, m.commitErr
	}
	existing, ok := m.posts[post.ID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.ViewCount = existing.ViewCount
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = time.Now()
	m.posts[post.ID] = post
	m.recordLocked(violations, nil)
	return post, nil
}

func (m *memoryStore) CommitComment(_ context.Context, comment types.Comment, violations []types.ModerationLogEntry) (types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.commitErr != nil {
		return types.Comment{}, m.commitErr
	}
	if comment.ID == 0 {
		comment.ID = m.id()
		comment.CreatedAt = time.Now()
	} else if _, ok := m.comments[comment.ID]; !ok {
		return types.Comment{}, store.ErrNotFound
	}
	comment.UpdatedAt = time.Now()
	m.comments[comment.ID] = comment
	id := comment.ID
	m.recordLocked(violations, &id)
	return comment, nil
}

// postRepo adapts memoryStore to PostRepository; method names collide with
// the user repository.
type postRepo struct{ m *memoryStore }

func (p postRepo) Get(_ context.Context, id int) (types.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	post, ok := p.m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (p postRepo) GetDetail(_ context.Context, id int) (types.PostDetail, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	post, ok := p.m.posts[id]
	if !ok {
		return types.PostDetail{}, store.ErrNotFound
	}
	return p.detailLocked(post), nil
}

func (p postRepo) detailLocked(post types.Post) types.PostDetail {
	author := p.m.users[post.UserID]
	count := 0
	for _, c := range p.m.comments {
		if c.PostID == post.ID {
			count++
		}
	}
	return types.PostDetail{
		Post:           post,
		AuthorLoginID:  author.LoginID,
		AuthorUsername: author.Username,
		CommentCount:   count,
	}
}

func (p postRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.postCreates++
	post.ID = p.m.id()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	p.m.posts[post.ID] = post
	return post, nil
}

func (p postRepo) IncrementViews(_ context.Context, id int) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	post, ok := p.m.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	post.ViewCount++
	p.m.posts[id] = post
	return nil
}

func (p postRepo) Delete(_ context.Context, id int) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if _, ok := p.m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(p.m.posts, id)
	return nil
}

func (p postRepo) list(match func(types.Post) bool, offset, limit int) ([]types.PostDetail, int, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	var all []types.PostDetail
	for id := p.m.nextID; id > 0; id-- {
		post, ok := p.m.posts[id]
		if ok && match(post) {
			all = append(all, p.detailLocked(post))
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (p postRepo) List(_ context.Context, offset, limit int) ([]types.PostDetail, int, error) {
	return p.list(func(types.Post) bool { return true }, offset, limit)
}

func (p postRepo) Search(_ context.Context, keyword string, offset, limit int) ([]types.PostDetail, int, error) {
	return p.list(func(post types.Post) bool {
		return containsFold(post.Title, keyword) || containsFold(post.Content, keyword)
	}, offset, limit)
}

func (p postRepo) ListByUser(_ context.Context, userID, offset, limit int) ([]types.PostDetail, int, error) {
	return p.list(func(post types.Post) bool { return post.UserID == userID }, offset, limit)
}

type commentRepo struct{ m *memoryStore }

func (c commentRepo) ListByPost(_ context.Context, postID int) ([]types.Comment, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	var out []types.Comment
	for id := 1; id <= c.m.nextID; id++ {
		if comment, ok := c.m.comments[id]; ok && comment.PostID == postID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (c commentRepo) Get(_ context.Context, id int) (types.Comment, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	comment, ok := c.m.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return comment, nil
}

func (c commentRepo) Delete(_ context.Context, id int) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.m.comments, id)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	return "msg-1", p.err
}

type memoryImages struct {
	keys    []string
	deleted []string
}

func (m *memoryImages) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return io.ErrUnexpectedEOF
	}
	m.keys = append(m.keys, key)
	return nil
}

func (m *memoryImages) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryImages) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "https://cdn.example.com/")
	return key, ok && key != ""
}

func (m *memoryImages) URL(key string) string {
	return "https://cdn.example.com/" + key
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
