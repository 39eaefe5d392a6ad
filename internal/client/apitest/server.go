// Package apitest runs an in-process diary API for tests. It keeps users,
// tokens and encrypted posts in memory and speaks the same JSON envelope
// and routes as the real server.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const refreshCookie = "refresh_token"

var signingKey = []byte("apitest-signing-key")

type user struct {
	account  models.Account
	password string
}

type signUpTicket struct {
	pin       string
	name      string
	email     string
	password  string
	avatarURL *string
}

type session struct {
	id        uuid.UUID
	userID    int64
	userAgent string
	lastSeen  time.Time
}

type Server struct {
	*httptest.Server

	// AccessTTL is the lifetime of issued access tokens.
	AccessTTL time.Duration

	mu       sync.Mutex
	nextUser int64
	nextPost int64
	users    map[string]*user     // by email
	access   map[string]uuid.UUID // access token -> session
	refresh  map[string]uuid.UUID // refresh cookie -> session
	sessions map[uuid.UUID]*session
	tickets  map[string]signUpTicket        // sign-up token key -> ticket
	resets   map[string]string              // email -> password token id
	posts    map[int64]models.EncryptedPost // by post id
	owners   map[int64]int64                // post id -> user id
	calls    map[string]int
}

// New starts the server. It is closed with t.Cleanup by the caller.
func New() *Server {
	s := &Server{
		AccessTTL: 15 * time.Minute,
		users:     make(map[string]*user),
		access:    make(map[string]uuid.UUID),
		refresh:   make(map[string]uuid.UUID),
		sessions:  make(map[uuid.UUID]*session),
		tickets:   make(map[string]signUpTicket),
		resets:    make(map[string]string),
		posts:     make(map[int64]models.EncryptedPost),
		owners:    make(map[int64]int64),
		calls:     make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.count)

	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.authed(s.logout)).Methods(http.MethodPost)
	r.HandleFunc("/auth/token/access", s.refreshToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/token/sign_up", s.signUpToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/token/password", s.passwordToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/token", s.authed(s.listSessions)).Methods(http.MethodGet)
	r.HandleFunc("/auth/token/{uuid}", s.authed(s.revokeSession)).Methods(http.MethodDelete)

	r.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/me", s.authed(s.me)).Methods(http.MethodGet)
	r.HandleFunc("/users/password", s.resetPassword).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.authed(s.updateUser)).Methods(http.MethodPatch)

	r.HandleFunc("/posts", s.authed(s.listPosts)).Methods(http.MethodGet)
	r.HandleFunc("/posts", s.authed(s.createPost)).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id:[0-9]+}", s.authed(s.getPost)).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", s.authed(s.updatePost)).Methods(http.MethodPatch)
	r.HandleFunc("/posts/{id:[0-9]+}", s.authed(s.deletePost)).Methods(http.MethodDelete)
	r.HandleFunc("/summarized_posts", s.authed(s.listSummaries)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Calls returns how many times "METHOD /route/template" was hit.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

// Pin returns the pin that would have been e-mailed for a sign-up ticket.
func (s *Server) Pin(ticket string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[ticket].pin
}

// ResetTokenID returns the password token id that would have been e-mailed.
func (s *Server) ResetTokenID(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets[email]
}

// ExpireAccessTokens revokes every issued access token. Refresh cookies
// stay valid, so clients can heal.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
}

// Account returns the stored account for email.
func (s *Server) Account(email string) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return models.Account{}, false
	}
	return u.account, true
}

// PasswordHash returns the stored password hash for email.
func (s *Server) PasswordHash(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u.password
	}
	return ""
}

// AddUser creates an account directly, bypassing sign-up.
func (s *Server) AddUser(email, passwordHash, publicKey string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	acc := models.Account{ID: s.nextUser, Email: email, Name: email, PublicKey: publicKey}
	s.users[email] = &user{account: acc, password: passwordHash}
	return acc
}

// StorePost inserts an already encrypted post for the owner of email.
func (s *Server) StorePost(email string, p models.PostBody) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPost(s.users[email].account.ID, p)
}

// Post returns a stored post as the server sees it.
func (s *Server) Post(id int64) (models.EncryptedPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return p, ok
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.mu.Lock()
		s.calls[r.Method+" "+route]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, sess *session, u *user)

// authed resolves the bearer token. Must be called with s.mu unlocked; the
// handler runs with s.mu held.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		sid, ok := s.access[token]
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sess := s.sessions[sid]
		sess.lastSeen = time.Now()
		h(w, r, sess, s.userByID(sess.userID))
	}
}

func (s *Server) userByID(id int64) *user {
	for _, u := range s.users {
		if u.account.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) issueAccess(sess *session) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": sess.userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.AccessTTL).Unix(),
		"jti":     uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	s.access[token] = sess.id
	return token
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body models.LoginBody
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[body.Email]
	if !ok || u.password != body.Password {
		writeError(w, http.StatusNotFound, "incorrect email or password")
		return
	}

	sess := &session{id: uuid.New(), userID: u.account.ID, userAgent: r.UserAgent(), lastSeen: time.Now()}
	s.sessions[sess.id] = sess

	cookie := uuid.NewString()
	s.refresh[cookie] = sess.id
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: cookie, Path: "/", HttpOnly: true})

	writeData(w, http.StatusOK, s.issueAccess(sess))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, sess *session, _ *user) {
	s.dropSession(sess.id)
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "", Path: "/", MaxAge: -1})
	writeData(w, http.StatusOK, true)
}

func (s *Server) dropSession(id uuid.UUID) {
	delete(s.sessions, id)
	for k, v := range s.access {
		if v == id {
			delete(s.access, k)
		}
	}
	for k, v := range s.refresh {
		if v == id {
			delete(s.refresh, k)
		}
	}
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no refresh token")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sid, ok := s.refresh[c.Value]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	writeData(w, http.StatusOK, s.issueAccess(s.sessions[sid]))
}

func (s *Server) signUpToken(w http.ResponseWriter, r *http.Request) {
	var body models.SignUpTokenBody
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[body.Email]; exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	key := uuid.NewString()
	s.tickets[key] = signUpTicket{
		pin:       strconv.Itoa(100000 + len(s.tickets)),
		name:      body.Name,
		email:     body.Email,
		password:  body.Password,
		avatarURL: body.AvatarURL,
	}
	writeData(w, http.StatusOK, key)
}

func (s *Server) passwordToken(w http.ResponseWriter, r *http.Request) {
	var body models.PasswordTokenBody
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[body.Email]; !ok {
		writeError(w, http.StatusNotFound, "cannot find the account")
		return
	}
	s.resets[body.Email] = uuid.NewString()
	writeData(w, http.StatusOK, true)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request, sess *session, _ *user) {
	out := []models.ActiveSession{}
	for _, other := range s.sessions {
		if other.userID != sess.userID {
			continue
		}
		ua := other.userAgent
		out = append(out, models.ActiveSession{
			IsMine:         other.id == sess.id,
			TokenUUID:      other.id,
			UserAgent:      &ua,
			LastAccessedAt: other.lastSeen.Unix(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenUUID.String() < out[j].TokenUUID.String() })
	writeData(w, http.StatusOK, out)
}

func (s *Server) revokeSession(w http.ResponseWriter, r *http.Request, sess *session, _ *user) {
	id, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token uuid")
		return
	}
	target, ok := s.sessions[id]
	if !ok || target.userID != sess.userID {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.dropSession(id)
	writeData(w, http.StatusOK, true)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body models.CreateUserBody
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[body.TokenKey]
	if !ok {
		writeError(w, http.StatusNotFound, "sign up token not found")
		return
	}
	if t.pin != body.TokenPin {
		writeError(w, http.StatusUnauthorized, "pin mismatch")
		return
	}
	if body.UserPublicKey == "" {
		writeError(w, http.StatusBadRequest, "public key required")
		return
	}
	delete(s.tickets, body.TokenKey)

	s.nextUser++
	s.users[t.email] = &user{
		account: models.Account{
			ID:        s.nextUser,
			Email:     t.email,
			Name:      t.name,
			PublicKey: body.UserPublicKey,
			AvatarURL: t.avatarURL,
		},
		password: t.password,
	}
	writeData(w, http.StatusOK, true)
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, _ *session, u *user) {
	writeData(w, http.StatusOK, u.account)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body models.ResetPasswordBody
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[body.Email]
	if !ok || s.resets[body.Email] == "" || s.resets[body.Email] != body.TokenID {
		writeError(w, http.StatusNotFound, "password token not found")
		return
	}
	if body.TemporaryPassword == "" {
		writeError(w, http.StatusUnauthorized, "temporary password mismatch")
		return
	}
	delete(s.resets, body.Email)
	u.password = body.NewPassword
	writeData(w, http.StatusOK, true)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, _ *session, u *user) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if id != u.account.ID {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var body models.UpdateUserBody
	if !decode(w, r, &body) {
		return
	}
	if body.Name != nil {
		u.account.Name = *body.Name
	}
	if body.Password != nil {
		u.password = *body.Password
	}
	if body.AvatarURL != nil {
		u.account.AvatarURL = body.AvatarURL
	}
	writeData(w, http.StatusOK, true)
}

func (s *Server) insertPost(owner int64, p models.PostBody) int64 {
	s.nextPost++
	s.posts[s.nextPost] = models.EncryptedPost{
		ID:        s.nextPost,
		Title:     p.Title,
		Content:   p.Content,
		Date:      p.Date,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.owners[s.nextPost] = owner
	return s.nextPost
}

func (s *Server) ownPosts(userID int64) []models.EncryptedPost {
	var out []models.EncryptedPost
	for id, p := range s.posts {
		if s.owners[id] == userID {
			out = append(out, p)
		}
	}
	// newest date first, then id, like the real listing
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) listPosts(w http.ResponseWriter, _ *http.Request, _ *session, u *user) {
	out := s.ownPosts(u.account.ID)
	if out == nil {
		out = []models.EncryptedPost{}
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) listSummaries(w http.ResponseWriter, _ *http.Request, _ *session, u *user) {
	out := []models.EncryptedSummary{}
	for _, p := range s.ownPosts(u.account.ID) {
		out = append(out, models.EncryptedSummary{ID: p.ID, Title: p.Title, Date: p.Date})
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request, _ *session, u *user) {
	var body models.PostBody
	if !decode(w, r, &body) {
		return
	}
	writeData(w, http.StatusOK, s.insertPost(u.account.ID, body))
}

func (s *Server) postOf(w http.ResponseWriter, r *http.Request, u *user) (int64, bool) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if _, ok := s.posts[id]; !ok || s.owners[id] != u.account.ID {
		writeError(w, http.StatusNotFound, "post not found")
		return 0, false
	}
	return id, true
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request, _ *session, u *user) {
	if id, ok := s.postOf(w, r, u); ok {
		writeData(w, http.StatusOK, s.posts[id])
	}
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request, _ *session, u *user) {
	id, ok := s.postOf(w, r, u)
	if !ok {
		return
	}
	var body models.PostUpdateBody
	if !decode(w, r, &body) {
		return
	}
	p := s.posts[id]
	if body.Title != nil {
		p.Title = *body.Title
	}
	if body.Date != nil {
		p.Date = *body.Date
	}
	if body.Content != nil {
		p.Content = *body.Content
	}
	now := time.Now().UTC().Format(time.RFC3339)
	p.UpdatedAt = &now
	s.posts[id] = p
	writeData(w, http.StatusOK, true)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request, _ *session, u *user) {
	if id, ok := s.postOf(w, r, u); ok {
		delete(s.posts, id)
		delete(s.owners, id)
		writeData(w, http.StatusOK, true)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data, "error": nil})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"data": nil, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
