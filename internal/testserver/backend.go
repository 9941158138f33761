package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aipms/client/internal/domain/project"
)

var signingKey = []byte("testserver-signing-key")

// Conflict is the 409 payload returned by the submit endpoint when set.
type Conflict struct {
	Detail         string                  `json:"detail"`
	Suggestions    string                  `json:"suggestions,omitempty"`
	SimilarProject *project.SimilarProject `json:"similar_project,omitempty"`
}

// Upload is a received project submission.
type Upload struct {
	Title        string
	AbstractText string
	Files        map[string][]byte
}

// State is the data served by the fake backend.
type State struct {
	StudentSubmissions []project.StudentSubmission
	Appointed          []project.TeacherSubmission
	Unappointed        []project.TeacherSubmission
	Approved           []project.ApprovedProject
	Projects           []project.Project
	Analytics          project.Analytics
	Admin              project.AdminDashboard
	Alumni             []project.AlumniProject
	TopProjects        []project.TopProject
	Leaderboard        []project.User
	Progress           map[int64]int
	VivaQuestions      []string
	Evaluation         map[string]any
	ChatReply          string
	Conflict           *Conflict
	Uploads            []Upload
	Registered         []project.User
}

type account struct {
	id       int64
	password string
	email    string
	role     string
}

// Backend is an in-memory implementation of the platform HTTP API.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	state    State
	accounts map[string]*account
	tokens   map[string]string
	failures map[string]int
	calls    map[string]int
	nextID   int64
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		state: State{
			Progress:   map[int64]int{},
			Evaluation: map[string]any{"score": 8, "feedback": "Clear and well structured."},
			ChatReply:  "Here is some advice.",
		},
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		failures: map[string]int{},
		calls:    map[string]int{},
		nextID:   100,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddUser creates an account.
func (b *Backend) AddUser(username, password, role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.accounts[username] = &account{id: b.nextID, password: password, email: username + "@example.com", role: role}
}

// Update mutates the served state.
func (b *Backend) Update(fn func(*State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.state)
}

// Snapshot returns a shallow copy of the served state.
func (b *Backend) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Fail makes every request matching method and route pattern answer with
// status. Status 0 removes the failure.
func (b *Backend) Fail(method, pattern string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := routeKey(method, pattern)
	if status == 0 {
		delete(b.failures, key)
		return
	}
	b.failures[key] = status
}

// Calls returns how many requests matched method and route pattern.
func (b *Backend) Calls(method, pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[routeKey(method, pattern)]
}

// TotalCalls returns the number of requests received.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// IssueToken returns a valid access token for username without a login call.
func (b *Backend) IssueToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(username, "access")
}

// RevokeTokens invalidates every issued token.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]string{}
}

func (b *Backend) issueLocked(username, kind string) string {
	acct := b.accounts[username]
	var id int64
	if acct != nil {
		id = acct.id
	}
	b.nextID++
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    id,
		"token_type": kind,
		"jti":        strconv.FormatInt(b.nextID, 10),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString(signingKey)
	b.tokens[token] = username
	return token
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.track)

	r.Post("/auth/jwt/create/", b.handleLogin)
	r.Post("/auth/users/", b.handleRegister)
	r.Get("/alumni/top-projects/", b.list(func(s *State) any { return s.TopProjects }))

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)

		r.Get("/auth/users/me/", b.handleMe)
		r.Get("/student/submissions/", b.list(func(s *State) any { return s.StudentSubmissions }))
		r.Post("/projects/submit/", b.handleSubmit)
		r.Patch("/projects/progress/update/{id}/", b.handleProgressUpdate)
		r.Get("/projects/progress/{id}/", b.handleProgress)
		r.Get("/teacher/appointed/", b.list(func(s *State) any { return s.Appointed }))
		r.Get("/teacher/unappointed/", b.list(func(s *State) any { return s.Unappointed }))
		r.Patch("/teacher/submissions/{id}/", b.handleReview)
		r.Get("/teacher/approved-projects/", b.list(func(s *State) any { return s.Approved }))
		r.Get("/projects/all/", b.list(func(s *State) any { return s.Projects }))
		r.Patch("/projects/archive/{id}/", b.handleArchive)
		r.Get("/analytics/", b.list(func(s *State) any { return s.Analytics }))
		r.Get("/admin/dashboard/", b.list(func(s *State) any { return s.Admin }))
		r.Get("/alumni/my-projects/", b.list(func(s *State) any { return s.Alumni }))
		r.Get("/leaderboard/", b.list(func(s *State) any { return s.Leaderboard }))
		r.Post("/ai/chat/", b.handleChat)
		r.Post("/ai/viva/", b.handleViva)
		r.Post("/ai/viva/evaluate/", b.handleEvaluate)
	})
	return r
}

// track counts requests by route pattern and applies configured failures.
func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pattern := r.URL.Path
		if rctx != nil && rctx.Routes != nil {
			tctx := chi.NewRouteContext()
			if rctx.Routes.Match(tctx, r.Method, r.URL.Path) {
				pattern = tctx.RoutePattern()
			}
		}
		key := routeKey(r.Method, pattern)

		b.mu.Lock()
		b.calls[key]++
		status := b.failures[key]
		b.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeKey ignores the trailing slash, which chi drops from matched patterns
// while the backend contract always spells it.
func routeKey(method, pattern string) string {
	if pattern != "/" {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return method + " " + pattern
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		username, known := b.tokens[token]
		b.mu.Unlock()
		if !ok || !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		r.Header.Set("X-Test-User", username)
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) list(get func(*State) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		payload := get(&b.state)
		data, err := json.Marshal(payload)
		b.mu.Unlock()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if string(data) == "null" {
			data = []byte("[]")
		}
		_, _ = w.Write(data)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds project.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.accounts[creds.Username]
	if acct == nil || acct.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  b.issueLocked(creds.Username, "access"),
		"refresh": b.issueLocked(creds.Username, "refresh"),
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	username := r.Header.Get("X-Test-User")
	b.mu.Lock()
	acct := b.accounts[username]
	b.mu.Unlock()
	if acct == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, project.User{ID: acct.id, Username: username, Email: acct.email, Role: acct.role})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[body.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	b.nextID++
	b.accounts[body.Username] = &account{id: b.nextID, password: body.Password, email: body.Email, role: body.Role}
	user := project.User{ID: b.nextID, Username: body.Username, Email: body.Email, Role: body.Role}
	b.state.Registered = append(b.state.Registered, user)
	writeJSON(w, http.StatusCreated, user)
}

func (b *Backend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "expected multipart form"})
		return
	}
	upload := Upload{
		Title:        r.FormValue("title"),
		AbstractText: r.FormValue("abstract_text"),
		Files:        map[string][]byte{},
	}
	for field, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			continue
		}
		data, _ := io.ReadAll(f)
		f.Close()
		upload.Files[field] = data
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Conflict != nil {
		writeJSON(w, http.StatusConflict, b.state.Conflict)
		return
	}
	b.state.Uploads = append(b.state.Uploads, upload)
	b.nextID++
	b.state.StudentSubmissions = append(b.state.StudentSubmissions, project.StudentSubmission{
		ID:     b.nextID,
		Title:  upload.Title,
		Status: project.StatusPending,
	})
	b.state.Unappointed = append(b.state.Unappointed, project.TeacherSubmission{
		ID:           b.nextID,
		Title:        upload.Title,
		Student:      project.UserRef{Username: r.Header.Get("X-Test-User")},
		AbstractText: upload.AbstractText,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": b.nextID, "title": upload.Title})
}

func (b *Backend) handleProgressUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Progress *int `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Progress == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "progress is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.state.StudentSubmissions {
		sub := &b.state.StudentSubmissions[i]
		if sub.ID != id {
			continue
		}
		if sub.Status != project.StatusApproved && sub.Status != project.StatusInProgress {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Project is not approved."})
			return
		}
		p := *body.Progress
		sub.Progress = &p
		b.state.Progress[id] = p
		writeJSON(w, http.StatusOK, map[string]int{"progress_percentage": p})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (b *Backend) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	p, known := b.state.Progress[id]
	b.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"progress_percentage": p})
}

func (b *Backend) handleReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	if _, err := project.ReviewDecision(body.Status); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid status"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, list := range []*[]project.TeacherSubmission{&b.state.Appointed, &b.state.Unappointed} {
		for i, sub := range *list {
			if sub.ID == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				b.reviewedLocked(id, project.Status(body.Status))
				writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": body.Status})
				return
			}
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Submission already reviewed."})
}

// reviewedLocked mirrors a review decision onto the student's submission.
func (b *Backend) reviewedLocked(id int64, status project.Status) {
	for i := range b.state.StudentSubmissions {
		sub := &b.state.StudentSubmissions[i]
		if sub.ID != id {
			continue
		}
		sub.Status = status
		if status == project.StatusApproved {
			zero := 0
			sub.Progress = &zero
			b.state.Progress[id] = 0
		}
	}
}

func (b *Backend) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status project.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.state.Projects {
		p := &b.state.Projects[i]
		if p.ID != id {
			continue
		}
		if project.NextArchiveStatus(p.Status) != body.Status {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid transition"})
			return
		}
		p.Status = body.Status
		writeJSON(w, http.StatusOK, p)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "prompt is required"})
		return
	}
	b.mu.Lock()
	reply := b.state.ChatReply
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (b *Backend) handleViva(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID          int64 `json:"project_id"`
		ProgressPercentage int   `json:"progress_percentage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProjectID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "project_id is required"})
		return
	}
	b.mu.Lock()
	questions := append([]string(nil), b.state.VivaQuestions...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (b *Backend) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID int64  `json:"project_id"`
		Question  string `json:"question"`
		Answer    string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Answer == "" || body.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "question and answer are required"})
		return
	}
	b.mu.Lock()
	result := b.state.Evaluation
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("invalid id %q", chi.URLParam(r, "id"))})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
