// Package articlestest provides an in-memory article store speaking the store's HTTP contract.
package articlestest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"updater/internal/core"
)

// Server is a fake store. It orders the index by published_at desc then id desc, enforces
// unique URLs and paginates like the real one.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	records       map[int64]core.ArticleRecord
	nextID        int64
	failDelete    map[int64]bool
	failWrites    bool
	deleteCalls   []int64
	listCalls     int
	lastWriteBody map[string]any
}

// NewServer starts a fake store serving /api/articles.
func NewServer() *Server {
	s := &Server{
		records:    make(map[int64]core.ArticleRecord),
		nextID:     1,
		failDelete: make(map[int64]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/articles", s.handleList)
	mux.HandleFunc("POST /api/articles", s.handleCreate)
	mux.HandleFunc("GET /api/articles/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/articles/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/articles/{id}", s.handleDelete)
	s.Server = httptest.NewServer(mux)
	return s
}

// Seed stores records as-is, assigning ids to those without one.
func (s *Server) Seed(records ...core.ArticleRecord) []core.ArticleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.ArticleRecord, 0, len(records))
	for _, r := range records {
		if r.ID == 0 {
			r.ID = s.nextID
		}
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
		s.records[r.ID] = r
		out = append(out, r)
	}
	return out
}

// Records returns a snapshot ordered by id.
func (s *Server) Records() []core.ArticleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.ArticleRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FailDelete makes deletes of id answer 500.
func (s *Server) FailDelete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[id] = true
}

// FailWrites makes every create and update answer 500.
func (s *Server) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// DeleteCalls returns the ids deletes were attempted for.
func (s *Server) DeleteCalls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64{}, s.deleteCalls...)
}

// ListCalls returns how many index pages were served.
func (s *Server) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// LastWriteBody returns the decoded JSON body of the most recent create or update.
func (s *Server) LastWriteBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWriteBody
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	perPage := atoiDefault(r.URL.Query().Get("per_page"), 15)
	page := atoiDefault(r.URL.Query().Get("page"), 1)

	sorted := make([]core.ArticleRecord, 0, len(s.records))
	for _, rec := range s.records {
		sorted = append(sorted, rec)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].PublishedMillis(), sorted[j].PublishedMillis()
		if a != b {
			return a > b
		}
		return sorted[i].ID > sorted[j].ID
	})

	start := min((page-1)*perPage, len(sorted))
	end := min(start+perPage, len(sorted))
	var next *string
	if end < len(sorted) {
		u := fmt.Sprintf("%s/api/articles?page=%d", s.URL, page+1)
		next = &u
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current_page":  page,
		"data":          sorted[start:end],
		"next_page_url": next,
		"per_page":      perPage,
		"total":         len(sorted),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decodeWrite(w, r)
	if !ok {
		return
	}
	if rec.Title == "" || rec.URL == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The title and url fields are required."})
		return
	}
	if s.urlTaken(rec.URL, 0) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The url has already been taken."})
		return
	}
	rec.ID = s.nextID
	s.nextID++
	s.records[rec.ID] = rec
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	rec, ok := s.decodeWrite(w, r)
	if !ok {
		return
	}
	if rec.URL != "" && s.urlTaken(rec.URL, existing.ID) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The url has already been taken."})
		return
	}
	rec.ID = existing.ID
	s.records[rec.ID] = rec
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	s.deleteCalls = append(s.deleteCalls, id)
	if s.failDelete[id] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
		return
	}
	if _, ok := s.records[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	delete(s.records, id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) lookup(r *http.Request) (core.ArticleRecord, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return core.ArticleRecord{}, false
	}
	rec, ok := s.records[id]
	return rec, ok
}

func (s *Server) decodeWrite(w http.ResponseWriter, r *http.Request) (core.ArticleRecord, bool) {
	if s.failWrites {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
		return core.ArticleRecord{}, false
	}
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return core.ArticleRecord{}, false
	}
	s.lastWriteBody = raw

	data, _ := json.Marshal(raw)
	var rec core.ArticleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": err.Error()})
		return core.ArticleRecord{}, false
	}
	return rec, true
}

func (s *Server) urlTaken(url string, exceptID int64) bool {
	for id, rec := range s.records {
		if id != exceptID && rec.URL == url {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Date is a helper for seeding publication dates.
func Date(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
