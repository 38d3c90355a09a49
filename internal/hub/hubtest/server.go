// Package hubtest provides an in-memory model hub speaking the Hugging Face and ModelScope
// listing and download APIs.
package hubtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Server is a fake hub. Repositories are served from memory.
type Server struct {
	*httptest.Server

	// PageSize splits Hugging Face tree listings into pages linked with rel=next. Zero disables paging.
	PageSize int

	mu       sync.Mutex
	repos    map[string]map[string][]byte
	failures map[string]int
	hold     chan struct{}
	requests int
	fetches  int
	auth     []string
}

// NewServer starts a fake hub. Callers must Close it.
func NewServer() *Server {
	s := &Server{repos: map[string]map[string][]byte{}, failures: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// AddRepo registers repository id with the given files (path -> content).
func (s *Server) AddRepo(id string, files map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string][]byte, len(files))
	for k, v := range files {
		cp[k] = v
	}
	s.repos[id] = cp
}

// FailFile makes downloads of path in repository id answer with status. Zero clears it.
func (s *Server) FailFile(id, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, id+"\x00"+path)
		return
	}
	s.failures[id+"\x00"+path] = status
}

// Hold blocks every file download until the returned release func is called.
func (s *Server) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(ch)
			s.mu.Lock()
			if s.hold == ch {
				s.hold = nil
			}
			s.mu.Unlock()
		})
	}
}

// Requests returns the number of requests served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// FileRequests returns the number of file download requests served, listings excluded.
func (s *Server) FileRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// AuthHeaders returns the Authorization headers seen, in arrival order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	if a := r.Header.Get("Authorization"); a != "" {
		s.auth = append(s.auth, a)
	}
	s.mu.Unlock()

	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/api/v1/models/") && strings.HasSuffix(p, "/repo/files"):
		s.msList(w, strings.TrimSuffix(strings.TrimPrefix(p, "/api/v1/models/"), "/repo/files"))
	case strings.HasPrefix(p, "/api/v1/models/") && strings.HasSuffix(p, "/repo"):
		s.file(w, r, strings.TrimSuffix(strings.TrimPrefix(p, "/api/v1/models/"), "/repo"), r.URL.Query().Get("FilePath"))
	case strings.HasPrefix(p, "/api/models/") && strings.Contains(p, "/tree/"):
		id, _, _ := strings.Cut(strings.TrimPrefix(p, "/api/models/"), "/tree/")
		s.hfTree(w, r, id)
	case strings.Contains(p, "/resolve/"):
		id, rest, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/resolve/")
		_, file, _ := strings.Cut(rest, "/")
		s.file(w, r, id, file)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) repo(id string) (map[string][]byte, []string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.repos[id]
	if !ok {
		return nil, nil, false
	}
	names := make([]string, 0, len(files))
	for k := range files {
		names = append(names, k)
	}
	sort.Strings(names)
	return files, names, true
}

func (s *Server) hfTree(w http.ResponseWriter, r *http.Request, id string) {
	files, names, ok := s.repo(id)
	if !ok {
		http.Error(w, `{"error":"Repository not found"}`, http.StatusNotFound)
		return
	}
	start, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	end := len(names)
	if s.PageSize > 0 && start+s.PageSize < end {
		end = start + s.PageSize
		q := r.URL.Query()
		q.Set("cursor", strconv.Itoa(end))
		next := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next.String()))
	}
	type entry struct {
		Type string `json:"type"`
		Path string `json:"path"`
		Size int    `json:"size"`
	}
	out := []entry{{Type: "directory", Path: "unused"}}
	for _, n := range names[start:end] {
		out = append(out, entry{Type: "file", Path: n, Size: len(files[n])})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) msList(w http.ResponseWriter, id string) {
	files, names, ok := s.repo(id)
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"Code":10010101,"Message":"model not found"}`))
		return
	}
	type entry struct {
		Path string `json:"Path"`
		Type string `json:"Type"`
		Size int    `json:"Size"`
	}
	var body struct {
		Code int `json:"Code"`
		Data struct {
			Files []entry `json:"Files"`
		} `json:"Data"`
	}
	body.Code = 200
	for _, n := range names {
		body.Data.Files = append(body.Data.Files, entry{Path: n, Type: "blob", Size: len(files[n])})
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) file(w http.ResponseWriter, r *http.Request, id, path string) {
	s.mu.Lock()
	s.fetches++
	hold := s.hold
	status := s.failures[id+"\x00"+path]
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, "injected failure", status)
		return
	}
	files, _, ok := s.repo(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	b, ok := files[path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}
