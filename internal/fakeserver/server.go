// Package fakeserver is an in-process stand-in for the Tableau REST API,
// serving the subset tablist talks to.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rflorenc/tablist/internal/models"
)

// collection mirrors how the real server exposes one resource kind.
type collection struct {
	path    string
	listKey string
	elemKey string
	itemKey string
	byID    bool
	paged   bool
}

var collections = map[models.Kind]collection{
	models.KindWorkbook:   {"workbooks", "workbooks", "workbook", "workbook", true, true},
	models.KindDatasource: {"datasources", "datasources", "datasource", "datasource", true, true},
	models.KindProject:    {"projects", "projects", "project", "project", false, true},
	models.KindView:       {"views", "views", "view", "view", true, true},
	models.KindJob:        {"jobs", "backgroundJobs", "backgroundJob", "job", true, true},
	models.KindTask:       {"tasks/extractRefreshes", "tasks", "task", "task", true, false},
}

// Server is a fake Tableau REST API. Fields may be changed before the first
// request is made.
type Server struct {
	*httptest.Server

	APIVersion string
	Username   string
	Password   string
	Site       string // content URL accepted at sign-in
	// ServerInfoStatus, if non-zero, is returned by /serverinfo instead of a document.
	ServerInfoStatus int

	siteID string

	mu       sync.Mutex
	token    string
	items    map[models.Kind][]models.Resource
	signIns  int
	signOuts int
	infos    int
	lookups  map[models.Kind]int
	pages    map[models.Kind]int
	versions map[string]int
}

// New starts a fake server accepting admin/secret on the default site.
func New() *Server {
	s := &Server{
		APIVersion: "3.19",
		Username:   "admin",
		Password:   "secret",
		siteID:     uuid.NewString(),
		items:      make(map[models.Kind][]models.Resource),
		lookups:    make(map[models.Kind]int),
		pages:      make(map[models.Kind]int),
		versions:   make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/{version}", func(r chi.Router) {
		r.Use(s.countVersion)
		r.Get("/serverinfo", s.serverInfo)
		r.Post("/auth/signin", s.signIn)
		r.With(s.requireAuth).Post("/auth/signout", s.signOut)
		r.Route("/sites/{siteID}", func(r chi.Router) {
			r.Use(s.requireAuth)
			for kind, c := range collections {
				r.Get("/"+c.path, s.list(kind))
				if c.byID {
					r.Get("/"+c.path+"/{id}", s.get(kind))
				}
			}
		})
	})
	return r
}

// Add stores a resource of kind with the given name and returns its LUID.
// Extra fields are merged into the stored object.
func (s *Server) Add(kind models.Kind, name string, extra models.Resource) string {
	id := uuid.NewString()
	res := models.Resource{"id": id}
	if kind == models.KindJob {
		res["title"] = name
	} else {
		res["name"] = name
	}
	for k, v := range extra {
		res[k] = v
	}
	s.mu.Lock()
	s.items[kind] = append(s.items[kind], res)
	s.mu.Unlock()
	return id
}

// AddTask stores an extract refresh task acting on target and returns its LUID.
func (s *Server) AddTask(target models.Target) string {
	id := uuid.NewString()
	body := models.Resource{
		"id":       id,
		"priority": 50,
		"type":     "RefreshExtractTask",
		target.Kind.String(): map[string]interface{}{
			"id": target.ID,
		},
	}
	s.mu.Lock()
	s.items[models.KindTask] = append(s.items[models.KindTask], models.Resource{"extractRefresh": body})
	s.mu.Unlock()
	return id
}

// Remove deletes the resource with id, so later lookups miss.
func (s *Server) Remove(kind models.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[kind][:0]
	for _, res := range s.items[kind] {
		if elemID(kind, res) != id {
			kept = append(kept, res)
		}
	}
	s.items[kind] = kept
}

// SiteID returns the LUID of the fake site.
func (s *Server) SiteID() string { return s.siteID }

// SignIns returns the number of successful sign-ins.
func (s *Server) SignIns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signIns
}

// SignOuts returns the number of sign-outs.
func (s *Server) SignOuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signOuts
}

// ServerInfoCalls returns the number of /serverinfo requests.
func (s *Server) ServerInfoCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infos
}

// Lookups returns the number of by-id requests for kind.
func (s *Server) Lookups(kind models.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[kind]
}

// Pages returns the number of list requests for kind.
func (s *Server) Pages(kind models.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[kind]
}

// Requests returns the number of requests made under API version v.
func (s *Server) Requests(v string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[v]
}

func (s *Server) countVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.versions[chi.URLParam(r, "version")]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		ok := s.token != "" && r.Header.Get("X-Tableau-Auth") == s.token
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "401002", "Unauthorized Access", "Invalid authentication credentials were provided.")
			return
		}
		if siteID := chi.URLParam(r, "siteID"); siteID != "" && siteID != s.siteID {
			writeError(w, http.StatusForbidden, "403069", "Forbidden", "Site id mismatch.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serverInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.infos++
	s.mu.Unlock()
	if s.ServerInfoStatus != 0 {
		writeError(w, s.ServerInfoStatus, "404000", "Resource Not Found", "Unknown resource 'serverinfo'.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"serverInfo": map[string]interface{}{
			"productVersion": map[string]string{"value": "2023.3.0", "build": "20233.23.1017.0948"},
			"restApiVersion": s.APIVersion,
		},
	})
}

type signInBody struct {
	Credentials struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Site     struct {
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
	} `json:"credentials"`
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var body signInBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "400000", "Bad Request", err.Error())
		return
	}
	c := body.Credentials
	if c.Site.ContentURL != s.Site {
		writeError(w, http.StatusNotFound, "404000", "Site not found", "The site '"+c.Site.ContentURL+"' does not exist.")
		return
	}
	if c.Name != s.Username || c.Password != s.Password {
		writeError(w, http.StatusUnauthorized, "401001", "Signin Error", "Error signing in to Tableau Server")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.token = token
	s.signIns++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"credentials": map[string]interface{}{
			"token": token,
			"site":  map[string]string{"id": s.siteID, "contentUrl": s.Site},
			"user":  map[string]string{"id": uuid.NewString()},
		},
	})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.token = ""
	s.signOuts++
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) list(kind models.Kind) http.HandlerFunc {
	c := collections[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.pages[kind]++
		all := append([]models.Resource(nil), s.items[kind]...)
		s.mu.Unlock()

		page := all
		resp := map[string]interface{}{}
		if c.paged {
			size := queryInt(r, "pageSize", 100)
			number := queryInt(r, "pageNumber", 1)
			start := (number - 1) * size
			end := start + size
			if start > len(all) {
				start = len(all)
			}
			if end > len(all) {
				end = len(all)
			}
			page = all[start:end]
			resp["pagination"] = map[string]string{
				"pageNumber":     strconv.Itoa(number),
				"pageSize":       strconv.Itoa(size),
				"totalAvailable": strconv.Itoa(len(all)),
			}
		}
		// The real server sends an empty object when there are no elements.
		envelope := map[string]interface{}{}
		if len(page) > 0 {
			envelope[c.elemKey] = page
		}
		resp[c.listKey] = envelope
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) get(kind models.Kind) http.HandlerFunc {
	c := collections[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s.mu.Lock()
		s.lookups[kind]++
		var found models.Resource
		for _, res := range s.items[kind] {
			if elemID(kind, res) == id {
				found = res
				break
			}
		}
		s.mu.Unlock()

		if found == nil {
			writeError(w, http.StatusNotFound, "404004", "Resource Not Found", "The "+kind.String()+" '"+id+"' could not be found.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{c.itemKey: found})
	}
}

// elemID returns the id of a stored element; tasks keep theirs inside the
// type wrapper.
func elemID(kind models.Kind, res models.Resource) string {
	if kind == models.KindTask {
		if body, ok := res["extractRefresh"].(models.Resource); ok {
			return body.String("id")
		}
		return ""
	}
	return res.String("id")
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, summary, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"code": code, "summary": summary, "detail": detail},
	})
}
