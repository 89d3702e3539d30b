package server

import (
	"aidigest/internal/core"
	"aidigest/internal/digest"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// job is one background digest run. Its Progress is polled by clients.
type job struct {
	id        string
	createdAt time.Time
	progress  *digest.Progress

	mu     sync.Mutex
	result *core.Digest
	err    string
}

type jobView struct {
	ID        string                  `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Progress  digest.ProgressSnapshot `json:"progress"`
	Digest    *core.Digest            `json:"digest,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

func (j *job) finish(d *core.Digest, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = d
	if err != nil {
		j.err = err.Error()
	}
}

func (j *job) view() jobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := jobView{
		ID:        j.id,
		CreatedAt: j.createdAt,
		Progress:  j.progress.Snapshot(),
		Digest:    j.result,
		Error:     j.err,
	}
	// Progress reaches done just before the result is stored.
	if v.Progress.Status == digest.StatusDone && v.Digest == nil && v.Error == "" {
		v.Progress.Status = digest.StatusEnriching
	}
	return v
}

// jobRegistry holds jobs for ttl after they start.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*job
	ttl  time.Duration
	now  func() time.Time
}

func newJobRegistry(ttl time.Duration) *jobRegistry {
	return &jobRegistry{jobs: map[string]*job{}, ttl: ttl, now: time.Now}
}

func (r *jobRegistry) create() *job {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()

	j := &job{id: uuid.NewString(), createdAt: r.now().UTC(), progress: digest.NewProgress()}
	r.jobs[j.id] = j
	return j
}

func (r *jobRegistry) get(id string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()

	j, ok := r.jobs[id]
	return j, ok
}

// prune must be called with mu held.
func (r *jobRegistry) prune() {
	cutoff := r.now().Add(-r.ttl)
	for id, j := range r.jobs {
		if j.createdAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

func (r *jobRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// handleStartJob validates the request, then generates the digest in the
// background and returns 202 with the job id.
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req digestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}

	days := s.days(req.Days)
	if days <= 0 {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("%w: got %d", digest.ErrInvalidDays, days).Error())
		return
	}
	list, err := s.resolveFeeds(r, req.Feeds)
	if err != nil {
		s.respondDigestError(w, err)
		return
	}
	if len(list) == 0 {
		s.respondError(w, http.StatusBadRequest, digest.ErrNoFeeds.Error())
		return
	}

	j := s.jobs.create()
	go func() {
		d, err := s.deps.Generator.Generate(s.base, list, days, j.progress)
		if err != nil {
			s.log.Warn("Digest job failed", "job", j.id, "error", err.Error())
			j.finish(nil, err)
			return
		}
		j.finish(&d, nil)
	}()

	w.Header().Set("Location", "/api/digest/jobs/"+j.id)
	s.respondJSON(w, http.StatusAccepted, j.view())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, j.view())
}
