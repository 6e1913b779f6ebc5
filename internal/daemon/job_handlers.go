package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lectern/internal/api"
	"lectern/internal/queue"
	"lectern/internal/textutil"
)

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleJobSubmit(w, r)
	case http.MethodGet:
		s.handleJobList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d MB limit", s.maxUploadBytes>>20))
			return
		}
		s.writeError(w, http.StatusBadRequest, "multipart form field \"file\" is required")
		return
	}
	defer file.Close()

	job, err := s.daemon.SubmitPDF(r.Context(), header.Filename, file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d MB limit", s.maxUploadBytes>>20))
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleJobList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var status queue.Status
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			valid := make([]string, 0, len(queue.AllStatuses()))
			for _, known := range queue.AllStatuses() {
				valid = append(valid, string(known))
			}
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("unknown status %q (valid: %s)", raw, strings.Join(valid, ", ")))
			return
		}
		status = parsed
	}
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	resp, err := s.jobSvc.Page(r.Context(), status, page, pageSize)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleJobByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	parts := strings.Split(rest, "/")
	id := strings.TrimSpace(parts[0])
	if id == "" || len(parts) > 2 {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		s.handleJobDescribe(w, r, id)
	case r.Method == http.MethodGet && action == "video":
		s.handleJobVideo(w, r, id)
	case r.Method == http.MethodPost && action == "retry":
		s.handleJobRetry(w, r, id)
	case r.Method == http.MethodPost && action == "stop":
		s.handleJobStop(w, r, id)
	case r.Method == http.MethodDelete && action == "":
		s.handleJobRemove(w, r, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJobDescribe(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.jobSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleJobRetry(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.daemon.RetryJobs(r.Context(), []string{id})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(result.Jobs) != 1 {
		s.writeError(w, http.StatusInternalServerError, "unexpected retry result")
		return
	}
	outcome := result.Jobs[0]
	switch outcome.Outcome {
	case api.RetryJobUpdated:
		s.writeJSON(w, http.StatusOK, outcome)
	case api.RetryJobNotFound:
		s.writeError(w, http.StatusNotFound, "job not found")
	default:
		s.writeJSON(w, http.StatusConflict, outcome)
	}
}

func (s *apiServer) handleJobStop(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.daemon.StopJobs(r.Context(), []string{id})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(result.Jobs) != 1 {
		s.writeError(w, http.StatusInternalServerError, "unexpected stop result")
		return
	}
	outcome := result.Jobs[0]
	switch outcome.Outcome {
	case api.StopJobUpdated:
		s.writeJSON(w, http.StatusAccepted, outcome)
	case api.StopJobNotFound:
		s.writeError(w, http.StatusNotFound, "job not found")
	default:
		s.writeJSON(w, http.StatusConflict, outcome)
	}
}

func (s *apiServer) handleJobRemove(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.daemon.RemoveJobs(r.Context(), []string{id})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(result.Jobs) != 1 {
		s.writeError(w, http.StatusInternalServerError, "unexpected remove result")
		return
	}
	outcome := result.Jobs[0]
	switch outcome.Outcome {
	case api.RemoveJobRemoved:
		s.writeJSON(w, http.StatusOK, outcome)
	case api.RemoveJobNotFound:
		s.writeError(w, http.StatusNotFound, "job not found")
	default:
		s.writeJSON(w, http.StatusConflict, outcome)
	}
}

func (s *apiServer) handleJobVideo(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.daemon.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != queue.StatusCompleted || strings.TrimSpace(job.VideoPath) == "" {
		s.writeError(w, http.StatusConflict, "video available once the job has completed")
		return
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		s.writeError(w, http.StatusNotFound, "video file missing")
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", VideoDownloadName(job.OriginalFilename)))
	http.ServeFile(w, r, job.VideoPath)
}

// VideoDownloadName derives the download filename for a finished video from
// the uploaded document's name.
func VideoDownloadName(originalFilename string) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	base = textutil.SanitizeFileName(base)
	if base == "" {
		base = "lecture"
	}
	return base + "_training.mp4"
}
