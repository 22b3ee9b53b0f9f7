package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ScriptPilot/internal/agent"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/persona"
	"ScriptPilot/internal/task"
)

type automationRequest struct {
	Description string         `json:"description"`
	Platform    string         `json:"platform"`
	Options     map[string]any `json:"options,omitempty"`
}

type artifactRequest struct {
	ArtifactType string         `json:"artifact_type"`
	Description  string         `json:"description"`
	Options      map[string]any `json:"options,omitempty"`
}

type switchRequest struct {
	ID string `json:"id"`
}

type jobRequest struct {
	ID string `json:"id,omitempty"`
	agent.MessageRequest
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req agent.MessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.agent.ProcessMessage(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateAutomation(w http.ResponseWriter, r *http.Request) {
	var req automationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	automation, err := s.agent.GenerateAutomation(r.Context(), req.Description, req.Platform, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, automation)
}

func (s *Server) handleSearchAutomations(w http.ResponseWriter, r *http.Request) {
	results, err := s.agent.SearchAutomations(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []memory.Automation{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGenerateArtifact(w http.ResponseWriter, r *http.Request) {
	var req artifactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	artifact, err := s.agent.GenerateChannelArtifact(req.ArtifactType, req.Description, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

func (s *Server) handleCurrentPersona(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.CurrentPersona())
}

func (s *Server) handleSwitchPersona(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p := s.agent.SwitchPersona(req.ID)
	if p == nil {
		writeError(w, xerrors.New(xerrors.CodeNotFound, "人设不存在", xerrors.WithMetadata("persona_id", req.ID)))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Personas())
}

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req persona.Persona
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	created, err := s.agent.CreatePersona(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCurrentChannel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.CurrentChannel())
}

func (s *Server) handleSwitchChannel(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ch := s.agent.SwitchChannel(req.ID)
	if ch == nil {
		writeError(w, xerrors.New(xerrors.CodeNotFound, "渠道不存在", xerrors.WithMetadata("channel_id", req.ID)))
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Channels())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.agent.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	job, err := s.jobs.SubmitWithID(r.Context(), req.ID, req.MessageRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := []task.ListOption{
		task.WithLimit(queryInt(r, "limit", 20)),
		task.WithOffset(queryInt(r, "offset", 0)),
		task.WithQuery(query.Get("q")),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		var statuses []task.Status
		for _, part := range strings.Split(raw, ",") {
			statuses = append(statuses, task.Status(strings.TrimSpace(part)))
		}
		opts = append(opts, task.WithStatuses(statuses...))
	}
	if query.Get("order") == "asc" {
		opts = append(opts, task.WithSortOrder(task.SortByUpdatedAsc))
	}
	jobs, err := s.jobs.List(r.Context(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
