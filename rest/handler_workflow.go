package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"go.uber.org/zap"
)

func (s *Server) HandleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	var req model.StartWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("error decoding start request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid start payload")
		return
	}
	if len(req.WorkflowDefinitionId) == 0 {
		respondWithError(w, http.StatusBadRequest, "workflowDefinitionId is required")
		return
	}
	runtimeId, err := s.executionService.StartWorkflow(req.WorkflowDefinitionId, req.GlobalParams)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, "workflow started", map[string]any{"workflowRuntimeId": runtimeId})
}

// HandleProcessTask is the continuation callback used by the http
// transport. It acknowledges as soon as processing is scheduled.
func (s *Server) HandleProcessTask(w http.ResponseWriter, r *http.Request) {
	var req model.ProcessTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("error decoding process request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid process payload")
		return
	}
	if len(req.WorkflowRuntimeId) == 0 || len(req.TaskName) == 0 {
		respondWithError(w, http.StatusBadRequest, "workflowRuntimeId and taskName are required")
		return
	}
	s.executionService.ProcessWorkflow(req.WorkflowRuntimeId, req.TaskName)
	respondWithData(w, http.StatusAccepted, "task accepted", map[string]any{
		"workflowRuntimeId": req.WorkflowRuntimeId,
		"taskName":          req.TaskName,
	})
}

// HandleProcessListenTask resumes a runtime waiting on an external event.
// The caller proves itself with the api key configured on the listen task,
// carried in the X-Api-Key header.
func (s *Server) HandleProcessListenTask(w http.ResponseWriter, r *http.Request) {
	var req model.ProcessListenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("error decoding listen request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid listen payload")
		return
	}
	if len(req.WorkflowRuntimeId) == 0 || len(req.TaskName) == 0 {
		respondWithError(w, http.StatusBadRequest, "workflowRuntimeId and taskName are required")
		return
	}
	apiKey := r.Header.Get("X-Api-Key")
	if err := s.executionService.ProcessListenTask(req, apiKey); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusAccepted, "listen task accepted", map[string]any{
		"workflowRuntimeId": req.WorkflowRuntimeId,
		"taskName":          req.TaskName,
	})
}

func (s *Server) HandleListRuntimes(w http.ResponseWriter, r *http.Request) {
	runtimes, err := s.executionService.ListRuntimes()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "runtimes found", runtimes)
}

func (s *Server) HandleGetRuntime(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runtime, err := s.executionService.GetRuntime(vars["id"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "runtime found", runtime)
}
