package rest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/metadata"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port              int
	apiKey            string
	definitionService metadata.DefinitionService
	executionService  *engine.ExecutionService
}

func NewServer(httpPort int, apiKey string, definitionService metadata.DefinitionService, executionService *engine.ExecutionService) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:              httpPort,
		apiKey:            apiKey,
		definitionService: definitionService,
		executionService:  executionService,
	}

	router := mux.NewRouter()
	router.HandleFunc("/definition", s.HandleCreateDefinition).Methods(http.MethodPost)
	router.HandleFunc("/definition", s.HandleListDefinitions).Methods(http.MethodGet)
	router.HandleFunc("/definition/{id}", s.HandleGetDefinition).Methods(http.MethodGet)
	router.HandleFunc("/definition/{id}", s.HandleEditDefinition).Methods(http.MethodPut)

	router.HandleFunc("/workflow/start", s.HandleStartWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow/listen", s.HandleProcessListenTask).Methods(http.MethodPost)
	router.HandleFunc("/transport/process", s.sharedCredential(s.HandleProcessTask)).Methods(http.MethodPost)

	router.HandleFunc("/runtime", s.HandleListRuntimes).Methods(http.MethodGet)
	router.HandleFunc("/runtime/{id}", s.HandleGetRuntime).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

// sharedCredential guards the internal continuation endpoint with the
// deployment-wide workflow credential. It is not an end-user surface.
func (s *Server) sharedCredential(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte("workflow")) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.apiKey)) != 1 {
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithData(w http.ResponseWriter, code int, message string, data any) {
	respondWithJSON(w, code, map[string]any{
		"statusCode": code,
		"message":    message,
		"data":       data,
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]any{
		"statusCode": code,
		"message":    http.StatusText(code),
		"error":      message,
	})
}

// respondWithServiceError maps the engine error taxonomy onto statuses.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case engine.BadRequestError:
		respondWithError(w, http.StatusBadRequest, err.Error())
	case engine.NotFoundError:
		respondWithError(w, http.StatusNotFound, err.Error())
	case engine.UnauthorizedError:
		respondWithError(w, http.StatusUnauthorized, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
