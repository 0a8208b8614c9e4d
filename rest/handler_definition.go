package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"go.uber.org/zap"
)

// respondWithDefinitionError maps definition service errors. Anything that
// is not a storage failure is an authoring mistake.
func respondWithDefinitionError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case persistence.NotFoundError:
		respondWithError(w, http.StatusNotFound, err.Error())
	case persistence.StorageLayerError:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		respondWithError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) HandleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var definition model.Definition
	if err := json.NewDecoder(r.Body).Decode(&definition); err != nil {
		logger.Error("error decoding definition", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid definition payload")
		return
	}
	created, err := s.definitionService.CreateDefinition(definition)
	if err != nil {
		respondWithDefinitionError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, "definition created", created)
}

func (s *Server) HandleEditDefinition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var definition model.Definition
	if err := json.NewDecoder(r.Body).Decode(&definition); err != nil {
		logger.Error("error decoding definition", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid definition payload")
		return
	}
	definition.Id = vars["id"]
	if err := s.definitionService.EditDefinition(definition); err != nil {
		respondWithDefinitionError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "definition updated", definition)
}

func (s *Server) HandleGetDefinition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	definition, err := s.definitionService.GetDefinition(vars["id"])
	if err != nil {
		respondWithDefinitionError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "definition found", definition)
}

func (s *Server) HandleListDefinitions(w http.ResponseWriter, r *http.Request) {
	definitions, err := s.definitionService.ListDefinitions()
	if err != nil {
		respondWithDefinitionError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "definitions found", definitions)
}
