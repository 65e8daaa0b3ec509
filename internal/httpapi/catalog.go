package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gordonpn/portfolio-api/internal/portfolio"
)

func (handlers *Handlers) projects(writer http.ResponseWriter, request *http.Request) {
	filter := request.URL.Query().Get("filter")
	if request.URL.Query().Get("featured") == "true" {
		writeJSON(writer, http.StatusOK, map[string]any{"projects": handlers.catalog.Featured()})
		return
	}

	projects, err := handlers.catalog.Projects(filter)
	if errors.Is(err, portfolio.ErrUnknownFilter) {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "unknown_filter", "filters": portfolio.Filters()})
		return
	}

	writeJSON(writer, http.StatusOK, map[string]any{"filters": portfolio.Filters(), "projects": projects})
}

func (handlers *Handlers) project(writer http.ResponseWriter, request *http.Request) {
	project, err := handlers.catalog.Project(chi.URLParam(request, "slug"))
	if err != nil {
		writeJSON(writer, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}

	writeJSON(writer, http.StatusOK, project)
}

func (handlers *Handlers) skills(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, handlers.catalog.Skills())
}
