package http

import "net/http"

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	job, err := s.exports.RequestExport(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toExportJobJSON(job))
}

func (s *Server) handleShowExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	job, err := s.exports.Job(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExportJobJSON(job))
}
