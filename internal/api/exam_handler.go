package api

import (
	"net/http"

	"github.com/phrazzld/lingua-api/internal/api/shared"
	"github.com/phrazzld/lingua-api/internal/service/assessment"
)

// ExamHandler serves the scheduled exam.
type ExamHandler struct {
	exams assessment.Service
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams assessment.Service) *ExamHandler {
	if exams == nil {
		panic("exams cannot be nil")
	}
	return &ExamHandler{exams: exams}
}

// GetExam handles GET /api/exam. The response carries server_time so the
// client can correct its clock before running the session.
func (h *ExamHandler) GetExam(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.exams.GetExam(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load exam")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, bundle)
}
