package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	appreports "github.com/tejxv/PULSE/internal/application/reports"
	"github.com/tejxv/PULSE/internal/application/questionnaire"
	"github.com/tejxv/PULSE/internal/domain/analysis"
	"github.com/tejxv/PULSE/internal/domain/reports"
	"github.com/tejxv/PULSE/internal/infra/storage"
	"github.com/tejxv/PULSE/internal/middleware"
)

var errBadRequest = errors.New("bad request")

type Router struct {
	questionnaire *questionnaire.Service
	reports       *appreports.Service
	backend       analysis.Backend
	attachments   *storage.Store
}

func NewRouter(q *questionnaire.Service, rep *appreports.Service, backend analysis.Backend, attachments *storage.Store) http.Handler {
	r := &Router{questionnaire: q, reports: rep, backend: backend, attachments: attachments}
	mux := chi.NewRouter()

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/questionnaire", r.wrap(r.handleQuestionnaire))

		rt.Post("/submissions", r.wrap(r.handleBegin))
		rt.Get("/submissions/{id}", r.wrap(r.handleGetSubmission))
		rt.Post("/submissions/{id}/initial", r.wrap(r.handleSubmitInitial))
		rt.Post("/submissions/{id}/final", r.wrap(r.handleSubmitFinal))

		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/reports/stats", r.wrap(r.handleStats))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
		rt.Patch("/reports/{id}/flags", r.wrap(r.handleToggleFlag))

		rt.Post("/attachments", r.wrap(r.handleUploadAttachment))
		rt.Get("/visits/{id}/doctor-mapping", r.wrap(r.handleDoctorMapping))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, reports.ErrNotFound), errors.Is(err, questionnaire.ErrUnknownSubmission):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, reports.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, questionnaire.ErrBusy):
			http.Error(w, "a request is already in flight for this submission", http.StatusConflict)
		case errors.Is(err, questionnaire.ErrInvalidState),
			errors.Is(err, questionnaire.ErrIncompleteAnswers),
			errors.Is(err, questionnaire.ErrUnknownQuestion),
			errors.Is(err, questionnaire.ErrInvalidDepartment):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, errBadRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, analysis.ErrBadResponse):
			http.Error(w, "analysis service unavailable", http.StatusBadGateway)
		case errors.Is(err, analysis.ErrUnsupported):
			http.Error(w, err.Error(), http.StatusNotImplemented)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// GET /v1/questionnaire
func (r *Router) handleQuestionnaire(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, map[string]any{
		"categories":  questionnaire.Catalog(),
		"departments": reports.Departments(),
	})
}

// POST /v1/submissions
// Body: {"department": "...", "is_visible_to_doctors": bool, "doc_ids": [...]}
func (r *Router) handleBegin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Department         string   `json:"department"`
		IsVisibleToDoctors *bool    `json:"is_visible_to_doctors"`
		DocIDs             []string `json:"doc_ids"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	// Visibility defaults to on, like the form checkbox
	visible := true
	if body.IsVisibleToDoctors != nil {
		visible = *body.IsVisibleToDoctors
	}

	view, err := r.questionnaire.Begin(
		middleware.GetUserID(req.Context()),
		reports.Department(body.Department),
		visible,
		body.DocIDs,
	)
	if err != nil {
		return err
	}
	return writeJSON(w, view)
}

// GET /v1/submissions/{id}
func (r *Router) handleGetSubmission(w http.ResponseWriter, req *http.Request) error {
	view, err := r.questionnaire.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, view)
}

// POST /v1/submissions/{id}/initial
// Body: {"answers": [{"category": "...", "items": [{"question": "...", "answer": "..."}]}]}
func (r *Router) handleSubmitInitial(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	var body struct {
		Answers []reports.QnACategory `json:"answers"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	questions, err := r.questionnaire.SubmitInitial(req.Context(), id, body.Answers)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"followup_questions": questions,
	})
}

// POST /v1/submissions/{id}/final
// Body: {"followup_answers": {"question": "answer"}}
func (r *Router) handleSubmitFinal(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	var body struct {
		FollowUpAnswers map[string]string `json:"followup_answers"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	reportID, err := r.questionnaire.SubmitFinal(req.Context(), id, body.FollowUpAnswers)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"report_id": reportID,
	})
}

// GET /v1/reports
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	items, err := r.reports.List(req.Context(),
		middleware.GetUserID(req.Context()),
		middleware.GetRole(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"reports": items})
}

// GET /v1/reports/stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	if middleware.GetRole(req.Context()) != reports.RoleDoctor {
		return reports.ErrForbidden
	}
	stats, err := r.reports.Stats(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, stats)
}

// GET /v1/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	detail, err := r.reports.Get(req.Context(),
		reports.ReportID(chi.URLParam(req, "id")),
		middleware.GetUserID(req.Context()),
		middleware.GetRole(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, detail)
}

// PATCH /v1/reports/{id}/flags
// Body: {"toggle": "urgent"} or {"toggle": "bookmark"}
func (r *Router) handleToggleFlag(w http.ResponseWriter, req *http.Request) error {
	id := reports.ReportID(chi.URLParam(req, "id"))
	var body struct {
		Toggle string `json:"toggle"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	userID := middleware.GetUserID(req.Context())
	role := middleware.GetRole(req.Context())

	var value bool
	var err error
	switch body.Toggle {
	case "urgent":
		value, err = r.reports.ToggleUrgent(req.Context(), id, userID, role)
	case "bookmark":
		value, err = r.reports.ToggleBookmark(req.Context(), id, userID, role)
	default:
		return fmt.Errorf("%w: unknown toggle %q", errBadRequest, body.Toggle)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"id":     id,
		"toggle": body.Toggle,
		"value":  value,
	})
}

// POST /v1/attachments (multipart, field "file")
func (r *Router) handleUploadAttachment(w http.ResponseWriter, req *http.Request) error {
	if r.attachments == nil {
		http.Error(w, "attachment storage not configured", http.StatusServiceUnavailable)
		return nil
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer file.Close()

	docID, err := r.attachments.Upload(req.Context(),
		middleware.GetUserID(req.Context()), header.Filename, file, header.Size)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"doc_id":   docID,
		"doc_name": header.Filename,
	})
}

// GET /v1/visits/{id}/doctor-mapping
func (r *Router) handleDoctorMapping(w http.ResponseWriter, req *http.Request) error {
	visitID := chi.URLParam(req, "id")
	mapping, err := r.backend.DoctorMapping(req.Context(), visitID)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"visit_id":       visitID,
		"doctor_mapping": mapping,
	})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
