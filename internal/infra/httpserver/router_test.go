package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejxv/PULSE/internal/application"
	appreports "github.com/tejxv/PULSE/internal/application/reports"
	"github.com/tejxv/PULSE/internal/application/questionnaire"
	"github.com/tejxv/PULSE/internal/domain/analysis"
	"github.com/tejxv/PULSE/internal/domain/reports"
	"github.com/tejxv/PULSE/internal/middleware"
)

type memRepo struct {
	byID map[reports.ReportID]*reports.Report
}

func (m *memRepo) Save(ctx context.Context, r *reports.Report) error {
	m.byID[r.ID] = r
	return nil
}

func (m *memRepo) Get(ctx context.Context, id reports.ReportID) (*reports.Report, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) ListByUser(ctx context.Context, userID string) ([]*reports.Report, error) {
	var out []*reports.Report
	for _, r := range m.byID {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) ListVisibleToDoctors(ctx context.Context) ([]*reports.Report, error) {
	var out []*reports.Report
	for _, r := range m.byID {
		if r.IsVisibleToDoctors {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateFlags(ctx context.Context, id reports.ReportID, u reports.FlagUpdate) error {
	r, ok := m.byID[id]
	if !ok {
		return reports.ErrNotFound
	}
	if u.IsUrgent != nil {
		r.IsUrgent = *u.IsUrgent
	}
	if u.IsBookmarked != nil {
		r.IsBookmarked = *u.IsBookmarked
	}
	return nil
}

type stubBackend struct {
	questions []string
	summary   string
	mapping   map[string]any
}

func (b *stubBackend) FollowUpQuestions(ctx context.Context, qna map[string]string, department string) ([]string, error) {
	return b.questions, nil
}

func (b *stubBackend) Summarize(ctx context.Context, req analysis.SummaryRequest) (string, error) {
	return b.summary, nil
}

func (b *stubBackend) DoctorMapping(ctx context.Context, visitID string) (map[string]any, error) {
	return b.mapping, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	repo := &memRepo{byID: make(map[reports.ReportID]*reports.Report)}
	backend := &stubBackend{
		questions: []string{"Is the cough productive?", "Any recent travel?"},
		summary: "## Patient of 45 years old, Male\n\n" +
			"- **Symptoms:**\n" +
			"  - Persistent fever\n",
		mapping: map[string]any{"General Medicine": "Dr. House"},
	}

	qsvc := questionnaire.NewService(repo, backend, application.SystemClock{}, nil)
	rsvc := appreports.NewService(repo, nil)

	auth := middleware.BearerAuth(map[string]middleware.Identity{
		"patient-token": {UserID: "alice", Role: reports.RolePatient},
		"doctor-token":  {UserID: "drhouse", Role: reports.RoleDoctor},
	})
	srv := httptest.NewServer(auth(NewRouter(qsvc, rsvc, backend, nil)))
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func answeredCatalog() []reports.QnACategory {
	cats := questionnaire.Catalog()
	for i := range cats {
		for j := range cats[i].Items {
			cats[i].Items[j].Answer = "answered"
		}
	}
	return cats
}

func TestFullQuestionnaireFlow(t *testing.T) {
	srv, repo := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/questionnaire", "patient-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var catalog struct {
		Categories  []reports.QnACategory `json:"categories"`
		Departments []reports.Department  `json:"departments"`
	}
	decode(t, resp, &catalog)
	assert.NotEmpty(t, catalog.Categories)
	assert.Contains(t, catalog.Departments, reports.DeptGeneralMedicine)

	resp = do(t, http.MethodPost, srv.URL+"/v1/submissions", "patient-token", map[string]any{
		"department": "General Medicine",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view questionnaire.View
	decode(t, resp, &view)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, "idle", view.State)

	subURL := srv.URL + "/v1/submissions/" + view.ID
	resp = do(t, http.MethodPost, subURL+"/initial", "patient-token", map[string]any{
		"answers": answeredCatalog(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var followup struct {
		Questions []string `json:"followup_questions"`
	}
	decode(t, resp, &followup)
	assert.Len(t, followup.Questions, 2)

	resp = do(t, http.MethodPost, subURL+"/final", "patient-token", map[string]any{
		"followup_answers": map[string]string{
			"Is the cough productive?": "yes",
			"Any recent travel?":       "no",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var final struct {
		ReportID reports.ReportID `json:"report_id"`
	}
	decode(t, resp, &final)
	require.NotEmpty(t, final.ReportID)
	require.Contains(t, repo.byID, final.ReportID)

	// The submission is discarded once its report is persisted
	resp = do(t, http.MethodGet, subURL, "patient-token", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/v1/reports", "patient-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Reports []appreports.ListItem `json:"reports"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Reports, 1)
	assert.Equal(t, final.ReportID, list.Reports[0].ID)
	assert.Equal(t, "Patient of 45 years old, Male", list.Reports[0].Title)

	resp = do(t, http.MethodGet, srv.URL+"/v1/reports/"+string(final.ReportID), "patient-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail appreports.Detail
	decode(t, resp, &detail)
	assert.Equal(t, "45", detail.Parsed.Patient.Age)

	resp = do(t, http.MethodPatch, srv.URL+"/v1/reports/"+string(final.ReportID)+"/flags",
		"patient-token", map[string]any{"toggle": "urgent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled struct {
		Value bool `json:"value"`
	}
	decode(t, resp, &toggled)
	assert.True(t, toggled.Value)
	assert.True(t, repo.byID[final.ReportID].IsUrgent)
}

func TestErrorStatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("unknown submission is 404", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/v1/submissions/nope/final", "patient-token",
			map[string]any{"followup_answers": map[string]string{}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid department is 422", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/v1/submissions", "patient-token",
			map[string]any{"department": "Telepathy"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("incomplete answers are 422", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/v1/submissions", "patient-token",
			map[string]any{"department": "General Medicine"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var view questionnaire.View
		decode(t, resp, &view)

		resp = do(t, http.MethodPost, srv.URL+"/v1/submissions/"+view.ID+"/initial",
			"patient-token", map[string]any{"answers": []reports.QnACategory{}})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("final before follow-ups is 422", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/v1/submissions", "patient-token",
			map[string]any{"department": "General Medicine"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var view questionnaire.View
		decode(t, resp, &view)

		resp = do(t, http.MethodPost, srv.URL+"/v1/submissions/"+view.ID+"/final",
			"patient-token", map[string]any{"followup_answers": map[string]string{}})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/submissions",
			bytes.NewBufferString("{not json"))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer patient-token")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing token is 401", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/reports")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestStatsEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.byID["r1"] = &reports.Report{
		ID: "r1", UserID: "alice", Analysis: "## x", IsVisibleToDoctors: true, IsUrgent: true,
	}

	t.Run("patient is forbidden", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/v1/reports/stats", "patient-token", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("doctor gets counters", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/v1/reports/stats", "doctor-token", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var st appreports.Stats
		decode(t, resp, &st)
		assert.Equal(t, appreports.Stats{Total: 1, Urgent: 1}, st)
	})
}

func TestDoctorMappingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/visits/v-123/doctor-mapping", "patient-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		VisitID string         `json:"visit_id"`
		Mapping map[string]any `json:"doctor_mapping"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "v-123", body.VisitID)
	assert.Equal(t, "Dr. House", body.Mapping["General Medicine"])
}
