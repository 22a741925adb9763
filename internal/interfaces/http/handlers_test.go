package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockWorkflowService returns canned results per method
type mockWorkflowService struct {
	record     *entity.WorkflowRecord
	records    []*entity.WorkflowRecord
	history    []*entity.TransitionLogEntry
	available  []string
	err        error
	lastActor  entity.Actor
	lastName   string
	lastKind   entity.Kind
	lastCalled string
}

func (m *mockWorkflowService) CreateRecord(ctx context.Context, kind entity.Kind, actor entity.Actor, payload map[string]any) (*entity.WorkflowRecord, error) {
	m.lastCalled = "CreateRecord"
	m.lastKind = kind
	m.lastActor = actor
	return m.record, m.err
}

func (m *mockWorkflowService) FireTransition(ctx context.Context, recordID int64, transition string, actor entity.Actor, payload map[string]any) (*entity.WorkflowRecord, error) {
	m.lastCalled = "FireTransition"
	m.lastName = transition
	m.lastActor = actor
	return m.record, m.err
}

func (m *mockWorkflowService) GetRecord(ctx context.Context, id int64) (*entity.WorkflowRecord, error) {
	m.lastCalled = "GetRecord"
	return m.record, m.err
}

func (m *mockWorkflowService) History(ctx context.Context, recordID int64) ([]*entity.TransitionLogEntry, error) {
	m.lastCalled = "History"
	return m.history, m.err
}

func (m *mockWorkflowService) AvailableTransitions(ctx context.Context, recordID int64, actor entity.Actor) ([]string, error) {
	m.lastCalled = "AvailableTransitions"
	m.lastActor = actor
	return m.available, m.err
}

func (m *mockWorkflowService) ListByKind(ctx context.Context, kind entity.Kind, limit, offset int) ([]*entity.WorkflowRecord, error) {
	m.lastCalled = "ListByKind"
	m.lastKind = kind
	return m.records, m.err
}

type mockViewService struct {
	counts  map[workflow.State]int
	records []*entity.WorkflowRecord
	err     error
}

func (m *mockViewService) CountsByState(ctx context.Context, kind entity.Kind) (map[workflow.State]int, error) {
	return m.counts, m.err
}

func (m *mockViewService) PendingFor(ctx context.Context, actor entity.Actor) ([]*entity.WorkflowRecord, error) {
	return m.records, m.err
}

func (m *mockViewService) MineAndOverdue(ctx context.Context, actor entity.Actor) ([]*entity.WorkflowRecord, error) {
	return m.records, m.err
}

type mockReportService struct {
	path    string
	content []byte
	err     error
}

func (m *mockReportService) ExportStatusReport(ctx context.Context) (string, error) {
	return m.path, m.err
}

func (m *mockReportService) ExportHistory(ctx context.Context, recordID int64) ([]byte, error) {
	return m.content, m.err
}

// mockParticipationService captures child-record calls
type mockParticipationService struct {
	attendances  []*entity.TrainingAttendance
	applications []*entity.VacancyApplication
	err          error
	lastID       int64
	lastActor    entity.Actor
	lastStatus   string
	lastReason   string
}

func (m *mockParticipationService) AttendancesForSession(ctx context.Context, sessionID int64, actor entity.Actor) ([]*entity.TrainingAttendance, error) {
	m.lastID = sessionID
	m.lastActor = actor
	return m.attendances, m.err
}

func (m *mockParticipationService) RespondToInvitation(ctx context.Context, attendanceID int64, actor entity.Actor, status, declineReason string) error {
	m.lastID = attendanceID
	m.lastActor = actor
	m.lastStatus = status
	m.lastReason = declineReason
	return m.err
}

func (m *mockParticipationService) ApplicationsForVacancy(ctx context.Context, vacancyID int64, actor entity.Actor) ([]*entity.VacancyApplication, error) {
	m.lastID = vacancyID
	m.lastActor = actor
	return m.applications, m.err
}

func (m *mockParticipationService) ReviewApplication(ctx context.Context, applicationID int64, actor entity.Actor, status string) error {
	m.lastID = applicationID
	m.lastActor = actor
	m.lastStatus = status
	return m.err
}

func newTestServer(wf *mockWorkflowService, vw *mockViewService, rp *mockReportService) *Server {
	return NewServer(DefaultServerConfig(), wf, vw, rp, &mockParticipationService{}, nopLogger{})
}

func newParticipationServer(ps *mockParticipationService) *Server {
	return NewServer(DefaultServerConfig(), &mockWorkflowService{}, &mockViewService{}, &mockReportService{}, ps, nopLogger{})
}

func doRequest(srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func asActor(id string, role entity.Role) map[string]string {
	return map[string]string{
		headerUserID:   id,
		headerUserRole: string(role),
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/health", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateRecord(t *testing.T) {
	wf := &mockWorkflowService{
		record: &entity.WorkflowRecord{ID: 1, Kind: entity.KindDraft, Status: "draft", OwnerID: "u-1"},
	}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	body := map[string]any{
		"kind":    "draft",
		"payload": map[string]any{"title": "Q3 audit plan"},
	}
	w := doRequest(srv, http.MethodPost, "/api/records", body, asActor("u-1", entity.RoleAuthor))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if wf.lastKind != entity.KindDraft {
		t.Errorf("expected kind draft, got %s", wf.lastKind)
	}
	if wf.lastActor.ID != "u-1" || wf.lastActor.Role != entity.RoleAuthor {
		t.Errorf("actor not forwarded: %+v", wf.lastActor)
	}
}

func TestCreateRecord_UnknownKind(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	body := map[string]any{"kind": "expense_report"}
	w := doRequest(srv, http.MethodPost, "/api/records", body, asActor("u-1", entity.RoleAuthor))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateRecord_BadDate(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	body := map[string]any{
		"kind":    "draft",
		"payload": map[string]any{"deadline": "next tuesday"},
	}
	w := doRequest(srv, http.MethodPost, "/api/records", body, asActor("u-1", entity.RoleAuthor))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMissingIdentityHeaders(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	body := map[string]any{"kind": "draft"}
	w := doRequest(srv, http.MethodPost, "/api/records", body, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestInvalidRoleHeader(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	headers := map[string]string{headerUserID: "u-1", headerUserRole: "superuser"}
	w := doRequest(srv, http.MethodPost, "/api/records", map[string]any{"kind": "draft"}, headers)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestFireTransition(t *testing.T) {
	wf := &mockWorkflowService{
		record: &entity.WorkflowRecord{ID: 7, Kind: entity.KindDraft, Status: "under_review", Version: 2},
	}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	body := map[string]any{"transition": "submit_for_review"}
	w := doRequest(srv, http.MethodPost, "/api/records/7/transitions", body, asActor("u-1", entity.RoleAuthor))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if wf.lastName != "submit_for_review" {
		t.Errorf("transition not forwarded: %s", wf.lastName)
	}

	resp := decodeResponse(t, w)
	if !resp.Success {
		t.Error("expected success response")
	}
}

func TestFireTransition_Denied(t *testing.T) {
	wf := &mockWorkflowService{
		err: &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "approve",
			Message:    "requires role quality_manager",
		},
	}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	body := map[string]any{"transition": "approve"}
	w := doRequest(srv, http.MethodPost, "/api/records/7/transitions", body, asActor("u-1", entity.RoleEmployee))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Reason != string(workflow.DenialWrongRole) {
		t.Errorf("expected reason wrong_role, got %q", resp.Reason)
	}
}

func TestFireTransition_InvalidTransition(t *testing.T) {
	wf := &mockWorkflowService{err: workflow.ErrInvalidTransition}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	body := map[string]any{"transition": "publish"}
	w := doRequest(srv, http.MethodPost, "/api/records/7/transitions", body, asActor("u-1", entity.RoleAuthor))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestFireTransition_VersionConflict(t *testing.T) {
	wf := &mockWorkflowService{err: port.ErrVersionConflict}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	body := map[string]any{"transition": "approve"}
	w := doRequest(srv, http.MethodPost, "/api/records/7/transitions", body, asActor("u-2", entity.RoleQualityManager))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	wf := &mockWorkflowService{err: port.ErrNotFound}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/api/records/99", nil, nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetRecord_BadID(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/api/records/abc", nil, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAvailableTransitions(t *testing.T) {
	wf := &mockWorkflowService{available: []string{"submit_for_review"}}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/api/records/7/transitions", nil, asActor("u-1", entity.RoleAuthor))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	names, ok := resp.Data.([]any)
	if !ok || len(names) != 1 || names[0] != "submit_for_review" {
		t.Errorf("unexpected transitions payload: %v", resp.Data)
	}
}

func TestListRecords(t *testing.T) {
	wf := &mockWorkflowService{
		records: []*entity.WorkflowRecord{
			{ID: 1, Kind: entity.KindVacancy, Status: "open"},
			{ID: 2, Kind: entity.KindVacancy, Status: "draft"},
		},
	}
	srv := newTestServer(wf, &mockViewService{}, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/api/records?kind=vacancy", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if wf.lastKind != entity.KindVacancy {
		t.Errorf("expected kind vacancy, got %s", wf.lastKind)
	}
}

func TestCountsView(t *testing.T) {
	vw := &mockViewService{
		counts: map[workflow.State]int{"draft": 2, "published": 1},
	}
	srv := newTestServer(&mockWorkflowService{}, vw, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/api/views/counts?kind=policy", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPendingViewRequiresIdentity(t *testing.T) {
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, &mockReportService{})

	w := doRequest(srv, http.MethodGet, "/api/views/pending", nil, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRespondAttendance(t *testing.T) {
	ps := &mockParticipationService{}
	srv := newParticipationServer(ps)

	body := map[string]any{"status": "confirmed"}
	w := doRequest(srv, http.MethodPatch, "/api/attendances/3", body, asActor("u-5", entity.RoleEmployee))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ps.lastID != 3 || ps.lastStatus != entity.ConfirmationConfirmed {
		t.Errorf("call not forwarded: id=%d status=%s", ps.lastID, ps.lastStatus)
	}
	if ps.lastActor.ID != "u-5" {
		t.Errorf("actor not forwarded: %+v", ps.lastActor)
	}
}

func TestRespondAttendance_UnknownStatus(t *testing.T) {
	srv := newParticipationServer(&mockParticipationService{})

	body := map[string]any{"status": "maybe"}
	w := doRequest(srv, http.MethodPatch, "/api/attendances/3", body, asActor("u-5", entity.RoleEmployee))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRespondAttendance_WrongUser(t *testing.T) {
	ps := &mockParticipationService{
		err: &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "respond_invitation",
			Message:    "only the invited analyst may respond",
		},
	}
	srv := newParticipationServer(ps)

	body := map[string]any{"status": "confirmed"}
	w := doRequest(srv, http.MethodPatch, "/api/attendances/3", body, asActor("u-9", entity.RoleEmployee))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Reason != string(workflow.DenialWrongRole) {
		t.Errorf("expected reason wrong_role, got %q", resp.Reason)
	}
}

func TestRespondAttendance_NotFound(t *testing.T) {
	ps := &mockParticipationService{err: port.ErrNotFound}
	srv := newParticipationServer(ps)

	body := map[string]any{"status": "confirmed"}
	w := doRequest(srv, http.MethodPatch, "/api/attendances/99", body, asActor("u-5", entity.RoleEmployee))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListSessionAttendances(t *testing.T) {
	ps := &mockParticipationService{
		attendances: []*entity.TrainingAttendance{
			{ID: 1, SessionID: 10, AnalystID: "u-5", ConfirmationStatus: entity.ConfirmationPending},
			{ID: 2, SessionID: 10, AnalystID: "u-6", ConfirmationStatus: entity.ConfirmationConfirmed},
		},
	}
	srv := newParticipationServer(ps)

	w := doRequest(srv, http.MethodGet, "/api/sessions/10/attendances", nil, asActor("u-tm", entity.RoleTrainingManager))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	rows, ok := resp.Data.([]any)
	if !ok || len(rows) != 2 {
		t.Errorf("unexpected roster payload: %v", resp.Data)
	}
	if ps.lastID != 10 {
		t.Errorf("session id not forwarded: %d", ps.lastID)
	}
}

func TestReviewApplication(t *testing.T) {
	ps := &mockParticipationService{}
	srv := newParticipationServer(ps)

	body := map[string]any{"status": "shortlisted"}
	w := doRequest(srv, http.MethodPatch, "/api/applications/4", body, asActor("u-hr", entity.RoleHRManager))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ps.lastID != 4 || ps.lastStatus != entity.ApplicationShortlisted {
		t.Errorf("call not forwarded: id=%d status=%s", ps.lastID, ps.lastStatus)
	}
}

func TestReviewApplication_RequiresIdentity(t *testing.T) {
	srv := newParticipationServer(&mockParticipationService{})

	body := map[string]any{"status": "shortlisted"}
	w := doRequest(srv, http.MethodPatch, "/api/applications/4", body, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListVacancyApplications_Forbidden(t *testing.T) {
	ps := &mockParticipationService{
		err: &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "list_applications",
			Message:    "requires role hr_manager",
		},
	}
	srv := newParticipationServer(ps)

	w := doRequest(srv, http.MethodGet, "/api/vacancies/20/applications", nil, asActor("u-emp", entity.RoleEmployee))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestExportHistory(t *testing.T) {
	rp := &mockReportService{content: []byte("workbook-bytes")}
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, rp)

	w := doRequest(srv, http.MethodGet, "/api/records/7/history/export", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got == "" {
		t.Error("expected attachment disposition header")
	}
	if w.Body.String() != "workbook-bytes" {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestExportStatusReport(t *testing.T) {
	rp := &mockReportService{path: "reports/status-20260829-120000.xlsx"}
	srv := newTestServer(&mockWorkflowService{}, &mockViewService{}, rp)

	w := doRequest(srv, http.MethodPost, "/api/reports/status", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	if !ok || data["path"] != rp.path {
		t.Errorf("unexpected report payload: %v", resp.Data)
	}
}
