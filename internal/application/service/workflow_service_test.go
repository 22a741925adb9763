package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/imcpnet/intranet-workflow/internal/application/dispatcher"
	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/event"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockRecordRepo is an in-memory RecordRepository with optimistic locking
type mockRecordRepo struct {
	records map[int64]*entity.WorkflowRecord
	nextID  int64
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[int64]*entity.WorkflowRecord), nextID: 1}
}

func (m *mockRecordRepo) Create(ctx context.Context, rec *entity.WorkflowRecord) error {
	rec.ID = m.nextID
	m.nextID++
	m.records[rec.ID] = rec.Clone()
	return nil
}

func (m *mockRecordRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *mockRecordRepo) Save(ctx context.Context, rec *entity.WorkflowRecord, expectedVersion int64) error {
	stored, ok := m.records[rec.ID]
	if !ok {
		return port.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	m.records[rec.ID] = rec.Clone()
	return nil
}

func (m *mockRecordRepo) ListByKind(ctx context.Context, kind entity.Kind, limit, offset int) ([]*entity.WorkflowRecord, error) {
	var out []*entity.WorkflowRecord
	for _, rec := range m.records {
		if rec.Kind == kind {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (m *mockRecordRepo) ListActive(ctx context.Context) ([]*entity.WorkflowRecord, error) {
	var out []*entity.WorkflowRecord
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// mockLogRepo is an in-memory append-only TransitionLogRepository
type mockLogRepo struct {
	entries []*entity.TransitionLogEntry
}

func (m *mockLogRepo) Append(ctx context.Context, entry *entity.TransitionLogEntry) error {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLogRepo) HistoryFor(ctx context.Context, recordID int64) ([]*entity.TransitionLogEntry, error) {
	var out []*entity.TransitionLogEntry
	for _, e := range m.entries {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockAttendanceRepo is an in-memory AttendanceRepository
type mockAttendanceRepo struct {
	rows []*entity.TrainingAttendance
}

func (m *mockAttendanceRepo) Create(ctx context.Context, att *entity.TrainingAttendance) error {
	att.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, att)
	return nil
}

func (m *mockAttendanceRepo) GetByID(ctx context.Context, id int64) (*entity.TrainingAttendance, error) {
	for _, a := range m.rows {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockAttendanceRepo) GetBySessionID(ctx context.Context, sessionID int64) ([]*entity.TrainingAttendance, error) {
	var out []*entity.TrainingAttendance
	for _, a := range m.rows {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) ExistsForUser(ctx context.Context, sessionID int64, analystID string) (bool, error) {
	for _, a := range m.rows {
		if a.SessionID == sessionID && a.AnalystID == analystID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceRepo) UpdateConfirmation(ctx context.Context, id int64, status, declineReason string) error {
	for _, a := range m.rows {
		if a.ID == id {
			a.ConfirmationStatus = status
			a.DeclineReason = declineReason
			return nil
		}
	}
	return port.ErrNotFound
}

// mockApplicationRepo is an in-memory ApplicationRepository
type mockApplicationRepo struct {
	rows []*entity.VacancyApplication
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *entity.VacancyApplication) error {
	app.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, app)
	return nil
}

func (m *mockApplicationRepo) GetByID(ctx context.Context, id int64) (*entity.VacancyApplication, error) {
	for _, a := range m.rows {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockApplicationRepo) GetByVacancyID(ctx context.Context, vacancyID int64) ([]*entity.VacancyApplication, error) {
	var out []*entity.VacancyApplication
	for _, a := range m.rows {
		if a.VacancyID == vacancyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockApplicationRepo) ExistsForApplicant(ctx context.Context, vacancyID int64, applicantID string) (bool, error) {
	for _, a := range m.rows {
		if a.VacancyID == vacancyID && a.ApplicantID == applicantID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	for _, a := range m.rows {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return port.ErrNotFound
}

// mockNotificationRepo is an in-memory NotificationRepository
type mockNotificationRepo struct {
	rows []*entity.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	n.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, n)
	return nil
}

func (m *mockNotificationRepo) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range m.rows {
		if n.Status == entity.NotificationStatusPending {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	for _, n := range m.rows {
		if n.ID == id {
			n.Status = entity.NotificationStatusSent
			return nil
		}
	}
	return port.ErrNotFound
}

func (m *mockNotificationRepo) UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error {
	for _, n := range m.rows {
		if n.ID == id {
			n.Status = status
			n.ErrorMsg = errorMsg
			return nil
		}
	}
	return port.ErrNotFound
}

// mockDirectory resolves role groups from a fixed user set
type mockDirectory struct {
	users []*entity.User
}

func (m *mockDirectory) GetUser(ctx context.Context, id string) (*entity.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockDirectory) LookupUsersByGroup(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.Role == role || role == entity.RoleEmployee {
			out = append(out, u)
		}
	}
	return out, nil
}

// mockNotifier records sends and can be told to fail
type mockNotifier struct {
	sent []int64
	fail bool
}

func (m *mockNotifier) Send(ctx context.Context, n *entity.Notification) error {
	if m.fail {
		return fmt.Errorf("gateway unavailable")
	}
	m.sent = append(m.sent, n.ID)
	return nil
}

// passthroughTx runs the function without a real transaction
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc           WorkflowService
	views         ViewService
	notifications NotificationService
	recordRepo    *mockRecordRepo
	logRepo       *mockLogRepo
	attendance    *mockAttendanceRepo
	applications  *mockApplicationRepo
	notifRepo     *mockNotificationRepo
	notifier      *mockNotifier
	events        dispatcher.Dispatcher
}

func newFixture() *fixture {
	recordRepo := newMockRecordRepo()
	logRepo := &mockLogRepo{}
	attendance := &mockAttendanceRepo{}
	applications := &mockApplicationRepo{}
	notifRepo := &mockNotificationRepo{}
	notifier := &mockNotifier{}
	directory := &mockDirectory{users: []*entity.User{
		{ID: "u-qm", Name: "QM", Email: "qm@corp.example", Role: entity.RoleQualityManager},
		{ID: "u-bo", Name: "Budget", Email: "bo@corp.example", Role: entity.RoleBudgetOwner},
	}}

	logger := nopLogger{}
	engine := workflow.NewEngine(workflow.Default())
	notifications := NewNotificationService(notifRepo, directory, notifier, logger)
	effects := NewEffectApplier(attendance, applications, notifications, logger)
	events := dispatcher.NewDispatcher()
	svc := NewWorkflowService(engine, recordRepo, logRepo, effects, passthroughTx{}, events, logger)
	views := NewViewService(workflow.NewViews(engine.Registry()), recordRepo, logger)

	return &fixture{
		svc:           svc,
		views:         views,
		notifications: notifications,
		recordRepo:    recordRepo,
		logRepo:       logRepo,
		attendance:    attendance,
		applications:  applications,
		notifRepo:     notifRepo,
		notifier:      notifier,
		events:        events,
	}
}

func TestWorkflowService_CreateAndFire(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindDraft, author, map[string]any{"title": "Manual"})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if rec.Status != "draft" || rec.Version != 1 {
		t.Fatalf("new record status=%s version=%d, want draft/1", rec.Status, rec.Version)
	}

	updated, err := fx.svc.FireTransition(ctx, rec.ID, "submit_for_review", author, nil)
	if err != nil {
		t.Fatalf("FireTransition() error = %v", err)
	}
	if updated.Status != "under_review" || updated.Version != 2 {
		t.Errorf("record status=%s version=%d, want under_review/2", updated.Status, updated.Version)
	}

	// The stored record and the log entry both reflect the transition.
	stored, _ := fx.recordRepo.GetByID(ctx, rec.ID)
	if stored.Status != "under_review" {
		t.Errorf("stored status = %s, want under_review", stored.Status)
	}
	history, err := fx.svc.History(ctx, rec.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].TransitionName != "submit_for_review" || history[0].ActorID != author.ID {
		t.Errorf("history = %+v, want one submit_for_review entry by %s", history, author.ID)
	}
}

func TestWorkflowService_DenialLeavesStateUntouched(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindApproval, author, nil)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	_, err = fx.svc.FireTransition(ctx, rec.ID, "reject",
		entity.Actor{ID: "u-qm", Role: entity.RoleQualityManager},
		map[string]any{"reason": ""})
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("FireTransition() error = %v, want ErrDenied", err)
	}

	stored, _ := fx.recordRepo.GetByID(ctx, rec.ID)
	if stored.Status != "pending" || stored.Version != 1 {
		t.Errorf("record mutated on denial: status=%s version=%d", stored.Status, stored.Version)
	}
	if history, _ := fx.svc.History(ctx, rec.ID); len(history) != 0 {
		t.Errorf("denial produced %d log entries, want 0", len(history))
	}
}

func TestWorkflowService_StaleVersionConflict(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindDraft, author, nil)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	// Another writer commits a transition between this caller's load and save.
	stale, _ := fx.recordRepo.GetByID(ctx, rec.ID)
	winner := stale.Clone()
	winner.Status = "under_review"
	winner.Version = 2
	fx.recordRepo.records[rec.ID] = winner

	err = fx.recordRepo.Save(ctx, stale, stale.Version)
	if !errors.Is(err, port.ErrVersionConflict) {
		t.Fatalf("Save() error = %v, want ErrVersionConflict", err)
	}
}

func TestWorkflowService_AttendanceFanOutPersists(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tm := entity.Actor{ID: "u-tm", Role: entity.RoleTrainingManager}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindTrainingSession, tm, map[string]any{"course": "AML refresher"})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	payload := map[string]any{"user_ids": []string{"u-5", "u-6", "u-7"}}
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "assign_participants", tm, payload); err != nil {
		t.Fatalf("FireTransition() error = %v", err)
	}
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "assign_participants", tm, payload); err != nil {
		t.Fatalf("second FireTransition() error = %v", err)
	}

	rows, _ := fx.attendance.GetBySessionID(ctx, rec.ID)
	if len(rows) != 3 {
		t.Errorf("attendance rows = %d, want 3", len(rows))
	}
	for _, row := range rows {
		if row.ConfirmationStatus != entity.ConfirmationPending {
			t.Errorf("attendance status = %s, want pending", row.ConfirmationStatus)
		}
	}
}

func TestWorkflowService_VacancyApplication(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	hr := entity.Actor{ID: "u-hr", Role: entity.RoleHRManager}
	bo := entity.Actor{ID: "u-bo", Role: entity.RoleBudgetOwner}
	applicant := entity.Actor{ID: "u-emp", Role: entity.RoleEmployee}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindVacancy, hr, map[string]any{"title": "Senior Analyst"})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	if _, err := fx.svc.FireTransition(ctx, rec.ID, "submit_for_approval", hr, nil); err != nil {
		t.Fatalf("submit_for_approval: %v", err)
	}
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "approve_budget", bo, nil); err != nil {
		t.Fatalf("approve_budget: %v", err)
	}
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "publish", hr, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "apply", applicant, map[string]any{"cover_letter": "interested"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Applying again changes nothing.
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "apply", applicant, nil); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	apps, _ := fx.applications.GetByVacancyID(ctx, rec.ID)
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want 1", len(apps))
	}
	if apps[0].ApplicantID != "u-emp" || apps[0].Status != entity.ApplicationSubmitted {
		t.Errorf("application = %+v, want submitted by u-emp", apps[0])
	}
}

func TestWorkflowService_ChildEventsPublished(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tm := entity.Actor{ID: "u-tm", Role: entity.RoleTrainingManager}
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	var mu sync.Mutex
	seen := map[event.Type]int{}
	for _, typ := range []event.Type{
		event.TypeAttendanceCreated,
		event.TypeApplicationCreated,
		event.TypeNotificationQueued,
	} {
		fx.events.SubscribeNamed(typ, "collector", func(ctx context.Context, evt *event.Event) error {
			mu.Lock()
			seen[evt.Type]++
			mu.Unlock()
			return nil
		})
	}

	session, err := fx.svc.CreateRecord(ctx, entity.KindTrainingSession, tm, nil)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	payload := map[string]any{"user_ids": []string{"u-5", "u-6"}}
	if _, err := fx.svc.FireTransition(ctx, session.ID, "assign_participants", tm, payload); err != nil {
		t.Fatalf("assign_participants: %v", err)
	}
	// Replaying the assignment writes no rows, so it publishes no events.
	if _, err := fx.svc.FireTransition(ctx, session.ID, "assign_participants", tm, payload); err != nil {
		t.Fatalf("second assign_participants: %v", err)
	}

	doc, err := fx.svc.CreateRecord(ctx, entity.KindLibraryDocument, author, map[string]any{"title": "Glossary"})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if _, err := fx.svc.FireTransition(ctx, doc.ID, "submit_for_approval", author, nil); err != nil {
		t.Fatalf("submit_for_approval: %v", err)
	}

	hr := entity.Actor{ID: "u-hr", Role: entity.RoleHRManager}
	bo := entity.Actor{ID: "u-bo", Role: entity.RoleBudgetOwner}
	vacancy, err := fx.svc.CreateRecord(ctx, entity.KindVacancy, hr, nil)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	for _, step := range []struct {
		name  string
		actor entity.Actor
	}{
		{"submit_for_approval", hr},
		{"approve_budget", bo},
		{"publish", hr},
		{"apply", author},
	} {
		if _, err := fx.svc.FireTransition(ctx, vacancy.ID, step.name, step.actor, nil); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
	}

	if err := fx.events.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[event.TypeAttendanceCreated] != 2 {
		t.Errorf("attendance.created events = %d, want 2", seen[event.TypeAttendanceCreated])
	}
	if seen[event.TypeApplicationCreated] != 1 {
		t.Errorf("application.created events = %d, want 1", seen[event.TypeApplicationCreated])
	}
	if seen[event.TypeNotificationQueued] == 0 {
		t.Error("expected at least one notification.queued event")
	}
}

func TestWorkflowService_AvailableTransitions(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindDraft, author, nil)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	names, err := fx.svc.AvailableTransitions(ctx, rec.ID, author)
	if err != nil {
		t.Fatalf("AvailableTransitions() error = %v", err)
	}
	if len(names) != 1 || names[0] != "submit_for_review" {
		t.Errorf("available = %v, want [submit_for_review]", names)
	}

	stranger := entity.Actor{ID: "u-other", Role: entity.RoleEmployee}
	names, err = fx.svc.AvailableTransitions(ctx, rec.ID, stranger)
	if err != nil {
		t.Fatalf("AvailableTransitions() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("available for stranger = %v, want none", names)
	}
}

func TestNotificationService_DeliveryFailureIsNonFatal(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	rec, err := fx.svc.CreateRecord(ctx, entity.KindLibraryDocument, author, map[string]any{"title": "Glossary"})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	// submit_for_approval queues a notification for the quality managers.
	if _, err := fx.svc.FireTransition(ctx, rec.ID, "submit_for_approval", author, nil); err != nil {
		t.Fatalf("FireTransition() error = %v", err)
	}
	if len(fx.notifRepo.rows) == 0 {
		t.Fatal("expected queued notifications")
	}

	fx.notifier.fail = true
	if err := fx.notifications.DeliverPending(ctx, 10); err != nil {
		t.Fatalf("DeliverPending() error = %v", err)
	}
	for _, n := range fx.notifRepo.rows {
		if n.Status != entity.NotificationStatusFailed {
			t.Errorf("notification status = %s, want FAILED", n.Status)
		}
	}

	// Failure marked the rows; the record's transition stands.
	stored, _ := fx.recordRepo.GetByID(ctx, rec.ID)
	if stored.Status != "pending_approval" {
		t.Errorf("record status = %s, want pending_approval", stored.Status)
	}
}

func TestViewService_CountsAndPending(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	author := entity.Actor{ID: "u-author", Role: entity.RoleEmployee}

	for i := 0; i < 3; i++ {
		if _, err := fx.svc.CreateRecord(ctx, entity.KindDraft, author, nil); err != nil {
			t.Fatalf("CreateRecord() error = %v", err)
		}
	}

	counts, err := fx.views.CountsByState(ctx, entity.KindDraft)
	if err != nil {
		t.Fatalf("CountsByState() error = %v", err)
	}
	if counts[workflow.StateDraft] != 3 {
		t.Errorf("draft count = %d, want 3", counts[workflow.StateDraft])
	}

	pending, err := fx.views.PendingFor(ctx, author)
	if err != nil {
		t.Fatalf("PendingFor() error = %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("pending = %d, want 3", len(pending))
	}
}
