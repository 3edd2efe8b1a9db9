package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/notification"
	"github.com/hackgods/clinic-booking/internal/patient"
	"github.com/hackgods/clinic-booking/internal/storage"
)

type fakeBookings struct {
	created   *appointment.BookingRequest
	createErr error
	cancelled uuid.UUID
	cancelErr error
	status    string
	statusErr error
	slots     []appointment.Slot
	slotErr   error
	deleteErr error
}

func (f *fakeBookings) CreateBooking(_ context.Context, req appointment.BookingRequest) (*appointment.BookingResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &req
	id := uuid.New()
	return &appointment.BookingResult{AppointmentID: id, BookingID: "PN-20250601-0001"}, nil
}

func (f *fakeBookings) BookSlot(_ context.Context, _, _ uuid.UUID, _ string) (*appointment.BookingResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &appointment.BookingResult{AppointmentID: uuid.New(), BookingID: "PN-20250601-0002"}, nil
}

func (f *fakeBookings) CancelBooking(_ context.Context, id uuid.UUID, _ string) (*appointment.Appointment, error) {
	f.cancelled = id
	return &appointment.Appointment{ID: id}, f.cancelErr
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*appointment.Appointment, error) {
	f.status = status
	return &appointment.Appointment{ID: id}, f.statusErr
}

func (f *fakeBookings) ListAppointments(context.Context) ([]appointment.Appointment, error) {
	return []appointment.Appointment{{ID: uuid.MustParse("00000000-0000-0000-0000-0000001a2b3c"), Status: appointment.StatusPending}}, nil
}

func (f *fakeBookings) AvailableSlots(_ context.Context, _ string) ([]appointment.Slot, error) {
	return f.slots, f.slotErr
}

func (f *fakeBookings) Overview(context.Context) ([]appointment.Slot, error) {
	return f.slots, f.slotErr
}

func (f *fakeBookings) AddSlot(_ context.Context, date, clock string) (*appointment.Slot, error) {
	if f.slotErr != nil {
		return nil, f.slotErr
	}
	return &appointment.Slot{ID: uuid.New(), Date: date, Time: clock}, nil
}

func (f *fakeBookings) DeleteSlot(context.Context, uuid.UUID) error { return f.deleteErr }

func (f *fakeBookings) Stats(context.Context) (*appointment.DashboardStats, error) {
	return &appointment.DashboardStats{KPI: appointment.KPI{TotalAppointments: 3}}, nil
}

type fakePatients struct {
	entry   *patient.Entry
	getErr  error
	summary string
}

func (f *fakePatients) List(context.Context) ([]patient.Entry, error) {
	if f.entry == nil {
		return nil, nil
	}
	return []patient.Entry{*f.entry}, nil
}

func (f *fakePatients) Get(context.Context, uuid.UUID) (*patient.Entry, error) {
	return f.entry, f.getErr
}

func (f *fakePatients) History(context.Context, uuid.UUID) ([]patient.MedicalRecord, error) {
	return []patient.MedicalRecord{}, nil
}

func (f *fakePatients) AddRecord(_ context.Context, id uuid.UUID, rec patient.MedicalRecord) (*patient.MedicalRecord, error) {
	if rec.Diagnosis == "" {
		return nil, fmt.Errorf("%w: diagnosis is required", patient.ErrInvalidRecord)
	}
	rec.PatientID = id
	return &rec, nil
}

func (f *fakePatients) GenerateSummary(context.Context, uuid.UUID) (string, error) {
	return f.summary, f.getErr
}

func (f *fakePatients) Summarize(_ context.Context, records []patient.MedicalRecord) string {
	return fmt.Sprintf("%d records", len(records))
}

type fakeNotifications struct {
	limit  int
	marked []uuid.UUID
}

func (f *fakeNotifications) ListRecent(_ context.Context, limit int) ([]notification.Notification, error) {
	f.limit = limit
	return nil, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.marked = ids
	return 2, nil
}

type fakeUploads struct{ err error }

func (f fakeUploads) Presign(_ context.Context, name, _ string) (*storage.Upload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.Upload{UploadURL: "https://signed/" + name, FileURL: "https://public/" + name}, nil
}

type testDeps struct {
	bookings      *fakeBookings
	patients      *fakePatients
	notifications *fakeNotifications
	uploads       fakeUploads
	sessions      SessionService
	auth          func(http.Handler) http.Handler
}

func newTestRouter(d *testDeps) http.Handler {
	if d.bookings == nil {
		d.bookings = &fakeBookings{}
	}
	if d.patients == nil {
		d.patients = &fakePatients{}
	}
	if d.notifications == nil {
		d.notifications = &fakeNotifications{}
	}
	ok := PingFunc(func(context.Context) error { return nil })
	return NewRouter(RouterConfig{
		Bookings:      d.bookings,
		Patients:      d.patients,
		Notifications: d.notifications,
		Uploads:       d.uploads,
		Sessions:      d.sessions,
		Health:        NewHealthHandler(ok, ok, "test", "v0"),
		Auth:          d.auth,
		CORSOrigins:   []string{"http://localhost:3000"},
		Logger:        zerolog.Nop(),
	})
}

func do(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestCreateAppointment(t *testing.T) {
	d := &testDeps{}
	h := newTestRouter(d)
	slotID := uuid.New()

	rec := do(h, http.MethodPost, "/appointments", map[string]any{
		"patient_name":  "Jane Doe",
		"patient_email": "jane@x.com",
		"patient_phone": "123",
		"date":          "2025-06-01",
		"time":          "9:00 AM",
		"slot_id":       slotID.String(),
		"file_urls":     []string{"https://public/a.pdf"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PN-20250601-0001", resp.CustomID)
	require.NotNil(t, d.bookings.created)
	assert.Equal(t, "Jane Doe", d.bookings.created.Patient.Name)
	assert.Equal(t, &slotID, d.bookings.created.SlotID)
	assert.Equal(t, []string{"https://public/a.pdf"}, d.bookings.created.FileURLs)
}

func TestCreateAppointmentErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   any
		err    error
		status int
		code   string
	}{
		{"bad json", "nope", nil, http.StatusBadRequest, "invalid_request_body"},
		{"bad slot id", map[string]string{"slot_id": "x"}, nil, http.StatusBadRequest, "invalid_slot_id"},
		{"slot taken", map[string]string{}, fmt.Errorf("book: %w", appointment.ErrSlotUnavailable), http.StatusConflict, "slot_unavailable"},
		{"slot missing", map[string]string{}, appointment.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
		{"invalid", map[string]string{}, fmt.Errorf("%w: time is required", appointment.ErrInvalidBooking), http.StatusBadRequest, "invalid_booking"},
		{"sequence down", map[string]string{}, fmt.Errorf("%w: redis", appointment.ErrUpstreamUnavailable), http.StatusServiceUnavailable, "upstream_unavailable"},
		{"unknown", map[string]string{}, errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&testDeps{bookings: &fakeBookings{createErr: tc.err}})
			rec := do(h, http.MethodPost, "/appointments", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			e := decodeErr(t, rec)
			assert.Equal(t, tc.code, e.Error)
			assert.NotContains(t, e.Details, "disk on fire")
		})
	}
}

func TestListAppointmentsFallsBackToShortID(t *testing.T) {
	h := newTestRouter(&testDeps{})
	rec := do(h, http.MethodGet, "/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "#1A2B3C", list[0].CustomID)
	assert.Equal(t, []string{}, list[0].FileURLs)
}

func TestCancelAndStatus(t *testing.T) {
	d := &testDeps{}
	h := newTestRouter(d)
	id := uuid.New()

	rec := do(h, http.MethodPost, "/appointments/cancel", CancelRequest{ID: id.String(), Reason: "sick"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, d.bookings.cancelled)

	rec = do(h, http.MethodPost, "/appointments/cancel", CancelRequest{ID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPut, "/appointments/"+id.String()+"/status", StatusRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", d.bookings.status)

	d.bookings.statusErr = appointment.ErrInvalidStatus
	rec = do(h, http.MethodPut, "/appointments/"+id.String()+"/status", StatusRequest{Status: "DONE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	d.bookings.statusErr = fmt.Errorf("%w: COMPLETED -> PENDING", appointment.ErrInvalidStatusTransition)
	rec = do(h, http.MethodPut, "/appointments/"+id.String()+"/status", StatusRequest{Status: "PENDING"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	d.bookings.cancelErr = appointment.ErrAppointmentNotFound
	rec = do(h, http.MethodPost, "/appointments/cancel", CancelRequest{ID: id.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSlotRoutes(t *testing.T) {
	apptID := uuid.New()
	d := &testDeps{bookings: &fakeBookings{slots: []appointment.Slot{
		{ID: uuid.New(), Date: "2025-06-01", Time: "9:00 AM"},
		{ID: uuid.New(), Date: "2025-06-01", Time: "10:00 AM", IsBooked: true, AppointmentID: &apptID},
	}}}
	h := newTestRouter(d)

	rec := do(h, http.MethodGet, "/slots/available/2025-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.Len(t, slots, 2)
	assert.True(t, slots[1].IsBooked)
	assert.Equal(t, &apptID, slots[1].AppointmentID)

	rec = do(h, http.MethodPost, "/slots/add", AddSlotRequest{Date: "2025-06-02", Time: "9:00 AM"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	d.bookings.slotErr = appointment.ErrSlotExists
	rec = do(h, http.MethodPost, "/slots/add", AddSlotRequest{Date: "2025-06-02", Time: "9:00 AM"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	d.bookings.slotErr = appointment.ErrInvalidDate
	rec = do(h, http.MethodGet, "/slots/available/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	d.bookings.deleteErr = appointment.ErrSlotBooked
	rec = do(h, http.MethodDelete, "/slots/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_booked", decodeErr(t, rec).Error)

	rec = do(h, http.MethodDelete, "/slots/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/slots/book", BookSlotRequest{SlotID: uuid.NewString(), PatientID: uuid.NewString()})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUploadURL(t *testing.T) {
	h := newTestRouter(&testDeps{})
	rec := do(h, http.MethodPost, "/appointments/upload-url", UploadURLRequest{FileName: "scan.pdf", FileType: "application/pdf"})
	require.Equal(t, http.StatusOK, rec.Code)
	var up storage.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, "https://public/scan.pdf", up.FileURL)

	h = newTestRouter(&testDeps{uploads: fakeUploads{err: storage.ErrNotConfigured}})
	rec = do(h, http.MethodPost, "/appointments/upload-url", UploadURLRequest{FileName: "scan.pdf"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPatientRoutes(t *testing.T) {
	id := uuid.New()
	entry := &patient.Entry{
		Patient: appointment.Patient{ID: id, Name: "Jane Doe"},
		Latest:  &patient.LatestAppointment{ID: uuid.New(), CustomID: "PN-20250601-0001", Date: "2025-06-01", Time: "9:00 AM", Notes: "bring scans"},
	}
	h := newTestRouter(&testDeps{patients: &fakePatients{entry: entry, summary: "Stable."}})

	rec := do(h, http.MethodGet, "/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []PatientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "PN-20250601-0001", list[0].LatestBookingID)

	rec = do(h, http.MethodGet, "/patients/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail PatientDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.NotNil(t, detail.LatestNotes)
	assert.Equal(t, "bring scans", *detail.LatestNotes)

	rec = do(h, http.MethodPost, "/patients/"+id.String()+"/records", map[string]string{"date": "2025-06-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_record", decodeErr(t, rec).Error)

	rec = do(h, http.MethodPost, "/patients/"+id.String()+"/records", map[string]string{"date": "2025-06-01", "diagnosis": "Flu"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(h, http.MethodPost, "/patients/"+id.String()+"/generate-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":"Stable."}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/ai/summarize", []map[string]string{{"date": "2025-06-01"}, {"date": "2025-05-01"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":"2 records"}`, rec.Body.String())
}

func TestPatientNotFound(t *testing.T) {
	h := newTestRouter(&testDeps{patients: &fakePatients{getErr: fmt.Errorf("get patient: %w", appointment.ErrPatientNotFound)}})
	rec := do(h, http.MethodGet, "/patients/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "patient_not_found", decodeErr(t, rec).Error)
}

func TestNotificationRoutes(t *testing.T) {
	d := &testDeps{}
	h := newTestRouter(d)

	rec := do(h, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, notification.DefaultLimit, d.notifications.limit)

	rec = do(h, http.MethodGet, "/notifications?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/notifications/mark-read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, d.notifications.marked)

	id := uuid.New()
	rec = do(h, http.MethodPost, "/notifications/mark-read", MarkReadRequest{IDs: []uuid.UUID{id}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, d.notifications.marked)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	h := newTestRouter(&testDeps{auth: deny})

	for _, path := range []string{"/appointments", "/slots/overview", "/patients", "/notifications", "/stats"} {
		assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, path, nil).Code, path)
	}
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/slots/available/2025-06-01", nil).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(&testDeps{})

	req := httptest.NewRequest(http.MethodOptions, "/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadiness(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	cases := []struct {
		name       string
		pg, redis  Pinger
		wantStatus string
		wantCode   int
	}{
		{"all up", up, up, "ok", http.StatusOK},
		{"redis down", up, down, "degraded", http.StatusOK},
		{"redis disabled", up, nil, "ok", http.StatusOK},
		{"postgres down", down, up, "error", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.pg, tc.redis, "test", "v0")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tc.wantCode, rec.Code)

			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantStatus, resp.Status)
		})
	}
}

