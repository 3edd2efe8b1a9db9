package appointment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository. InTx calls are serialized and roll back
// slot and appointment changes when fn fails.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	patients map[uuid.UUID]Patient
	slots    map[uuid.UUID]Slot
	appts    map[uuid.UUID]Appointment

	beforeTx       func()
	failInsertAppt error
	clock          time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients: make(map[uuid.UUID]Patient),
		slots:    make(map[uuid.UUID]Slot),
		appts:    make(map[uuid.UUID]Appointment),
		clock:    time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memRepo) addSlot(date, clock string) Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Slot{ID: uuid.New(), Date: date, Time: clock, CreatedAt: r.tick()}
	r.slots[s.ID] = s
	return s
}

func (r *memRepo) slot(id uuid.UUID) Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[id]
}

func (r *memRepo) appointmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appts)
}

func (r *memRepo) InTx(ctx context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	if r.beforeTx != nil {
		r.beforeTx()
	}

	r.mu.Lock()
	slots := make(map[uuid.UUID]Slot, len(r.slots))
	for k, v := range r.slots {
		slots[k] = v
	}
	appts := make(map[uuid.UUID]Appointment, len(r.appts))
	for k, v := range r.appts {
		appts[k] = v
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.slots = slots
		r.appts = appts
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *memRepo) ReserveSlot(_ context.Context, slotID, appointmentID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.IsBooked {
		return false, nil
	}
	s.IsBooked = true
	s.AppointmentID = &appointmentID
	r.slots[slotID] = s
	return true, nil
}

func (r *memRepo) ReleaseSlot(_ context.Context, slotID, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.AppointmentID == nil || *s.AppointmentID != appointmentID {
		return nil
	}
	s.IsBooked = false
	s.AppointmentID = nil
	r.slots[slotID] = s
	return nil
}

func (r *memRepo) SlotsForDate(_ context.Context, date string) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Slot
	for _, s := range r.slots {
		if s.Date == date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) SlotsFrom(_ context.Context, date string) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Slot
	for _, s := range r.slots {
		if s.Date >= date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) InsertSlot(_ context.Context, date, clock string) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.Date == date && s.Time == clock {
			return nil, ErrSlotExists
		}
	}
	s := Slot{ID: uuid.New(), Date: date, Time: clock, CreatedAt: r.tick()}
	r.slots[s.ID] = s
	return &s, nil
}

func (r *memRepo) DeleteFreeSlot(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok || s.IsBooked {
		return false, nil
	}
	delete(r.slots, id)
	return true, nil
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) FindPatientForBooking(_ context.Context, email, name string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.Email == email && strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *memRepo) InsertPatient(_ context.Context, d PatientDetails) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	p := Patient{
		ID:               uuid.New(),
		Name:             d.Name,
		Email:            d.Email,
		Phone:            d.Phone,
		DOB:              d.DOB,
		Gender:           d.Gender,
		EmergencyContact: d.EmergencyContact,
		PersonalNumber:   d.PersonalNumber,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.patients[p.ID] = p
	return &p, nil
}

func (r *memRepo) UpdatePatientContact(_ context.Context, id uuid.UUID, d PatientDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.Phone = d.Phone
	p.DOB = d.DOB
	p.Gender = d.Gender
	p.EmergencyContact = d.EmergencyContact
	p.PersonalNumber = d.PersonalNumber
	p.UpdatedAt = r.tick()
	r.patients[id] = p
	return nil
}

func (r *memRepo) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsertAppt != nil {
		return nil, r.failInsertAppt
	}
	a.ID = uuid.New()
	a.CreatedAt = r.tick()
	a.UpdatedAt = a.CreatedAt
	r.appts[a.ID] = a
	return &a, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) ListAppointments(_ context.Context, limit int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0, len(r.appts))
	for _, a := range r.appts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) MarkCancelled(_ context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	note := "[Cancelled: " + reason + "]"
	if strings.TrimSpace(a.Notes) == "" {
		a.Notes = note
	} else {
		a.Notes += " " + note
	}
	a.Status = StatusCancelled
	a.CancellationReason = &reason
	r.appts[id] = a
	return &a, nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from *Status, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || (from != nil && a.Status != *from) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	r.appts[id] = a
	return &a, nil
}

func (r *memRepo) CountByStatus(context.Context) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Status]int)
	for _, a := range r.appts {
		out[a.Status]++
	}
	return out, nil
}

func (r *memRepo) CountByDate(_ context.Context, from, to string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, a := range r.appts {
		if a.Date >= from && a.Date <= to {
			out[a.Date]++
		}
	}
	return out, nil
}

var _ Repository = (*memRepo)(nil)
