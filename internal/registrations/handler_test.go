package registrations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/queue"
)

type fakeRegStore struct {
	mu   sync.Mutex
	regs map[uuid.UUID]*models.Registration
}

func newFakeRegStore() *fakeRegStore {
	return &fakeRegStore{regs: make(map[uuid.UUID]*models.Registration)}
}

func (s *fakeRegStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.EventID == reg.EventID && r.UserID == reg.UserID {
			return ErrAlreadyRegistered
		}
	}
	reg.ID = uuid.New()
	reg.Status = models.RegistrationStatusConfirmed
	reg.CreatedAt = time.Now()
	reg.UpdatedAt = time.Now()
	cp := *reg
	s.regs[reg.ID] = &cp
	return nil
}

func (s *fakeRegStore) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRegStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Registration
	for _, r := range s.regs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeRegStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Registration
	for _, r := range s.regs {
		if r.EventID == eventID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeRegStore) CountConfirmedByEvent(_ context.Context, eventID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status == models.RegistrationStatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (s *fakeRegStore) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok || r.Status != models.RegistrationStatusConfirmed {
		return false, nil
	}
	now := time.Now()
	r.Status = models.RegistrationStatusCancelled
	r.CancelledAt = &now
	return true, nil
}

type fakeEvents struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

type fakePayments struct {
	mu       sync.Mutex
	created  []models.Payment
	refunded []uuid.UUID
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	f.created = append(f.created, *p)
	return nil
}

func (f *fakePayments) MarkRefunded(_ context.Context, registrationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, registrationID)
	return nil
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	sent []queue.EmailPayload
}

func (f *fakeEnqueuer) EnqueueEmail(_ context.Context, payload queue.EmailPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

type fixture struct {
	store    *fakeRegStore
	events   *fakeEvents
	payments *fakePayments
	emails   *fakeEnqueuer
	router   *gin.Engine
	userID   uuid.UUID
}

func newFixture(role models.Role) *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		store:    newFakeRegStore(),
		events:   &fakeEvents{events: make(map[uuid.UUID]*models.Event)},
		payments: &fakePayments{},
		emails:   &fakeEnqueuer{},
		userID:   uuid.New(),
	}
	h := NewHandler(f.store, f.events, f.payments, f.emails, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextUserID, f.userID)
		c.Set(auth.ContextUserEmail, "ticket@example.com")
		c.Set(auth.ContextUserRole, string(role))
		c.Next()
	})
	r.POST("/api/events/:id/register", h.Register)
	r.GET("/api/events/:id/registrations", h.ListByEvent)
	r.GET("/api/registrations/mine", h.ListMine)
	r.DELETE("/api/registrations/:id", h.Cancel)
	f.router = r
	return f
}

func (f *fixture) addEvent(e models.Event) uuid.UUID {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.EventStatusPublished
	}
	if e.StartsAt.IsZero() {
		e.StartsAt = time.Now().Add(24 * time.Hour)
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	f.events.events[e.ID] = &e
	return e.ID
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeReg(t *testing.T, body *bytes.Buffer) models.Registration {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &env))
	require.True(t, env.Success)
	var reg models.Registration
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	return reg
}

func TestRegister_FreeEvent(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Free Meetup"})

	w := f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	reg := decodeReg(t, w.Body)
	assert.Equal(t, f.userID, reg.UserID)
	assert.Equal(t, models.RegistrationStatusConfirmed, reg.Status)
	assert.True(t, strings.HasPrefix(reg.TicketCode, "GWR-"))
	assert.Zero(t, reg.AmountCents)

	// No payment row for a free event; confirmation email queued.
	assert.Empty(t, f.payments.created)
	require.Len(t, f.emails.sent, 1)
	assert.Equal(t, "ticket@example.com", f.emails.sent[0].RecipientEmail)
	assert.Contains(t, f.emails.sent[0].Subject, "Free Meetup")
}

func TestRegister_PaidEventRecordsPayment(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Conf", PriceCents: 5000})

	w := f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register")
	require.Equal(t, http.StatusCreated, w.Code)
	reg := decodeReg(t, w.Body)
	assert.Equal(t, 5000, reg.AmountCents)

	require.Len(t, f.payments.created, 1)
	p := f.payments.created[0]
	assert.Equal(t, reg.ID, p.RegistrationID)
	assert.Equal(t, 5000, p.AmountCents)
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Once"})

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register").Code)
}

func TestRegister_SoldOut(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Tiny", Capacity: 1})

	// Fill the single seat with another user.
	require.NoError(t, f.store.Create(context.Background(), &models.Registration{
		EventID: eventID, UserID: uuid.New(), TicketCode: "GWR-OTHER",
	}))

	w := f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "sold out")
}

func TestRegister_ClosedEvents(t *testing.T) {
	f := newFixture(models.RoleRegular)
	draft := f.addEvent(models.Event{Title: "Draft", Status: models.EventStatusDraft})
	started := f.addEvent(models.Event{Title: "Past", StartsAt: time.Now().Add(-time.Hour)})

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/events/"+draft.String()+"/register").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/events/"+started.String()+"/register").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/events/"+uuid.NewString()+"/register").Code)
}

func TestCancel_RefundsPaidTicket(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Conf", PriceCents: 5000})

	w := f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register")
	require.Equal(t, http.StatusCreated, w.Code)
	reg := decodeReg(t, w.Body)

	w = f.do(http.MethodDelete, "/api/registrations/"+reg.ID.String())
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, f.payments.refunded, 1)
	assert.Equal(t, reg.ID, f.payments.refunded[0])

	// Cancelling again is a no-op: no double refund.
	w = f.do(http.MethodDelete, "/api/registrations/"+reg.ID.String())
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, f.payments.refunded, 1)
}

func TestCancel_OwnerOnly(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Show"})

	foreign := &models.Registration{EventID: eventID, UserID: uuid.New(), TicketCode: "GWR-FOREIGN"}
	require.NoError(t, f.store.Create(context.Background(), foreign))

	w := f.do(http.MethodDelete, "/api/registrations/"+foreign.ID.String())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListByEvent_OrganizerOnly(t *testing.T) {
	f := newFixture(models.RoleRegular)
	eventID := f.addEvent(models.Event{Title: "Show", OrganizerID: uuid.New()})
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/events/"+eventID.String()+"/register").Code)

	// A regular attendee cannot list the attendee roster.
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/events/"+eventID.String()+"/registrations").Code)

	// The organizer can.
	owner := newFixture(models.RoleOrganizer)
	ownedID := owner.addEvent(models.Event{Title: "Mine", OrganizerID: owner.userID})
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/api/events/"+ownedID.String()+"/register").Code)

	w := owner.do(http.MethodGet, "/api/events/"+ownedID.String()+"/registrations")
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data []models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)
}

func TestListMine(t *testing.T) {
	f := newFixture(models.RoleRegular)
	a := f.addEvent(models.Event{Title: "A"})
	b := f.addEvent(models.Event{Title: "B"})
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/events/"+a.String()+"/register").Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/events/"+b.String()+"/register").Code)

	w := f.do(http.MethodGet, "/api/registrations/mine")
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data []models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)
}
