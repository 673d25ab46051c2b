package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/identity"
	"github.com/spec-kit/escalation-service/internal/repository"
)

// fakeStore is an in-memory stand-in for the postgres repositories. The
// repository interfaces have colliding method sets, so thin views
// (ticketStore, userStore, ...) adapt the shared state to each one.
type fakeStore struct {
	mu          sync.Mutex
	tickets     map[string]*domain.Ticket
	assignments []domain.Assignment
	events      []*domain.TicketEvent
	comments    []*domain.Comment
	users       map[string]*domain.User
	seq         int

	applyErr   error
	applyCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: make(map[string]*domain.Ticket),
		users:   make(map[string]*domain.User),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	return &clone
}

func (s *fakeStore) putTicket(t *domain.Ticket) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("tkt")
	}
	if t.Version == 0 {
		t.Version = 1
	}
	s.tickets[t.ID] = copyTicket(t)
	return t
}

func (s *fakeStore) addUser(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.nextID("usr")
	}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) eventsOfType(eventType domain.TicketEventType) []*domain.TicketEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.TicketEvent
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type ticketStore struct{ s *fakeStore }

func (t ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	t.s.putTicket(ticket)
	return nil
}

func (t ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stored, ok := t.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTicket(stored), nil
}

func (t ticketStore) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, stored := range t.s.tickets {
		if stored.Number == number {
			return copyTicket(stored), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t ticketStore) ListBySubmitter(_ context.Context, userID string, _, _ int) ([]domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range t.s.tickets {
		if stored.Deleted || stored.SubmitterUserID == nil || *stored.SubmitterUserID != userID {
			continue
		}
		out = append(out, *copyTicket(stored))
	}
	return out, nil
}

func (t ticketStore) Apply(_ context.Context, mutation repository.TicketMutation) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++
	if s.applyErr != nil {
		return s.applyErr
	}

	if mutation.Ticket != nil {
		stored, ok := s.tickets[mutation.Ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != mutation.ExpectedVersion {
			return repository.ErrVersionConflict
		}
		mutation.Ticket.Version = mutation.ExpectedVersion + 1
		s.tickets[mutation.Ticket.ID] = copyTicket(mutation.Ticket)
	}

	for _, add := range mutation.AddAssignments {
		exists := false
		for _, a := range s.assignments {
			if a.TicketID == add.TicketID && a.UserID == add.UserID && a.Role == add.Role {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		add.ID = s.nextID("asg")
		s.assignments = append(s.assignments, add)
	}

	for _, remove := range mutation.RemoveAssignments {
		kept := s.assignments[:0]
		for _, a := range s.assignments {
			if a.TicketID == remove.TicketID && a.UserID == remove.UserID && a.Role == remove.Role {
				continue
			}
			kept = append(kept, a)
		}
		s.assignments = kept
	}

	for _, event := range mutation.Events {
		event.ID = s.nextID("evt")
		s.events = append(s.events, event)
	}
	return nil
}

type assignmentStore struct{ s *fakeStore }

func (a assignmentStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Assignment, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var out []domain.Assignment
	for _, assignment := range a.s.assignments {
		if assignment.TicketID == ticketID {
			out = append(out, assignment)
		}
	}
	return out, nil
}

func (a assignmentStore) Exists(_ context.Context, ticketID, userID string, role domain.AssignmentRole) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, assignment := range a.s.assignments {
		if assignment.TicketID == ticketID && assignment.UserID == userID && assignment.Role == role {
			return true, nil
		}
	}
	return false, nil
}

type eventStore struct{ s *fakeStore }

func (e eventStore) Append(_ context.Context, event *domain.TicketEvent) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	event.ID = e.s.nextID("evt")
	e.s.events = append(e.s.events, event)
	return nil
}

func (e eventStore) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketEvent, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	var out []domain.TicketEvent
	for _, event := range e.s.events {
		if event.TicketID == ticketID {
			out = append(out, *event)
		}
	}
	return out, nil
}

type userStore struct{ s *fakeStore }

func (u userStore) Create(_ context.Context, user *domain.User) error {
	u.s.addUser(user)
	return nil
}

func (u userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

type commentStore struct{ s *fakeStore }

func (c commentStore) Create(_ context.Context, comment *domain.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	comment.ID = c.s.nextID("cmt")
	clone := *comment
	c.s.comments = append(c.s.comments, &clone)
	return nil
}

func (c commentStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []domain.Comment
	for _, comment := range c.s.comments {
		if comment.TicketID == ticketID {
			out = append(out, *comment)
		}
	}
	return out, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.published {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *fakeStore
	dispatcher *recordingDispatcher
	lifecycle  *LifecycleService
	assignment *AssignmentService
	comments   *CommentService
}

func newFixture() *fixture {
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}
	directory := identity.NewDirectory(userStore{store}, nil, 0, zap.NewNop())
	now := func() time.Time { return fixedNow }

	lifecycle := NewLifecycleService(LifecycleDependencies{
		TicketRepo:         ticketStore{store},
		AssignmentRepo:     assignmentStore{store},
		EventRepo:          eventStore{store},
		Directory:          directory,
		Dispatcher:         dispatcher,
		TicketNumberPrefix: "TKT",
		OpsActorID:         "operations",
		Now:                now,
	})
	assignment := NewAssignmentService(AssignmentDependencies{
		TicketRepo:     ticketStore{store},
		AssignmentRepo: assignmentStore{store},
		UserRepo:       userStore{store},
		Dispatcher:     dispatcher,
		Now:            now,
	})
	comments := NewCommentService(CommentDependencies{
		TicketRepo:  ticketStore{store},
		CommentRepo: commentStore{store},
		EventRepo:   eventStore{store},
		Directory:   directory,
		Dispatcher:  dispatcher,
		Now:         now,
	})
	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		assignment: assignment,
		comments:   comments,
	}
}

func (f *fixture) seedTicket(status domain.TicketStatus) *domain.Ticket {
	return f.store.putTicket(&domain.Ticket{
		Number:      "TKT-2026-AAAAAA",
		Category:    domain.CategoryTechnical,
		Severity:    domain.SeveritySev2,
		Status:      status,
		Description: "projector failure in hall 3",
		IssueDate:   domain.IssueDate{Mode: domain.IssueDateOngoing},
	})
}

func (f *fixture) seedUser(id string, role domain.Role) *domain.User {
	return f.store.addUser(&domain.User{
		ID:     id,
		Name:   "User " + id,
		Email:  id + "@example.com",
		Role:   role,
		Active: true,
	})
}
