package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/repository"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

func TestCreateTicketDefaults(t *testing.T) {
	f := newFixture()
	submitter := f.seedUser("inv-1", domain.RoleInvigilator)
	actor := domain.Actor{ID: submitter.ID, Role: domain.RoleInvigilator}

	ticket, err := f.lifecycle.CreateTicket(context.Background(), actor, TicketCreateInput{
		Category:      domain.CategoryNetwork,
		Description:   "wifi flapping in the main hall",
		IssueDate:     domain.IssueDate{Mode: domain.IssueDateOngoing},
		SubmitterName: "Priya",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %q, want open", ticket.Status)
	}
	if ticket.Severity != domain.SeveritySev3 {
		t.Errorf("severity = %q, want sev3 default", ticket.Severity)
	}
	if !strings.HasPrefix(ticket.Number, "TKT-2026-") {
		t.Errorf("number = %q, want TKT-2026- prefix", ticket.Number)
	}
	if ticket.SubmitterUserID == nil || *ticket.SubmitterUserID != submitter.ID {
		t.Errorf("submitter user id not linked: %v", ticket.SubmitterUserID)
	}

	created := f.store.eventsOfType(domain.EventTicketCreated)
	if len(created) != 1 {
		t.Fatalf("created events = %d, want 1", len(created))
	}
	if got := f.dispatcher.ofType(events.EventTicketCreated); len(got) != 1 {
		t.Errorf("published created events = %d, want 1", len(got))
	}
}

func TestCreateTicketAnonymousDropsIdentity(t *testing.T) {
	f := newFixture()

	ticket, err := f.lifecycle.CreateTicket(context.Background(), domain.AnonymousActor, TicketCreateInput{
		Category:      domain.CategoryOther,
		Description:   "loudspeaker not working",
		IssueDate:     domain.IssueDate{Mode: domain.IssueDateOngoing},
		SubmitterName: "should be dropped",
		Anonymous:     true,
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.SubmitterName != "" {
		t.Errorf("submitter name = %q, want empty for anonymous", ticket.SubmitterName)
	}
	if ticket.SubmitterUserID != nil {
		t.Errorf("submitter user id = %v, want nil for anonymous", *ticket.SubmitterUserID)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture()
	actor := domain.Actor{ID: "inv-1", Role: domain.RoleInvigilator}
	on := fixedNow

	cases := []struct {
		name  string
		input TicketCreateInput
	}{
		{"unknown category", TicketCreateInput{Category: "plumbing", Description: "x", IssueDate: domain.IssueDate{Mode: domain.IssueDateOngoing}}},
		{"empty description", TicketCreateInput{Category: domain.CategoryPower, Description: "   ", IssueDate: domain.IssueDate{Mode: domain.IssueDateOngoing}}},
		{"issue date mode mismatch", TicketCreateInput{Category: domain.CategoryPower, Description: "x", IssueDate: domain.IssueDate{Mode: domain.IssueDateSingle}}},
		{"ongoing with date", TicketCreateInput{Category: domain.CategoryPower, Description: "x", IssueDate: domain.IssueDate{Mode: domain.IssueDateOngoing, On: &on}}},
		{"unknown severity", TicketCreateInput{Category: domain.CategoryPower, Severity: "sev9", Description: "x", IssueDate: domain.IssueDate{Mode: domain.IssueDateOngoing}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.lifecycle.CreateTicket(context.Background(), actor, tc.input); !apperrors.IsCode(err, "VALIDATION_FAILED") {
				t.Errorf("err = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestStatusChangeResolverPath(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}

	updated, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusInProgress, "")
	if err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want in_progress", updated.Status)
	}
	if updated.Version != ticket.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, ticket.Version+1)
	}

	changes := f.store.eventsOfType(domain.EventStatusChanged)
	if len(changes) != 1 {
		t.Fatalf("status_changed events = %d, want 1", len(changes))
	}
	details := changes[0].Details
	if details["from"] != "open" || details["to"] != "in_progress" {
		t.Errorf("details = %v, want from=open to=in_progress", details)
	}
	if _, tagged := details["bypass"]; tagged {
		t.Errorf("resolver transition tagged as bypass: %v", details)
	}
}

func TestStatusChangeDeniedLeavesNoTrace(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}

	_, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusResolved, "notes")
	if !apperrors.IsCode(err, "TRANSITION_DENIED") {
		t.Fatalf("err = %v, want TRANSITION_DENIED", err)
	}

	if f.store.applyCalls != 0 {
		t.Errorf("apply calls = %d, want 0 after denial", f.store.applyCalls)
	}
	if len(f.store.events) != 0 {
		t.Errorf("events recorded after denial: %d", len(f.store.events))
	}
	stored, _ := ticketStore{f.store}.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusOpen || stored.Version != ticket.Version {
		t.Errorf("ticket changed after denial: status=%q version=%d", stored.Status, stored.Version)
	}
	if len(f.dispatcher.published) != 0 {
		t.Errorf("events published after denial: %d", len(f.dispatcher.published))
	}
}

func TestStatusChangeUnknownStatus(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)
	admin := domain.Actor{ID: "adm-1", Role: domain.RoleSuperAdmin}

	if _, err := f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, "archived", ""); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestStatusChangeResolutionNotesGate(t *testing.T) {
	f := newFixture()
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}

	ticket := f.seedTicket(domain.TicketStatusApproved)
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusResolved, "   "); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("err = %v, want VALIDATION_FAILED without notes", err)
	}

	updated, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusResolved, "replaced the faulty switch")
	if err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	if updated.ResolutionNotes != "replaced the faulty switch" {
		t.Errorf("resolution notes = %q", updated.ResolutionNotes)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(fixedNow) {
		t.Errorf("resolved at = %v, want %v", updated.ResolvedAt, fixedNow)
	}
}

func TestStatusChangePrivilegedSkipsNotesGate(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusInProgress)
	admin := domain.Actor{ID: "adm-1", Role: domain.RoleSuperAdmin}

	updated, err := f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, domain.TicketStatusResolved, "")
	if err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	if updated.Status != domain.TicketStatusResolved {
		t.Errorf("status = %q, want resolved", updated.Status)
	}
}

func TestStatusChangeBypassTagging(t *testing.T) {
	f := newFixture()
	admin := domain.Actor{ID: "adm-1", Role: domain.RoleSuperAdmin}

	// open -> approved is outside every staff transition table.
	ticket := f.seedTicket(domain.TicketStatusOpen)
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, domain.TicketStatusApproved, ""); err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	changes := f.store.eventsOfType(domain.EventStatusChanged)
	if len(changes) != 1 || changes[0].Details["bypass"] != true {
		t.Errorf("bypass not tagged: %v", changes)
	}
	published := f.dispatcher.ofType(events.EventTicketStatusChanged)
	if len(published) != 1 {
		t.Fatalf("published = %d, want 1", len(published))
	}
	if payload := published[0].Payload.(events.StatusChangedPayload); !payload.Bypass {
		t.Errorf("payload bypass = false, want true")
	}

	// open -> in_progress is a resolver move, so no bypass tag.
	other := f.seedTicket(domain.TicketStatusOpen)
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), admin, other.ID, domain.TicketStatusInProgress, ""); err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	changes = f.store.eventsOfType(domain.EventStatusChanged)
	if last := changes[len(changes)-1]; last.Details["bypass"] != nil {
		t.Errorf("graph-compatible privileged move tagged as bypass: %v", last.Details)
	}
}

func TestStatusChangeReopenAccounting(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusResolved)
	admin := domain.Actor{ID: "adm-1", Role: domain.RoleTicketAdmin}

	updated, err := f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress, "")
	if err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	if updated.ReopenCount != 1 {
		t.Errorf("reopen count = %d, want 1", updated.ReopenCount)
	}
	if updated.ReopenedBy == nil || *updated.ReopenedBy != admin.ID {
		t.Errorf("reopened by = %v, want %q", updated.ReopenedBy, admin.ID)
	}
	if updated.LastReopenedAt == nil || !updated.LastReopenedAt.Equal(fixedNow) {
		t.Errorf("last reopened at = %v", updated.LastReopenedAt)
	}
	reopens := f.store.eventsOfType(domain.EventTicketReopened)
	if len(reopens) != 1 {
		t.Fatalf("reopened events = %d, want 1", len(reopens))
	}
	if reopens[0].Details["reopen_count"] != 1 {
		t.Errorf("reopen details = %v", reopens[0].Details)
	}

	// Resolve again and reopen a second time; the counter only grows.
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, domain.TicketStatusResolved, ""); err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	updated, err = f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, domain.TicketStatusOpen, "")
	if err != nil {
		t.Fatalf("second reopen: %v", err)
	}
	if updated.ReopenCount != 2 {
		t.Errorf("reopen count = %d, want 2", updated.ReopenCount)
	}
}

func TestStatusChangeOpsAutoAssign(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusInProgress)
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}

	if _, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusOpsInputRequired, ""); err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}
	assignments, _ := assignmentStore{f.store}.ListByTicket(context.Background(), ticket.ID)
	if len(assignments) != 1 || assignments[0].UserID != "operations" || assignments[0].Role != domain.AssignOperations {
		t.Fatalf("assignments = %v, want single operations assignee", assignments)
	}
	added := f.store.eventsOfType(domain.EventAssigneeAdded)
	if len(added) != 1 || added[0].Details["auto"] != true {
		t.Errorf("assignee_added events = %v, want one auto-tagged", added)
	}

	// Bounce back and forth; the operations assignee stays single.
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusInProgress, ""); err != nil {
		t.Fatalf("back to in_progress: %v", err)
	}
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusOpsUserDependency, ""); err != nil {
		t.Fatalf("to ops_user_dependency: %v", err)
	}
	assignments, _ = assignmentStore{f.store}.ListByTicket(context.Background(), ticket.ID)
	if len(assignments) != 1 {
		t.Errorf("assignments = %d, want still 1", len(assignments))
	}
	if added = f.store.eventsOfType(domain.EventAssigneeAdded); len(added) != 1 {
		t.Errorf("assignee_added events = %d, want still 1", len(added))
	}
}

func TestStatusChangeVersionConflict(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)
	f.store.applyErr = repository.ErrVersionConflict
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}

	_, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusInProgress, "")
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("err = %v, want CONFLICT", err)
	}
	if len(f.dispatcher.published) != 0 {
		t.Errorf("events published despite conflict: %d", len(f.dispatcher.published))
	}
}

func TestStatusChangeMissingAndDeletedTickets(t *testing.T) {
	f := newFixture()
	admin := domain.Actor{ID: "adm-1", Role: domain.RoleSuperAdmin}

	if _, err := f.lifecycle.RequestStatusChange(context.Background(), admin, "nope", domain.TicketStatusOpen, ""); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("missing ticket err = %v, want NOT_FOUND", err)
	}

	ticket := f.seedTicket(domain.TicketStatusOpen)
	ticket.Deleted = true
	f.store.putTicket(ticket)
	if _, err := f.lifecycle.RequestStatusChange(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress, ""); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("deleted ticket err = %v, want NOT_FOUND", err)
	}
}

func TestSeverityChangeGate(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)

	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}
	if _, err := f.lifecycle.RequestSeverityChange(context.Background(), resolver, ticket.ID, domain.SeveritySev1); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("resolver err = %v, want FORBIDDEN", err)
	}

	admin := domain.Actor{ID: "adm-1", Role: domain.RoleSuperAdmin}
	updated, err := f.lifecycle.RequestSeverityChange(context.Background(), admin, ticket.ID, domain.SeveritySev1)
	if err != nil {
		t.Fatalf("RequestSeverityChange: %v", err)
	}
	if updated.Severity != domain.SeveritySev1 {
		t.Errorf("severity = %q, want sev1", updated.Severity)
	}
	if got := f.store.eventsOfType(domain.EventSeverityChanged); len(got) != 1 {
		t.Errorf("severity_changed events = %d, want 1", len(got))
	}
}

func TestSoftDeleteHidesTicket(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)

	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}
	if err := f.lifecycle.SoftDelete(context.Background(), resolver, ticket.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("resolver err = %v, want FORBIDDEN", err)
	}

	admin := domain.Actor{ID: "adm-1", Role: domain.RoleSuperAdmin}
	if err := f.lifecycle.SoftDelete(context.Background(), admin, ticket.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := f.lifecycle.GetTicket(context.Background(), admin, ticket.ID); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("get after delete err = %v, want NOT_FOUND", err)
	}
	if got := f.store.eventsOfType(domain.EventTicketSoftDelete); len(got) != 1 {
		t.Errorf("soft_deleted events = %d, want 1", len(got))
	}
}

func TestGetTicketVisibility(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)
	owner := "inv-1"
	ticket.SubmitterUserID = &owner
	f.store.putTicket(ticket)

	if _, err := f.lifecycle.GetTicket(context.Background(), domain.Actor{ID: owner, Role: domain.RoleInvigilator}, ticket.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := f.lifecycle.GetTicket(context.Background(), domain.Actor{ID: "inv-2", Role: domain.RoleInvigilator}, ticket.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("stranger err = %v, want FORBIDDEN", err)
	}
	if _, err := f.lifecycle.GetTicket(context.Background(), domain.Actor{ID: "res-1", Role: domain.RoleResolver}, ticket.ID); err != nil {
		t.Errorf("staff read: %v", err)
	}
}

func TestTimelineEnrichment(t *testing.T) {
	f := newFixture()
	f.store.addUser(&domain.User{ID: "res-1", Name: "Rafael", Role: domain.RoleResolver, Active: true})
	ticket := f.seedTicket(domain.TicketStatusOpen)
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}

	if _, err := f.lifecycle.RequestStatusChange(context.Background(), resolver, ticket.ID, domain.TicketStatusInProgress, ""); err != nil {
		t.Fatalf("RequestStatusChange: %v", err)
	}

	invigilator := domain.Actor{ID: "inv-1", Role: domain.RoleInvigilator}
	if _, err := f.lifecycle.Timeline(context.Background(), invigilator, ticket.ID, 0, 0); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("invigilator err = %v, want FORBIDDEN", err)
	}

	entries, err := f.lifecycle.Timeline(context.Background(), resolver, ticket.ID, 0, 0)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ActorName != "Rafael" {
		t.Errorf("actor name = %q, want Rafael", entries[0].ActorName)
	}
}

// Walks the full happy path through both staff roles and checks that
// every hop is audited.
func TestFullResolutionFlow(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen)
	resolver := domain.Actor{ID: "res-1", Role: domain.RoleResolver}
	approver := domain.Actor{ID: "app-1", Role: domain.RoleApprover}

	steps := []struct {
		actor domain.Actor
		to    domain.TicketStatus
		notes string
	}{
		{resolver, domain.TicketStatusInProgress, ""},
		{resolver, domain.TicketStatusSendForApproval, ""},
		{approver, domain.TicketStatusApproved, ""},
		{resolver, domain.TicketStatusResolved, "vendor replaced the UPS"},
	}
	for _, step := range steps {
		if _, err := f.lifecycle.RequestStatusChange(context.Background(), step.actor, ticket.ID, step.to, step.notes); err != nil {
			t.Fatalf("step to %s: %v", step.to, err)
		}
	}

	final, _ := ticketStore{f.store}.GetByID(context.Background(), ticket.ID)
	if final.Status != domain.TicketStatusResolved {
		t.Errorf("final status = %q, want resolved", final.Status)
	}
	if final.Version != ticket.Version+int64(len(steps)) {
		t.Errorf("version = %d, want %d", final.Version, ticket.Version+int64(len(steps)))
	}
	if got := f.store.eventsOfType(domain.EventStatusChanged); len(got) != len(steps) {
		t.Errorf("status_changed events = %d, want %d", len(got), len(steps))
	}
	if got := f.dispatcher.ofType(events.EventTicketStatusChanged); len(got) != len(steps) {
		t.Errorf("published status events = %d, want %d", len(got), len(steps))
	}
}
