package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/notifications"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
)

// fakeLLM returns scripted completions keyed by system prompt. A prompt with
// no scripted response fails, which lets a single fake drive both success and
// degradation paths.
type fakeLLM struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{responses: make(map[string]string)}
}

func (f *fakeLLM) respond(systemPrompt, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[systemPrompt] = response
}

func (f *fakeLLM) Complete(_ context.Context, systemPrompt, _ string, _ float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, systemPrompt)
	resp, ok := f.responses[systemPrompt]
	if !ok {
		return "", errors.New("provider unavailable")
	}
	return resp, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingEmail captures outbound messages instead of delivering them.
type recordingEmail struct {
	mu   sync.Mutex
	sent []notifications.EmailMessage
	err  error
}

func (r *recordingEmail) Send(_ context.Context, msg notifications.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingEmail) messages() []notifications.EmailMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.EmailMessage(nil), r.sent...)
}

// syncScheduler runs deferred work inline, ignoring delays, so tests observe
// side effects deterministically.
type syncScheduler struct {
	mu    sync.Mutex
	names []string
}

func (s *syncScheduler) RunAfter(_ time.Duration, name string, fn func(ctx context.Context)) {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	fn(context.Background())
}

func (s *syncScheduler) scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

// fixture wires the full service graph over memory repositories.
type fixture struct {
	users     *repository.MemoryUserRepository
	tickets   *repository.MemoryTicketRepository
	messages  *repository.MemoryMessageRepository
	views     *repository.MemoryTicketViewRepository
	knowledge *repository.MemoryKnowledgeRepository

	email     *recordingEmail
	scheduler *syncScheduler
	llm       *fakeLLM

	ticketSvc    *TicketService
	relevanceSvc *RelevanceService
	aiSvc        *AIService
	integritySvc *IntegrityService
}

func newFixture() *fixture {
	f := &fixture{
		users:     repository.NewMemoryUserRepository(),
		tickets:   repository.NewMemoryTicketRepository(),
		messages:  repository.NewMemoryMessageRepository(),
		views:     repository.NewMemoryTicketViewRepository(),
		knowledge: repository.NewMemoryKnowledgeRepository(),
		email:     &recordingEmail{},
		scheduler: &syncScheduler{},
		llm:       newFakeLLM(),
	}

	cfg := config.Default()
	f.ticketSvc = NewTicketService(f.tickets, f.messages, f.users, f.views, f.email, f.scheduler, cfg.Ticket)
	f.relevanceSvc = NewRelevanceService(f.knowledge, f.llm, cfg.AI)
	f.aiSvc = NewAIService(f.ticketSvc, f.relevanceSvc, f.llm, cfg.AI)
	f.integritySvc = NewIntegrityService(f.tickets, f.messages, f.views, f.users)
	return f
}

// withAnalyzer attaches the AI engine so ticket creation triggers analysis.
func (f *fixture) withAnalyzer() *fixture {
	f.ticketSvc.SetAnalyzer(f.aiSvc)
	return f
}

func (f *fixture) addUser(name, email string, role models.UserRole) *models.User {
	user := &models.User{Email: email, Name: name, Role: role, Plan: models.PlanFree}
	if err := f.users.Create(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

func (f *fixture) addDocument(title, content string, tags ...string) *models.KnowledgeDocument {
	url := "https://docs.example.com/" + title
	doc := &models.KnowledgeDocument{Title: title, Content: content, URL: &url, Tags: tags}
	if err := f.knowledge.Create(context.Background(), doc); err != nil {
		panic(err)
	}
	return doc
}
