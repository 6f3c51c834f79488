package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/AustinCai/ai-spam-killer/internal/ai"
	"github.com/AustinCai/ai-spam-killer/internal/config"
	"github.com/AustinCai/ai-spam-killer/internal/gmail"
)

// ErrNotAuthenticated indicates no authenticated session exists yet
var ErrNotAuthenticated = errors.New("not authenticated")

// Session holds the authenticated collaborators for one scanning run: the
// Gmail client, the configured AI client, the archive label id and the
// prompt template with its spam exemplars. The template and exemplars are
// built once here and treated as read-only by all concurrent
// classification calls.
type Session struct {
	Gmail          *gmail.Client
	AI             *ai.Client
	Template       *ai.PromptTemplate
	ArchiveLabelID string
}

// NewSession authenticates against Gmail and prepares the classification
// prompt. Credential acquisition failure is fatal; label and exemplar
// failures degrade (no label tagging, no exemplars in the prompt).
func NewSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	if cfg.AIAPIKey == "" {
		return nil, errors.New("AI API key not set (set OPENAI_API_KEY or SPAM_KILLER_AI_API_KEY)")
	}

	httpClient, err := gmail.Authenticate(ctx, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	client, err := gmail.New(ctx, httpClient)
	if err != nil {
		return nil, err
	}

	labelID, err := client.EnsureArchiveLabel(ctx)
	if err != nil {
		log.Printf("[Session] could not create or find %q label: %v", gmail.ArchiveLabelName, err)
		labelID = ""
	}

	examples, err := client.CollectSpamExamples(ctx, ai.MaxPromptExamples)
	if err != nil {
		log.Printf("[Session] could not collect spam examples: %v", err)
		examples = nil
	}

	aiClient := ai.NewClient()
	aiClient.ConfigureWithBaseURL(cfg.AIProvider, cfg.AIAPIKey, cfg.AIModel, cfg.AIBaseURL)

	return &Session{
		Gmail:          client,
		AI:             aiClient,
		Template:       ai.BuildPromptTemplate(cfg.UserDescription, examples),
		ArchiveLabelID: labelID,
	}, nil
}

// Classify runs one spam classification with the session template.
// It satisfies the Classifier interface used by the scan service.
func (s *Session) Classify(subject, sender, body string) (bool, string) {
	return s.AI.Classify(subject, sender, body, s.Template)
}

// SessionManager holds the current authenticated session. The API keeps
// one process-wide session that is established by the authenticate
// endpoint and reused by every scan and archive request.
type SessionManager struct {
	mu      sync.RWMutex
	current *Session
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Current returns the active session or ErrNotAuthenticated.
func (m *SessionManager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNotAuthenticated
	}
	return m.current, nil
}

// Set installs a newly authenticated session.
func (m *SessionManager) Set(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = session
}

// Authenticated reports whether a session has been established.
func (m *SessionManager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}
