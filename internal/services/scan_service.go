package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/AustinCai/ai-spam-killer/internal/database/models"
	"github.com/AustinCai/ai-spam-killer/internal/extract"
	"github.com/AustinCai/ai-spam-killer/internal/gmail"
	"github.com/AustinCai/ai-spam-killer/internal/links"
	"github.com/AustinCai/ai-spam-killer/internal/unsubscribe"
)

// ErrScanInProgress indicates a scan is already running
var ErrScanInProgress = errors.New("scan already in progress")

const (
	// DefaultWorkers bounds concurrent in-flight classification calls.
	DefaultWorkers = 20

	subjectPreviewLen = 80
	bodyPreviewLen    = 200
	// maxLinksPerResult caps how many mined links are reported and
	// attempted per message.
	maxLinksPerResult = 3
)

// Classifier produces a spam verdict for one message. Implementations must
// be safe for concurrent use and must never panic on call failure; the
// session-backed implementation degrades failures to non-spam verdicts.
type Classifier interface {
	Classify(subject, sender, body string) (isSpam bool, reason string)
}

// Classification is the verdict for one message, keyed by its position in
// the original batch.
type Classification struct {
	Index  int
	IsSpam bool
	Reason string
}

// ResultView is the caller-facing verdict for one scanned message.
type ResultView struct {
	EmailID          string   `json:"email_id"`
	Subject          string   `json:"subject"`
	Sender           string   `json:"sender"`
	BodyPreview      string   `json:"body_preview"`
	IsSpam           bool     `json:"is_spam"`
	Reason           string   `json:"reason"`
	UnsubscribeLinks []string `json:"unsubscribe_links"`
}

// Status is a point-in-time snapshot of the scan state. While a scan is
// running Progress counts completed classifications in arbitrary completion
// order; Results are only populated, in original message order, once the
// batch has fully drained.
type Status struct {
	Scanning     bool         `json:"scanning"`
	Progress     int          `json:"progress"`
	Total        int          `json:"total"`
	CurrentEmail string       `json:"current_email"`
	Results      []ResultView `json:"results"`
}

// ScanOptions control one scan pass.
type ScanOptions struct {
	MaxEmails  int64
	WindowDays int
	DryRun     bool
}

// ScanService runs batch spam classification over the inbox.
type ScanService struct {
	db         *gorm.DB
	logService *LogService
	workers    int

	mu       sync.Mutex
	scanning bool
	status   Status
}

// NewScanService creates a new ScanService instance. workers bounds the
// number of concurrent classification calls.
func NewScanService(db *gorm.DB, logService *LogService, workers int) *ScanService {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &ScanService{
		db:         db,
		logService: logService,
		workers:    workers,
	}
}

// Status returns a snapshot of the current scan state.
func (s *ScanService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.status
	snapshot.Results = append([]ResultView(nil), s.status.Results...)
	return snapshot
}

// ClassifyBatch classifies every message through the worker pool and
// returns the verdicts in input order. Each task carries its original
// index; results land in an index-keyed map as tasks complete out of order
// and are drained in ascending index order after the pool joins. A task
// whose classifier panics is logged and omitted, so the result sequence
// may be sparse.
func (s *ScanService) ClassifyBatch(messages []gmail.Message, classifier Classifier) []Classification {
	total := len(messages)
	s.setProgress(0, total)

	results := make(map[int]Classification, total)
	var resultsMu sync.Mutex
	completed := 0

	workers := s.workers
	if workers > total {
		workers = total
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				verdict, ok := runTask(classifier, messages[index], index)

				resultsMu.Lock()
				if ok {
					results[index] = verdict
				}
				completed++
				// Published under resultsMu so two workers cannot hand
				// their counts to the status in reverse order; a poller
				// only ever sees the count grow.
				s.setProgress(completed, total)
				resultsMu.Unlock()
			}
		}()
	}

	for i := range messages {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	ordered := make([]Classification, 0, total)
	for i := 0; i < total; i++ {
		if verdict, ok := results[i]; ok {
			ordered = append(ordered, verdict)
		}
	}
	return ordered
}

// runTask executes one classification task, containing any panic so a
// single bad task cannot take down the batch.
func runTask(classifier Classifier, msg gmail.Message, index int) (verdict Classification, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scan] classification task %d panicked: %v", index, r)
			ok = false
		}
	}()

	isSpam, reason := classifier.Classify(msg.Subject, msg.Sender, msg.Body)
	return Classification{Index: index, IsSpam: isSpam, Reason: reason}, true
}

// Scan runs one full pass: fetch recent inbox messages, classify them in
// parallel, mine unsubscribe links for the flagged ones and persist the
// outcome. Only one scan may run at a time.
func (s *ScanService) Scan(ctx context.Context, session *Session, opts ScanOptions) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return ErrScanInProgress
	}
	s.scanning = true
	s.status = Status{Scanning: true, CurrentEmail: "Initializing..."}
	s.mu.Unlock()

	err := s.runScan(ctx, session, opts)

	s.mu.Lock()
	s.scanning = false
	s.status.Scanning = false
	if err != nil {
		s.status.CurrentEmail = fmt.Sprintf("Error during scan: %v", err)
		s.status.Results = nil
	}
	s.mu.Unlock()

	return err
}

func (s *ScanService) runScan(ctx context.Context, session *Session, opts ScanOptions) error {
	startedAt := time.Now()
	record := &models.Scan{
		Status:    string(models.ScanStatusRunning),
		DryRun:    opts.DryRun,
		StartedAt: startedAt,
	}
	if err := s.db.Create(record).Error; err != nil {
		return err
	}

	s.setCurrent(fmt.Sprintf("Fetching up to %d emails...", opts.MaxEmails))
	messages, err := session.Gmail.ListRecent(ctx, opts.MaxEmails, opts.WindowDays)
	if err != nil {
		s.finishRecord(record, 0, 0, models.ScanStatusFailed)
		return err
	}

	// Only messages still in the inbox are classified; already-archived
	// mail is skipped, preserving the original listing order.
	inbox := make([]gmail.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.InInbox() {
			inbox = append(inbox, msg)
		}
	}

	if len(inbox) == 0 {
		s.setCurrent("No emails in inbox to process.")
		s.finishRecord(record, 0, 0, models.ScanStatusComplete)
		return nil
	}

	s.setCurrent(fmt.Sprintf("Analyzing %d emails...", len(inbox)))
	classifications := s.ClassifyBatch(inbox, session)

	spamCount := 0
	views := make([]ResultView, 0, len(classifications))
	for _, verdict := range classifications {
		msg := inbox[verdict.Index]

		var candidates []string
		if verdict.IsSpam {
			spamCount++
			candidates = s.mineLinks(ctx, session, msg)
		}

		view := ResultView{
			EmailID:          msg.ID,
			Subject:          preview(msg.Subject, subjectPreviewLen),
			Sender:           msg.Sender,
			BodyPreview:      preview(msg.Body, bodyPreviewLen),
			IsSpam:           verdict.IsSpam,
			Reason:           verdict.Reason,
			UnsubscribeLinks: candidates,
		}
		views = append(views, view)

		s.persistResult(record.ID, verdict, msg, candidates)
	}

	s.mu.Lock()
	s.status.Results = views
	s.status.CurrentEmail = "Scan completed successfully!"
	s.mu.Unlock()

	s.finishRecord(record, len(inbox), spamCount, models.ScanStatusComplete)

	if s.logService != nil {
		s.logService.LogInfo(models.LogModuleScan, "scan_complete",
			fmt.Sprintf("Scanned %d emails, %d spam", len(inbox), spamCount),
			map[string]interface{}{
				"scan_id":  record.ID,
				"duration": time.Since(startedAt).String(),
			})
	}
	return nil
}

// mineLinks mines unsubscribe candidates for one flagged message. The
// extraction sentinel is never treated as minable content.
func (s *ScanService) mineLinks(ctx context.Context, session *Session, msg gmail.Message) []string {
	body := msg.Body
	if body == extract.Sentinel {
		body = ""
	}
	rawHTML := session.Gmail.RawHTML(ctx, msg.ID)

	candidates := links.Mine(body, rawHTML)
	if len(candidates) > maxLinksPerResult {
		candidates = candidates[:maxLinksPerResult]
	}
	return candidates
}

func (s *ScanService) persistResult(scanID uint, verdict Classification, msg gmail.Message, candidates []string) {
	linksJSON, _ := json.Marshal(candidates)
	result := &models.EmailResult{
		ScanID:           scanID,
		OrderIndex:       verdict.Index,
		MessageID:        msg.ID,
		Subject:          msg.Subject,
		Sender:           msg.Sender,
		BodyPreview:      preview(msg.Body, bodyPreviewLen),
		IsSpam:           verdict.IsSpam,
		Reason:           verdict.Reason,
		UnsubscribeLinks: string(linksJSON),
	}
	if err := s.db.Create(result).Error; err != nil {
		log.Printf("[Scan] failed to persist result for %s: %v", msg.ID, err)
	}
}

func (s *ScanService) finishRecord(record *models.Scan, total, spamCount int, status models.ScanStatus) {
	now := time.Now()
	record.Status = string(status)
	record.Total = total
	record.SpamCount = spamCount
	record.FinishedAt = &now
	if err := s.db.Save(record).Error; err != nil {
		log.Printf("[Scan] failed to update scan record %d: %v", record.ID, err)
	}
}

// ArchiveEmail archives one message, optionally attempting the supplied
// unsubscribe links first. It returns the number of successful unsubscribe
// attempts. A fresh unsubscribe agent (and so a fresh cookie session) is
// used per message.
func (s *ScanService) ArchiveEmail(ctx context.Context, session *Session, messageID string, unsubLinks []string, doUnsubscribe bool) (int, error) {
	successCount := 0
	if doUnsubscribe && len(unsubLinks) > 0 {
		agent := unsubscribe.NewAgent()
		successCount = agent.Attempt(unsubLinks)
	}

	if err := session.Gmail.Archive(ctx, messageID, session.ArchiveLabelID); err != nil {
		if s.logService != nil {
			s.logService.LogError(models.LogModuleScan, "archive_failed", err.Error(),
				map[string]interface{}{"message_id": messageID})
		}
		return successCount, err
	}

	s.db.Model(&models.EmailResult{}).
		Where("message_id = ?", messageID).
		Updates(map[string]interface{}{
			"archived":          true,
			"unsubscribe_count": successCount,
		})

	if s.logService != nil {
		s.logService.LogInfo(models.LogModuleScan, "archived",
			fmt.Sprintf("Archived message %s", messageID),
			map[string]interface{}{"unsubscribe_success": successCount})
	}
	return successCount, nil
}

func (s *ScanService) setProgress(completed, total int) {
	s.mu.Lock()
	s.status.Progress = completed
	s.status.Total = total
	if total > 0 {
		s.status.CurrentEmail = fmt.Sprintf("Analyzed %d/%d emails", completed, total)
	}
	s.mu.Unlock()
}

func (s *ScanService) setCurrent(message string) {
	s.mu.Lock()
	s.status.CurrentEmail = message
	s.mu.Unlock()
}

// preview shortens s for display, appending an ellipsis when truncated.
func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "") + "..."
}
