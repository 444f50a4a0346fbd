package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/artifact-triage/internal/application"
	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
	"github.com/bryanwahyu/artifact-triage/internal/domain/sessionerrors"
)

// Progress ladder for the fixed phase sequence.
var phaseProgress = map[string]int{
	domain.AgentFileAnalysis:  10,
	domain.AgentSteganography: 30,
	domain.AgentCryptanalysis: 60,
	domain.AgentIntelligence:  85,
}

// Terminal sessions stay pollable from memory for this long; afterwards
// status polls reconstruct the identical view from the store.
const liveRetention = 10 * time.Minute

var phaseLabel = map[string]string{
	domain.AgentFileAnalysis:  domain.PhaseFileAnalysis,
	domain.AgentSteganography: domain.PhaseSteganalysis,
	domain.AgentCryptanalysis: domain.PhaseCryptanalysis,
	domain.AgentIntelligence:  domain.PhaseSynthesis,
}

// Service is the session orchestrator: it owns the per-artifact pipeline,
// runs the analyzers in fixed order on a detached goroutine, and answers
// status polls from a live registry with a durable-store fallback.
// Service is safe for concurrent use.
type Service struct {
	Repo      domain.Repository
	Analyzers []domain.Analyzer
	Reports   domain.ArtifactStore
	Clock     application.Clock

	// Errors is the optional failure audit trail; a nil repository skips it
	Errors sessionerrors.Repository

	mu   sync.RWMutex
	live map[domain.SessionID]*domain.Session
}

func NewService(repo domain.Repository, analyzers []domain.Analyzer, reports domain.ArtifactStore, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{
		Repo:      repo,
		Analyzers: analyzers,
		Reports:   reports,
		Clock:     clock,
		live:      make(map[domain.SessionID]*domain.Session),
	}
}

// StartCommand untuk memulai satu sesi analisis
type StartCommand struct {
	TenantID         string
	OperatorID       string
	ArtifactPath     string
	AnalysisType     string
	Priority         string
	AgentPreferences []string
}

// Start validates the artifact, persists the initial session record, launches
// the pipeline in the background, and returns the initial view immediately.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (domain.SessionView, error) {
	info, err := validateArtifact(cmd.ArtifactPath)
	if err != nil {
		return domain.SessionView{}, err
	}

	typ := domain.AnalysisType(cmd.AnalysisType)
	switch typ {
	case domain.TypeComprehensive, domain.TypeTargeted, domain.TypeCollaborative:
	default:
		typ = domain.TypeComprehensive
	}

	now := s.Clock.Now()
	sess := &domain.Session{
		ID:             domain.SessionID(uuid.New().String()),
		TenantID:       cmd.TenantID,
		OperatorID:     cmd.OperatorID,
		ArtifactPath:   cmd.ArtifactPath,
		AnalysisType:   typ,
		Priority:       cmd.Priority,
		Status:         domain.StatusRunning,
		Phase:          domain.PhaseInitializing,
		Progress:       0,
		AgentsInvolved: s.selectAgents(cmd.AgentPreferences),
		StartedAt:      now,
		EstimatedDone:  domain.EstimateCompletion(now, typ, info.Size()),
	}

	if err := s.Repo.Save(ctx, sess); err != nil {
		return domain.SessionView{}, fmt.Errorf("persisting initial session: %w", err)
	}
	s.publish(sess)

	// fire and forget: jalan sampai selesai dengan context.Background(),
	// supaya gak kena context canceled waktu caller sudah dapat respons
	go s.run(sess.Clone())

	return domain.NewSessionView(sess), nil
}

// Status returns the live snapshot when the session is still tracked,
// otherwise reconstructs an identical view from the persistence store.
func (s *Service) Status(ctx context.Context, tenant string, id domain.SessionID) (domain.SessionView, error) {
	s.mu.RLock()
	sess, ok := s.live[id]
	s.mu.RUnlock()
	if ok && sess.TenantID == tenant {
		return domain.NewSessionView(sess), nil
	}

	stored, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	results, err := s.Repo.ResultsFor(ctx, tenant, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	stored.Results = results
	return domain.NewSessionView(stored), nil
}

// Latest lists recent sessions for a tenant.
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Session, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Summary rekap sesi N hari terakhir
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (map[string]any, error) {
	total, completed, failed, running, err := s.Repo.Summary(ctx, tenant, sinceDays)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_sessions": total,
		"completed":      completed,
		"error":          failed,
		"running":        running,
	}, nil
}

// Release drops a terminal session from the live registry; its snapshot has
// already been persisted, so status polls fall through to the store.
func (s *Service) Release(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.live[id]; ok && sess.Status.Terminal() {
		delete(s.live, id)
	}
}

// ==== pipeline ====

func (s *Service) run(sess *domain.Session) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, sess, fmt.Sprintf("pipeline panic: %v", r))
		}
	}()

	for _, analyzer := range s.scheduled(sess) {
		if err := s.advance(ctx, sess, phaseLabel[analyzer.ID()], phaseProgress[analyzer.ID()]); err != nil {
			s.fail(ctx, sess, fmt.Sprintf("persisting phase update: %v", err))
			return
		}

		res := runGuarded(ctx, analyzer, domain.AnalyzerRequest{
			TenantID:     sess.TenantID,
			SessionID:    sess.ID,
			ArtifactPath: sess.ArtifactPath,
			Prior:        sess.Results,
		})
		sess.Results = append(sess.Results, res)
		s.absorb(sess, res)
		if !res.Success {
			s.audit(ctx, sess, res.AgentID, "analyzer", res.ErrorMessage)
		}
		s.publish(sess)
	}

	if err := s.advance(ctx, sess, domain.PhaseFinalizing, 95); err != nil {
		s.fail(ctx, sess, fmt.Sprintf("persisting phase update: %v", err))
		return
	}

	s.uploadReport(ctx, sess)

	if err := s.Repo.SaveResults(ctx, sess.TenantID, sess.ID, sess.Results); err != nil {
		s.fail(ctx, sess, fmt.Sprintf("persisting results: %v", err))
		return
	}

	done := s.Clock.Now()
	sess.Status = domain.StatusCompleted
	sess.Phase = domain.PhaseDone
	sess.Progress = 100
	sess.CompletedAt = &done
	if err := s.Repo.Save(ctx, sess); err != nil {
		s.fail(ctx, sess, fmt.Sprintf("persisting completion: %v", err))
		return
	}
	s.publish(sess)
	time.AfterFunc(liveRetention, func() { s.Release(sess.ID) })
	log.Printf("session completed: tenant=%s session=%s results=%d", sess.TenantID, sess.ID, len(sess.Results))
}

// scheduled filters the ordered analyzer list down to the agents selected for
// this session, preserving pipeline order.
func (s *Service) scheduled(sess *domain.Session) []domain.Analyzer {
	wanted := make(map[string]bool, len(sess.AgentsInvolved))
	for _, id := range sess.AgentsInvolved {
		wanted[id] = true
	}
	var out []domain.Analyzer
	for _, a := range s.Analyzers {
		if wanted[a.ID()] {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) selectAgents(prefs []string) []string {
	available := make(map[string]bool, len(s.Analyzers))
	for _, a := range s.Analyzers {
		available[a.ID()] = true
	}
	var selected []string
	for _, id := range domain.DefaultAgents() {
		if !available[id] {
			continue
		}
		if len(prefs) == 0 || contains(prefs, id) {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		for _, id := range domain.DefaultAgents() {
			if available[id] {
				selected = append(selected, id)
			}
		}
	}
	return selected
}

// advance moves the session to the next phase, updating progress before the
// analyzer runs. Progress never decreases within a session.
func (s *Service) advance(ctx context.Context, sess *domain.Session, phase string, progress int) error {
	if progress < sess.Progress {
		progress = sess.Progress
	}
	sess.Phase = phase
	sess.Progress = progress
	s.publish(sess)
	return s.Repo.UpdatePhase(ctx, sess.TenantID, sess.ID, phase, progress)
}

// absorb folds analyzer output into session-level fields.
func (s *Service) absorb(sess *domain.Session, res domain.AnalysisResult) {
	if !res.Success {
		return
	}
	switch out := res.OutputData.(type) {
	case domain.FileReport:
		sess.Entropy = out.Entropy
	case domain.SynthesisReport:
		sess.Insights = append(sess.Insights, out.Insights...)
		sess.Connections = append(sess.Connections, out.Connections...)
	}
}

// fail transitions the session to the terminal error state. Persistence is
// best effort; the session must terminate regardless.
func (s *Service) fail(ctx context.Context, sess *domain.Session, msg string) {
	done := s.Clock.Now()
	sess.Status = domain.StatusError
	sess.ErrorMessage = msg
	sess.CompletedAt = &done
	s.publish(sess)
	if err := s.Repo.UpdateStatus(ctx, sess.TenantID, sess.ID, domain.StatusError, msg); err != nil {
		log.Printf("session %s: error-state persist failed: %v", sess.ID, err)
	}
	s.audit(ctx, sess, "", "pipeline", msg)
	time.AfterFunc(liveRetention, func() { s.Release(sess.ID) })
	log.Printf("session failed: tenant=%s session=%s: %s", sess.TenantID, sess.ID, msg)
}

// audit writes one failure entry; best effort, the audit trail never blocks
// the pipeline.
func (s *Service) audit(ctx context.Context, sess *domain.Session, agentID, phase, msg string) {
	if s.Errors == nil {
		return
	}
	entry := &sessionerrors.SessionError{
		TenantID:  sess.TenantID,
		SessionID: string(sess.ID),
		AgentID:   agentID,
		Phase:     phase,
		Message:   msg,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Errors.Save(ctx, entry); err != nil {
		log.Printf("session %s: error audit write failed: %v", sess.ID, err)
	}
}

// SessionErrors lists the persisted failure entries for one session.
func (s *Service) SessionErrors(ctx context.Context, tenant string, id domain.SessionID, limit int) ([]*sessionerrors.SessionError, error) {
	if s.Errors == nil {
		return []*sessionerrors.SessionError{}, nil
	}
	return s.Errors.ListBySession(ctx, tenant, string(id), limit)
}

// publish replaces the registry snapshot wholesale so pollers never observe a
// half-mutated session.
func (s *Service) publish(sess *domain.Session) {
	snapshot := sess.Clone()
	s.mu.Lock()
	s.live[sess.ID] = snapshot
	s.mu.Unlock()
}

// uploadReport pushes the final session report to object storage. Best
// effort: a missing or failing store only leaves ReportURL empty.
func (s *Service) uploadReport(ctx context.Context, sess *domain.Session) {
	if s.Reports == nil {
		return
	}
	view := domain.NewSessionView(sess)
	payload, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return
	}
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("triage-report-%s.json", sess.ID))
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return
	}
	key := fmt.Sprintf("%s/reports/%s.json", sess.TenantID, sess.ID)
	url, err := s.Reports.UploadAndCleanup(ctx, tmp, key)
	if err != nil {
		os.Remove(tmp)
		log.Printf("session %s: report upload failed: %v", sess.ID, err)
		return
	}
	sess.ReportURL = url
}

// runGuarded shields the pipeline from a panicking analyzer: the panic
// becomes a failed AnalysisResult and the next phase still runs.
func runGuarded(ctx context.Context, a domain.Analyzer, req domain.AnalyzerRequest) (res domain.AnalysisResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = domain.AnalysisResult{
				AgentID:       a.ID(),
				ResultType:    a.ID(),
				Success:       false,
				Confidence:    0,
				ExecutionSecs: time.Since(start).Seconds(),
				ErrorMessage:  fmt.Sprintf("analyzer panic: %v", r),
			}
		}
	}()
	return a.Run(ctx, req)
}

func validateArtifact(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactUnreadable, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactUnreadable, path)
	}
	f.Close()
	return info, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
