// Package platform is the filesystem-owning facade described in spec.md
// §4.10: it validates the project directory, loads scene and index files,
// drives the session state machine, and persists every mutation, calling
// into internal/core for every LLM-backed operation. The CLI reads scene
// files and a session's findings itself but changes sessions only through
// this package.
package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alanmeadows/lit-critic/internal/core"
	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/errs"
	"github.com/alanmeadows/lit-critic/internal/learning"
	"github.com/alanmeadows/lit-critic/internal/persistence"
	"github.com/alanmeadows/lit-critic/internal/pipeline/lenspref"
	"github.com/alanmeadows/lit-critic/internal/scenediff"
	"github.com/alanmeadows/lit-critic/internal/session"
)

// Facade ties one project's persistence store to the Core Service. A
// process holds one Facade per open project directory.
type Facade struct {
	ProjectDir string
	DBPath     string

	store *persistence.Store
	core  *core.Service
}

// Open runs the repo-path preflight check, then opens (creating if
// necessary) the project's SQLite database at <projectDir>/.lit-critic.db.
func Open(rawProjectDir string, svc *core.Service) (*Facade, error) {
	resolved, err := ValidateRepoPath(rawProjectDir)
	if err != nil {
		return nil, err
	}
	dbPath := resolved + "/.lit-critic.db"
	st, err := persistence.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening project database: %w", err)
	}
	return &Facade{ProjectDir: resolved, DBPath: dbPath, store: st, core: svc}, nil
}

// Close releases the project database handle.
func (f *Facade) Close() error { return f.store.Close() }

// SceneFile is one scene's path (relative to ProjectDir) and text.
type SceneFile struct {
	Path string
	Text string
}

// StartSession runs a full analysis over scenes and persists a new active
// session with the returned findings.
func (f *Facade) StartSession(ctx context.Context, scenes []SceneFile, modelCfg, discussionCfg core.ModelConfig, lensPrefs *lenspref.Raw) (*domain.Session, error) {
	if len(scenes) == 0 {
		return nil, errs.ValidationError("at least one scene file is required")
	}

	names := make([]string, len(scenes))
	texts := make([]string, len(scenes))
	paths := make([]string, len(scenes))
	for i, s := range scenes {
		names[i] = s.Path
		texts[i] = s.Text
		paths[i] = s.Path
	}
	sceneText := scenediff.ConcatenateScenes(names, texts)

	indexContents, err := loadIndexFiles(f.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("loading index files: %w", err)
	}

	projectLearning, err := f.store.Learning.GetOrCreate(filepath.Base(f.ProjectDir))
	if err != nil {
		return nil, fmt.Errorf("loading learning context: %w", err)
	}

	prefs := lenspref.Default()
	var wirePrefs *core.LensPreferences
	if lensPrefs != nil {
		prefs, err = lenspref.Normalize(lensPrefs, len(scenes))
		if err != nil {
			return nil, errs.ValidationError(err.Error())
		}
		wirePrefs = &core.LensPreferences{Preset: prefs.Preset, Weights: weightsToStringKeys(prefs.Weights)}
	}

	resp, err := f.core.Analyze(ctx, core.AnalyzeRequest{
		SceneText:       sceneText,
		Indexes:         indexesFromContents(indexContents),
		LearningContext: learningContextPayload(projectLearning),
		LensPreferences: wirePrefs,
		ModelConfig:     modelCfg,
	})
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ScenePaths:      paths,
		SceneHash:       persistence.HashScene(sceneText),
		Model:           resp.Meta.ModelUsed,
		DiscussionModel: discussionCfg.Model,
		Findings:        resp.Findings,
		Status:          domain.SessionActive,
		GlossaryIssues:  resp.GlossaryIssues,
		LensPreferences: prefs,
		CreatedAt:       time.Now().UTC(),
	}
	sess.RecomputeCounters()
	sess.IndexContextHash = persistence.HashIndexContext(indexContents)

	id, err := f.store.Sessions.Create(sess)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	sess.ID = strconv.FormatInt(id, 10)
	for _, fn := range sess.Findings {
		if err := f.store.Findings.Create(id, fn); err != nil {
			return nil, fmt.Errorf("creating finding %d: %w", fn.Number, err)
		}
	}
	if err := f.store.Sessions.Save(id, sess); err != nil {
		return nil, fmt.Errorf("saving session index context: %w", err)
	}

	return sess, nil
}

// ActiveSessionID returns the id of the project's single active session, or
// an error if none is active.
func (f *Facade) ActiveSessionID() (int64, error) {
	sess, err := f.store.Sessions.LoadActive()
	if err != nil {
		return 0, fmt.Errorf("loading active session: %w", err)
	}
	if sess == nil {
		return 0, errs.ValidationError("no active session for this project")
	}
	return mustSessionID(sess), nil
}

// ListSessions returns every session for this project, newest first, with
// findings unpopulated (use ResumeSession/GetSession for full detail).
func (f *Facade) ListSessions() ([]*domain.Session, error) {
	return f.store.Sessions.ListAll()
}

// GetSession loads a session by id, including its findings.
func (f *Facade) GetSession(id int64) (*domain.Session, error) {
	sess, err := f.store.Sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}
	if sess == nil {
		return nil, errs.ValidationError(fmt.Sprintf("no such session: %d", id))
	}
	findings, err := f.store.Findings.ListBySession(id)
	if err != nil {
		return nil, fmt.Errorf("loading findings for session %d: %w", id, err)
	}
	sess.Findings = findings
	return sess, nil
}

// DeleteSession removes a session and its findings.
func (f *Facade) DeleteSession(id int64) error {
	return f.store.Sessions.Delete(id)
}

// ResumeSession loads a saved session and validates it against the scene
// text presently on disk.
func (f *Facade) ResumeSession(id int64, scenes []SceneFile) (*domain.Session, error) {
	sess, err := f.store.Sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}
	if sess == nil {
		return nil, errs.ValidationError(fmt.Sprintf("no such session: %d", id))
	}

	findings, err := f.store.Findings.ListBySession(id)
	if err != nil {
		return nil, fmt.Errorf("loading findings for session %d: %w", id, err)
	}
	sess.Findings = findings

	names := make([]string, len(scenes))
	texts := make([]string, len(scenes))
	paths := make([]string, len(scenes))
	for i, s := range scenes {
		names[i], texts[i], paths[i] = s.Path, s.Text, s.Path
	}
	sceneText := scenediff.ConcatenateScenes(names, texts)
	if err := persistence.ValidateScene(sess, paths, sceneText); err != nil {
		return nil, err
	}

	indexContents, err := loadIndexFiles(f.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("loading index files: %w", err)
	}
	currentHash := persistence.HashIndexContext(indexContents)
	var changedFiles []string
	if currentHash != sess.IndexContextHash {
		changedFiles = append([]string(nil), persistence.IndexFiles...)
	}
	// learningOnlyChange is always false here: the combined hash mixes every
	// index file together, and LEARNING.md is deliberately excluded from it
	// (persistence.IndexFiles), so any hash drift this check observes is a
	// real index change, never a learning-only one.
	persistence.CheckIndexContextStaleness(sess, currentHash, changedFiles, false)

	return sess, nil
}

// DiscussFinding condenses discussion history and calls the Core Service's
// discuss operation for one finding, applying the resulting status and
// persisting both the finding and the session's discussion log.
func (f *Facade) DiscussFinding(ctx context.Context, sess *domain.Session, findingNumber int, sceneText, authorMessage string, sceneChanged bool, cfg core.ModelConfig) (*core.DiscussResponse, error) {
	finding := sess.FindingByNumber(findingNumber)
	if finding == nil {
		return nil, errs.ValidationError(fmt.Sprintf("no finding numbered %d", findingNumber))
	}

	originalTurns := finding.DiscussionTurns
	history := condenseDiscussionTurns(originalTurns)
	resp, err := f.core.Discuss(ctx, core.DiscussRequest{
		SceneText:         sceneText,
		Finding:           finding,
		DiscussionHistory: history,
		AuthorMessage:     authorMessage,
		SceneChanged:      sceneChanged,
		ModelConfig:       cfg,
	})
	if err != nil {
		return nil, err
	}

	// resp.UpdatedFinding.DiscussionTurns only covers the condensed window
	// sent to the core; the persisted finding keeps its full history.
	*finding = *resp.UpdatedFinding
	finding.DiscussionTurns = append(originalTurns,
		domain.DiscussionTurn{Role: domain.RoleUser, Content: authorMessage},
		domain.DiscussionTurn{Role: domain.RoleAssistant, Content: resp.AssistantResponse},
	)
	sess.DiscussionHistory = append(sess.DiscussionHistory, domain.SessionDiscussionEntry{
		FindingNumber: findingNumber, User: authorMessage, Assistant: resp.AssistantResponse,
	})

	legacyStatus := resp.Action.Payload["legacy_status"]
	if legacyStatus == "accepted" {
		session.RecordDiscussionAcceptance(finding, &sess.LearningSession)
	} else if legacyStatus == "rejected" || legacyStatus == "conceded" {
		session.RecordDiscussionRejection(finding, &sess.LearningSession, authorMessage, "")
	}

	session.RecomputeSessionStatus(sess)
	if err := f.persistFindingAndSession(sess, finding); err != nil {
		return nil, err
	}
	return resp, nil
}

// AcceptFinding marks a finding accepted via the author's own judgment (no
// discussion round-trip) and persists the mutation.
func (f *Facade) AcceptFinding(sess *domain.Session, findingNumber int) error {
	finding := sess.FindingByNumber(findingNumber)
	if finding == nil {
		return errs.ValidationError(fmt.Sprintf("no finding numbered %d", findingNumber))
	}
	session.ApplyAcceptance(finding, &sess.LearningSession)
	session.RecomputeSessionStatus(sess)
	return f.persistFindingAndSession(sess, finding)
}

// RejectFinding marks a finding rejected with reason and persists the
// mutation.
func (f *Facade) RejectFinding(sess *domain.Session, findingNumber int, reason string) error {
	finding := sess.FindingByNumber(findingNumber)
	if finding == nil {
		return errs.ValidationError(fmt.Sprintf("no finding numbered %d", findingNumber))
	}
	session.ApplyRejection(finding, &sess.LearningSession, reason)
	session.RecomputeSessionStatus(sess)
	return f.persistFindingAndSession(sess, finding)
}

// ReviewSceneEdits re-diffs the scene against what is on disk, remaps or
// stale-marks findings from currentIndex onward, and re-evaluates any newly
// stale findings through the Core Service.
func (f *Facade) ReviewSceneEdits(ctx context.Context, sess *domain.Session, currentIndex int, oldSceneText, newSceneText string, cfg core.ModelConfig) (*scenediff.ChangeReport, error) {
	reEval := &sessionReEvaluator{core: f.core, cfg: cfg}
	report, err := scenediff.DetectAndApply(ctx, sess, currentIndex, oldSceneText, newSceneText, reEval)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, nil
	}
	session.RecomputeSessionStatus(sess)
	if err := f.persistSession(sess); err != nil {
		return nil, err
	}
	touched := make([]int, 0, len(report.Adjusted)+len(report.Stale)+len(report.ReEvaluated))
	touched = append(touched, report.Adjusted...)
	touched = append(touched, report.Stale...)
	touched = append(touched, findingNumbers(report.ReEvaluated)...)
	for _, n := range touched {
		if finding := sess.FindingByNumber(n); finding != nil {
			if err := f.store.Findings.Save(mustSessionID(sess), finding); err != nil {
				return nil, fmt.Errorf("saving finding %d after scene edit: %w", n, err)
			}
		}
	}
	return report, nil
}

func findingNumbers(outcomes []session.ReEvaluationOutcome) []int {
	out := make([]int, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.FindingNumber
	}
	return out
}

// CompleteSession marks the session completed, copies its working learning
// lists into the durable store, and re-exports LEARNING.md.
func (f *Facade) CompleteSession(sess *domain.Session) error {
	projectLearning, err := f.store.Learning.GetOrCreate(filepath.Base(f.ProjectDir))
	if err != nil {
		return fmt.Errorf("loading learning context: %w", err)
	}
	if err := session.CompleteSession(sess, projectLearning); err != nil {
		return err
	}
	if err := learning.PersistSessionLearning(f.store.Learning, &sess.LearningSession); err != nil {
		return err
	}
	if err := f.store.Learning.SaveReviewCount(projectLearning.ReviewCount); err != nil {
		return fmt.Errorf("saving review count: %w", err)
	}
	if err := f.persistSession(sess); err != nil {
		return err
	}

	exported, err := f.store.Learning.GetOrCreate(filepath.Base(f.ProjectDir))
	if err != nil {
		return fmt.Errorf("reloading learning context for export: %w", err)
	}
	return learning.Save(learningFilePath(f.ProjectDir), exported, time.Now().UTC())
}

// Learning returns the project's current cross-session learning record.
func (f *Facade) Learning() (*domain.Learning, error) {
	return f.store.Learning.GetOrCreate(filepath.Base(f.ProjectDir))
}

// ExportLearning re-renders LEARNING.md from the durable store.
func (f *Facade) ExportLearning() error {
	current, err := f.Learning()
	if err != nil {
		return err
	}
	return learning.Save(learningFilePath(f.ProjectDir), current, time.Now().UTC())
}

// ResetLearning clears every learning entry and review count, then
// re-exports an empty LEARNING.md.
func (f *Facade) ResetLearning() error {
	if err := f.store.Learning.Reset(); err != nil {
		return err
	}
	return f.ExportLearning()
}

// AbandonSession marks the session abandoned and persists it.
func (f *Facade) AbandonSession(sess *domain.Session) error {
	session.AbandonSession(sess)
	return f.persistSession(sess)
}

func (f *Facade) persistFindingAndSession(sess *domain.Session, finding *domain.Finding) error {
	id := mustSessionID(sess)
	if err := f.store.Findings.Save(id, finding); err != nil {
		return fmt.Errorf("saving finding %d: %w", finding.Number, err)
	}
	return f.persistSession(sess)
}

func (f *Facade) persistSession(sess *domain.Session) error {
	sess.RecomputeCounters()
	if err := f.store.Sessions.Save(mustSessionID(sess), sess); err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

func mustSessionID(sess *domain.Session) int64 {
	id, _ := strconv.ParseInt(sess.ID, 10, 64)
	return id
}

func weightsToStringKeys(weights map[domain.Lens]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for lens, w := range weights {
		out[string(lens)] = w
	}
	return out
}

func learningContextPayload(l *domain.Learning) map[string]any {
	return map[string]any{
		"preferences":           l.Preferences,
		"blind_spots":           l.BlindSpots,
		"resolutions":           l.Resolutions,
		"ambiguity_intentional": l.AmbiguityIntentional,
		"ambiguity_accidental":  l.AmbiguityAccidental,
	}
}

// sessionReEvaluator adapts the Core Service plus one session's model
// configuration into scenediff.ReEvaluator, so the facade — the only layer
// that knows a session's API keys — supplies them on every re-evaluation
// call instead of the Core Service holding any ambient credential.
type sessionReEvaluator struct {
	core *core.Service
	cfg  core.ModelConfig
}

func (r *sessionReEvaluator) ReEvaluateFinding(ctx context.Context, finding *domain.Finding, updatedScene string) (session.ReEvaluationResult, error) {
	resp, err := r.core.ReEvaluate(ctx, core.ReEvaluateRequest{
		Finding:      finding,
		UpdatedScene: updatedScene,
		ModelConfig:  r.cfg,
	})
	if err != nil {
		return session.ReEvaluationResult{}, err
	}
	result := session.ReEvaluationResult{Status: resp.Status, Reason: resp.Reason}
	if resp.UpdatedFinding != nil {
		result.LineStart = resp.UpdatedFinding.LineStart
		result.LineEnd = resp.UpdatedFinding.LineEnd
		result.Location = resp.UpdatedFinding.Location
		result.Evidence = resp.UpdatedFinding.Evidence
		result.Severity = resp.UpdatedFinding.Severity
	}
	return result, nil
}
