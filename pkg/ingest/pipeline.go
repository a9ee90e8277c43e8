// Package ingest fetches exam metadata and image files from Opal, validates
// and de-identifies them and records the outcome in the record store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/dicom"
	"github.com/mwantia/alder/pkg/log"
	"github.com/mwantia/alder/pkg/opal"
	"github.com/mwantia/alder/pkg/records"
)

var (
	ErrInterviewNotSaved = errors.New("interview has not been saved")
	ErrUnknownExamType   = errors.New("unknown exam type")
)

// Remote is the part of the Opal client the pipeline depends on.
type Remote interface {
	Identifiers(ctx context.Context, dataSource, table string) ([]string, error)
	Rows(ctx context.Context, dataSource, table string, offset, limit int) (map[string]map[string]any, error)
	Row(ctx context.Context, dataSource, table, identifier string) (map[string]any, error)
	Values(ctx context.Context, dataSource, table, identifier, variable string) ([]string, error)
	SaveFile(ctx context.Context, fileName, dataSource, table, identifier, variable string, position int) error
}

var _ Remote = (*opal.Client)(nil)

// State is the position of one exam in the download state machine.
type State int

const (
	StateNotStarted State = iota
	StateFetching
	StateValidating
	StateParenting
	StateDownloaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateFetching:
		return "fetching"
	case StateValidating:
		return "validating"
	case StateParenting:
		return "parenting"
	case StateDownloaded:
		return "downloaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result summarises one ingestion call. Counts are per acquisition for
// image downloads and per row for metadata updates.
type Result struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Created   int

	State   State
	Aborted bool
}

func (r *Result) Add(other Result) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Created += other.Created
	r.Aborted = r.Aborted || other.Aborted
}

func (r Result) String() string {
	return fmt.Sprintf("attempted %d, succeeded %d, failed %d, skipped %d, created %d",
		r.Attempted, r.Succeeded, r.Failed, r.Skipped, r.Created)
}

// Pipeline runs ingestion sequentially; it is not safe for concurrent use.
type Pipeline struct {
	repo     *records.Repository
	remote   Remote
	log      log.LoggerService
	pageSize int
}

func NewPipeline(repo *records.Repository, remote Remote, logger log.LoggerService, pageSize int) *Pipeline {
	if logger == nil {
		logger = log.NewDiscardLogger()
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Pipeline{
		repo:     repo,
		remote:   remote,
		log:      logger,
		pageSize: pageSize,
	}
}

// UpdateInterviewData creates an interview for every participant visit
// known to Opal. An abort ends the sync early without an error.
func (p *Pipeline) UpdateInterviewData(ctx context.Context) (Result, error) {
	var result Result

	ids, err := p.remote.Identifiers(ctx, ParticipantSource, ParticipantTable)
	if opal.IsAborted(err) {
		result.Aborted = true
		return result, nil
	}
	if err != nil {
		return result, err
	}
	p.log.Info("Synchronizing %d participants", len(ids))

	for offset := 0; offset < len(ids); offset += p.pageSize {
		rows, err := p.remote.Rows(ctx, ParticipantSource, ParticipantTable, offset, p.pageSize)
		if opal.IsAborted(err) {
			result.Aborted = true
			return result, nil
		}
		if err != nil {
			return result, err
		}

		for uid, row := range rows {
			result.Attempted++
			visit := visitDate(row[VisitDateVariable])
			if visit == "" {
				p.log.Warn("Participant '%s' has no visit date", uid)
				result.Skipped++
				continue
			}

			_, created, err := p.repo.EnsureInterview(ctx, uid, visit, asString(row[SiteVariable]))
			if err != nil {
				return result, err
			}
			result.Succeeded++
			if created {
				result.Created++
			}
		}
	}

	p.log.Info("Interview sync finished: %s", result)
	return result, nil
}

// UpdateExamData creates or refreshes the exams of an interview from the
// participant's stage metadata. The interview must have been saved.
func (p *Pipeline) UpdateExamData(ctx context.Context, interview *models.Interview) (Result, error) {
	var result Result
	if !interview.IsLoaded() {
		return result, ErrInterviewNotSaved
	}

	row, err := p.remote.Row(ctx, ParticipantSource, ParticipantTable, interview.UID)
	if opal.IsAborted(err) {
		result.Aborted = true
		return result, nil
	}
	if err != nil {
		return result, err
	}

	for _, policy := range Policies() {
		status := asString(row[StageVariable(policy.Type, "status")])
		if status == "" {
			continue
		}

		modality, err := p.repo.ModalityByName(ctx, policy.Modality)
		if err != nil {
			return result, fmt.Errorf("modality of %s: %w", policy.Type, err)
		}

		for _, laterality := range policy.Lateralities {
			result.Attempted++
			created, err := p.upsertExam(ctx, interview, modality, policy, laterality, row, status)
			if err != nil {
				return result, err
			}
			result.Succeeded++
			if created {
				result.Created++
			}
		}
	}
	return result, nil
}

func (p *Pipeline) upsertExam(ctx context.Context, interview *models.Interview, modality *models.Modality, policy Policy, laterality string, row map[string]any, status string) (bool, error) {
	var exam *models.Exam
	var err error
	if policy.DeriveLaterality {
		// The stored side replaces the placeholder once images are in.
		exam, err = p.repo.ExamOfType(ctx, interview.ID, policy.Type)
	} else {
		exam, err = p.repo.FindExam(ctx, interview.ID, policy.Type, laterality)
	}
	created := false
	switch {
	case errors.Is(err, records.ErrNotFound):
		exam = &models.Exam{
			InterviewID: interview.ID,
			ModalityID:  modality.ID,
			Type:        policy.Type,
			Laterality:  laterality,
		}
		created = true
	case err != nil:
		return false, err
	}

	exam.Stage = status
	exam.Interviewer = asString(row[StageVariable(policy.Type, "user")])
	exam.DatetimeAcquired = asString(row[StageVariable(policy.Type, "lastTime")])
	return created, p.repo.Save(ctx, exam)
}

// fetched is an acquisition that passed validation.
type fetched struct {
	acquisition Acquisition
	image       *models.Image
	info        *dicom.Info
}

// examRun carries the state of one UpdateImageData call.
type examRun struct {
	p         *Pipeline
	exam      *models.Exam
	interview *models.Interview
	policy    Policy
	state     State
	result    Result
	log       log.LoggerService
}

func (run *examRun) transition(to State) {
	run.log.Debug("%s -> %s", run.state, to)
	run.state = to
	run.result.State = to
}

// UpdateImageData downloads, validates and post-processes every image of
// an exam. Individual acquisitions may fail without failing the exam; the
// exam is marked downloaded once at least one acquisition succeeded. A
// missing interview or modality is returned as an error, as is an abort
// (opal.ErrAborted).
func (p *Pipeline) UpdateImageData(ctx context.Context, exam *models.Exam) (Result, error) {
	if exam.HasImageData() {
		return Result{State: StateDownloaded, Skipped: 1}, nil
	}

	policy, ok := PolicyFor(exam.Type)
	if !ok {
		return Result{State: StateFailed}, fmt.Errorf("%w: '%s'", ErrUnknownExamType, exam.Type)
	}

	interview, err := p.repo.Interview(ctx, exam.InterviewID)
	if err != nil {
		return Result{State: StateFailed}, fmt.Errorf("interview of exam %d: %w", exam.ID, err)
	}
	if _, err := p.repo.Modality(ctx, exam.ModalityID); err != nil {
		return Result{State: StateFailed}, fmt.Errorf("modality of exam %d: %w", exam.ID, err)
	}

	run := &examRun{
		p:         p,
		exam:      exam,
		interview: interview,
		policy:    policy,
		log:       p.log.With("exam", exam.ID),
	}
	return run.execute(ctx)
}

func (run *examRun) execute(ctx context.Context) (Result, error) {
	var done []fetched

	for _, acq := range run.policy.Acquisitions {
		if ctx.Err() != nil {
			run.result.Aborted = true
			return run.result, fmt.Errorf("%w: %w", opal.ErrAborted, ctx.Err())
		}

		f, err := run.acquire(ctx, acq)
		if opal.IsAborted(err) {
			run.result.Aborted = true
			return run.result, err
		}
		if err != nil {
			run.result.Failed++
			run.log.Warn("Acquisition %s failed: %v", acq.Variable, err)
			continue
		}
		if f != nil {
			done = append(done, *f)
		}
	}

	if len(done) == 0 {
		run.transition(StateFailed)
		return run.result, nil
	}

	run.transition(StateParenting)
	if err := run.parent(ctx, done); err != nil {
		return run.result, err
	}

	if err := run.p.CleanImages(ctx, run.exam, run.policy); err != nil {
		run.log.Warn("Cleaning images failed: %v", err)
	}

	if run.policy.DeriveLaterality {
		if err := run.p.deriveLaterality(ctx, run.exam, done[0].info); err != nil {
			run.log.Warn("Deriving laterality failed: %v", err)
		}
	}

	run.exam.Downloaded = true
	if err := run.p.repo.Save(ctx, run.exam); err != nil {
		return run.result, err
	}

	run.transition(StateDownloaded)
	return run.result, nil
}

// acquire fetches one acquisition. It returns nil without error when the
// acquisition does not apply to this exam's side.
func (run *examRun) acquire(ctx context.Context, acq Acquisition) (*fetched, error) {
	repo := run.p.repo
	remote := run.p.remote

	position := -1
	if run.exam.HasLaterality() && run.policy.SideVariable != "" {
		sides, err := remote.Values(ctx, ImageSource, run.policy.Table, run.interview.UID, run.policy.SideVariable)
		if err != nil {
			run.result.Attempted++
			return nil, err
		}
		position = ResolveSideIndex(sides, run.exam.Laterality)
		if position < 0 {
			run.log.Debug("No %s acquisition for side %s", acq.Variable, run.exam.Laterality)
			run.result.Skipped++
			return nil, nil
		}
	}

	run.result.Attempted++

	image, err := repo.ImageByAcquisition(ctx, run.exam.ID, acq.Index)
	switch {
	case errors.Is(err, records.ErrNotFound):
		image = &models.Image{ExamID: run.exam.ID, Acquisition: acq.Index}
		if err := repo.Save(ctx, image); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	final := strings.TrimSuffix(acq.Suffix, ".gz")
	finalPath, err := repo.ImagePath(ctx, image, final)
	if err != nil {
		return nil, err
	}

	// A file left by an interrupted run is reused when it is still valid.
	if _, statErr := os.Stat(finalPath); statErr == nil {
		if _, err := ValidateFile(finalPath); err == nil {
			return run.finish(ctx, acq, image, finalPath)
		}
	}

	downloadPath, err := repo.ImagePath(ctx, image, acq.Suffix)
	if err != nil {
		return nil, err
	}

	run.transition(StateFetching)
	err = remote.SaveFile(ctx, downloadPath, ImageSource, run.policy.Table, run.interview.UID, acq.Variable, position)
	if err != nil {
		run.discard(ctx, image, downloadPath, finalPath)
		return nil, err
	}

	run.transition(StateValidating)
	if _, err := ValidateFile(downloadPath); err != nil {
		run.discard(ctx, image, downloadPath, finalPath)
		return nil, err
	}

	return run.finish(ctx, acq, image, finalPath)
}

func (run *examRun) finish(ctx context.Context, acq Acquisition, image *models.Image, path string) (*fetched, error) {
	f := &fetched{acquisition: acq, image: image}

	if strings.HasSuffix(path, ".dcm") {
		info, err := dicom.Inspect(path)
		if err != nil {
			run.discard(ctx, image, path)
			return nil, err
		}
		f.info = info
		image.SetDimensionality(info.Dimensionality())
		if err := run.p.repo.Save(ctx, image); err != nil {
			return nil, err
		}
	}

	run.result.Succeeded++
	return f, nil
}

// discard removes the files and the placeholder row of a failed
// acquisition so no partial state survives.
func (run *examRun) discard(ctx context.Context, image *models.Image, paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			run.log.Warn("Failed to remove '%s': %v", path, err)
		}
	}
	if image.ID == 0 {
		return
	}
	if err := run.p.repo.RemoveImage(context.WithoutCancel(ctx), image); err != nil {
		run.log.Error("Failed to remove image %d: %v", image.ID, err)
	}
}

// parent links related acquisitions according to the policy.
func (run *examRun) parent(ctx context.Context, done []fetched) error {
	switch run.policy.Parenting {
	case ParentByAcquisitionTime:
		var cineloops []fetched
		for _, f := range done {
			if f.acquisition.Role == RoleCineloop {
				cineloops = append(cineloops, f)
			}
		}
		if len(cineloops) == 0 {
			return nil
		}

		for _, still := range done {
			if still.acquisition.Role != RoleStill {
				continue
			}
			parent := matchCineloop(still, cineloops)
			still.image.SetParent(parent.image)
			if err := run.p.repo.Save(ctx, still.image); err != nil {
				return err
			}
		}

	case ParentToFirst:
		if len(done) < 2 || done[0].acquisition.Index != run.policy.Acquisitions[0].Index {
			return nil
		}
		for _, f := range done[1:] {
			f.image.SetParent(done[0].image)
			if err := run.p.repo.Save(ctx, f.image); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchCineloop returns the cineloop recorded at the still's acquisition
// time, falling back to the most recently inserted cineloop.
func matchCineloop(still fetched, cineloops []fetched) fetched {
	if still.info != nil && still.info.AcquisitionTime != "" {
		for _, c := range cineloops {
			if c.info != nil && c.info.AcquisitionTime == still.info.AcquisitionTime {
				return c
			}
		}
	}

	latest := cineloops[0]
	for _, c := range cineloops[1:] {
		if c.image.ID > latest.image.ID {
			latest = c
		}
	}
	return latest
}

// UpdateInterviewImageData refreshes the exams of an interview and
// downloads the images of each. An abort ends the run without an error.
func (p *Pipeline) UpdateInterviewImageData(ctx context.Context, interview *models.Interview) (Result, error) {
	runID := uuid.NewString()
	logger := p.log.With("run", runID[:8])

	result, err := p.UpdateExamData(ctx, interview)
	if err != nil || result.Aborted {
		return result, err
	}

	exams, err := p.repo.ExamsOf(ctx, interview.ID)
	if err != nil {
		return result, err
	}

	for _, exam := range exams {
		r, err := p.UpdateImageData(ctx, exam)
		result.Add(r)
		if opal.IsAborted(err) {
			logger.Info("Aborted while downloading %s", records.ExamCode(exam))
			result.Aborted = true
			return result, nil
		}
		if err != nil {
			return result, err
		}
	}

	logger.Info("Interview %s/%s: %s", interview.UID, interview.VisitDate, result)
	return result, nil
}

func visitDate(v any) string {
	s := asString(v)
	if len(s) >= 10 {
		return s[:10]
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []string:
		if len(t) > 0 {
			return strings.TrimSpace(t[0])
		}
	}
	return ""
}
