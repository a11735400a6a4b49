package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/learning/audiopath"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/contentstore"
	"github.com/yungbote/coursefront-backend/internal/platform/httpx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type MigrationStatus string

const (
	MigrationAlreadyStable MigrationStatus = "already_stable"
	MigrationNoLegacyAudio MigrationStatus = "no_legacy_audio"
	MigrationMigrated      MigrationStatus = "migrated"
	MigrationFailed        MigrationStatus = "failed"
)

type MigrationReport struct {
	LessonID uuid.UUID       `json:"lesson_id"`
	Position int             `json:"position"`
	Status   MigrationStatus `json:"status"`
	Copied   int             `json:"copied"`
	Vanished int             `json:"vanished"`
	Error    string          `json:"error,omitempty"`
}

type AudioMigrationConfig struct {
	Retry             contentstore.RetryPolicy
	PauseBetweenFiles time.Duration
}

func DefaultAudioMigrationConfig() AudioMigrationConfig {
	return AudioMigrationConfig{
		Retry:             contentstore.DefaultRetryPolicy(),
		PauseBetweenFiles: 250 * time.Millisecond,
	}
}

type AudioMigrationService interface {
	// EnsureStableAudio copies legacy position-addressed narration to the
	// identity-addressed location for each lesson, in input order. It never
	// returns an error; per-lesson outcomes are in the reports.
	EnsureStableAudio(ctx context.Context, lessons []types.LessonRef) []MigrationReport
}

type audioMigrationService struct {
	log   *logger.Logger
	store contentstore.Store
	cfg   AudioMigrationConfig
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAudioMigrationService(log *logger.Logger, store contentstore.Store, cfg AudioMigrationConfig) AudioMigrationService {
	return &audioMigrationService{
		log:   log.With("service", "AudioMigrationService"),
		store: store,
		cfg:   cfg,
		sleep: httpx.Sleep,
	}
}

type legacySlide struct {
	index int
	path  string
}

func (s *audioMigrationService) EnsureStableAudio(ctx context.Context, lessons []types.LessonRef) []MigrationReport {
	reports := make([]MigrationReport, 0, len(lessons))
	if len(lessons) == 0 {
		return reports
	}
	ctx, span := observability.StartSpan(ctx, "audio.ensure_stable", attribute.Int("lesson_count", len(lessons)))
	start := time.Now()
	var failed, copied, vanished int
	statuses := make([]string, 0, len(lessons))
	for _, l := range lessons {
		rep := s.ensureLesson(ctx, l)
		if rep.Status == MigrationFailed {
			failed++
		}
		copied += rep.Copied
		vanished += rep.Vanished
		statuses = append(statuses, string(rep.Status))
		reports = append(reports, rep)
	}
	span.SetAttributes(attribute.Int("failed_count", failed), attribute.Int("copied_count", copied))
	observability.EndSpan(span, nil)
	observability.Current().ObserveAudioMigration(statuses, copied, vanished, time.Since(start))
	return reports
}

func (s *audioMigrationService) ensureLesson(ctx context.Context, l types.LessonRef) MigrationReport {
	log := s.log.WithContext(ctx).With("lesson_id", l.ID, "position", l.Position)
	rep := MigrationReport{LessonID: l.ID, Position: l.Position}
	fail := func(step string, err error) MigrationReport {
		rep.Status = MigrationFailed
		rep.Error = fmt.Sprintf("%s: %v", step, err)
		log.Warn("audio migration abandoned for lesson", "step", step, "copied", rep.Copied, "error", err)
		return rep
	}

	// Only a successful listing with slide files counts as stable. Any other
	// outcome falls through to the copy, which overwrites idempotently.
	stable, err := s.listSlides(ctx, audiopath.StableDir(l.ID))
	switch {
	case err == nil && len(stable) > 0:
		rep.Status = MigrationAlreadyStable
		return rep
	case err != nil && !errors.Is(err, contentstore.ErrNotFound):
		log.Warn("stable audio listing failed; checking legacy location", "error", err)
	}

	legacy, err := s.listSlides(ctx, audiopath.LegacyDir(l.Position))
	if errors.Is(err, contentstore.ErrNotFound) || (err == nil && len(legacy) == 0) {
		rep.Status = MigrationNoLegacyAudio
		return rep
	}
	if err != nil {
		return fail("list legacy", err)
	}

	wrote := false
	for _, src := range legacy {
		// Pause between a write and the next read.
		if wrote {
			if err := s.sleep(ctx, s.cfg.PauseBetweenFiles); err != nil {
				return fail("pause", err)
			}
			wrote = false
		}
		f, err := contentstore.Retry(ctx, s.cfg.Retry, func(ctx context.Context) (*contentstore.File, error) {
			return s.store.ReadFile(ctx, src.path)
		})
		if errors.Is(err, contentstore.ErrNotFound) {
			rep.Vanished++
			log.Debug("legacy audio vanished before read", "path", src.path)
			continue
		}
		if err != nil {
			return fail("read "+src.path, err)
		}
		dst := audiopath.StablePath(l.ID, src.index)
		if _, err := contentstore.Retry(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
			return s.store.WriteFile(ctx, dst, f.Content, "")
		}); err != nil {
			return fail("write "+dst, err)
		}
		wrote = true
		rep.Copied++
	}

	if rep.Copied == 0 {
		rep.Status = MigrationNoLegacyAudio
		return rep
	}
	rep.Status = MigrationMigrated
	log.Info("audio migrated to stable location", "copied", rep.Copied, "vanished", rep.Vanished)
	return rep
}

// listSlides lists dir and keeps only slideN.mp3 files, ordered by N.
func (s *audioMigrationService) listSlides(ctx context.Context, dir string) ([]legacySlide, error) {
	entries, err := contentstore.Retry(ctx, s.cfg.Retry, func(ctx context.Context) ([]contentstore.Entry, error) {
		return s.store.ListDirectory(ctx, dir)
	})
	if err != nil {
		return nil, err
	}
	out := make([]legacySlide, 0, len(entries))
	for _, e := range entries {
		if e.Type != contentstore.EntryTypeFile {
			continue
		}
		idx, ok := audiopath.ParseSlideFile(e.Name)
		if !ok {
			continue
		}
		out = append(out, legacySlide{index: idx, path: dir + "/" + e.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out, nil
}
