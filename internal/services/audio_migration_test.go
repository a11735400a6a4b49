package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/learning/audiopath"
	"github.com/yungbote/coursefront-backend/internal/platform/contentstore"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

func testMigrationConfig() AudioMigrationConfig {
	return AudioMigrationConfig{Retry: contentstore.RetryPolicy{MaxAttempts: 3}}
}

func newTestMigration(store contentstore.Store) AudioMigrationService {
	return NewAudioMigrationService(logger.Nop(), store, testMigrationConfig())
}

func TestEnsureStableAudioCopiesLegacyFiles(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson4/slide1.mp3", []byte("one"))
	store.put("audio/lesson4/slide2.mp3", []byte("two"))
	store.put("audio/lesson4/notes.txt", []byte("ignored"))
	store.put("audio/lesson4/takes/slide1.mp3", []byte("ignored"))
	id := uuid.New()

	reports := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 4}})
	if len(reports) != 1 {
		t.Fatalf("reports=%d", len(reports))
	}
	r := reports[0]
	if r.Status != MigrationMigrated || r.Copied != 2 || r.Vanished != 0 {
		t.Fatalf("report=%+v", r)
	}
	for i, want := range []string{"one", "two"} {
		got, ok := store.get(audiopath.StablePath(id, i+1))
		if !ok || string(got) != want {
			t.Fatalf("stable slide%d=%q ok=%v", i+1, got, ok)
		}
	}
	if got, ok := store.get("audio/lesson4/slide1.mp3"); !ok || string(got) != "one" {
		t.Fatalf("legacy file touched: %q ok=%v", got, ok)
	}
	if n := store.count("write"); n != 2 {
		t.Fatalf("writes=%d", n)
	}
}

func TestEnsureStableAudioSkipsWhenStableExists(t *testing.T) {
	store := newMemStore()
	id := uuid.New()
	store.put(audiopath.StablePath(id, 1), []byte("stable"))
	store.put("audio/lesson2/slide1.mp3", []byte("legacy"))

	reports := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 2}})
	if reports[0].Status != MigrationAlreadyStable {
		t.Fatalf("status=%s", reports[0].Status)
	}
	if n := store.count("write"); n != 0 {
		t.Fatalf("writes=%d, want 0", n)
	}
	if n := store.count("read"); n != 0 {
		t.Fatalf("reads=%d, want 0", n)
	}
}

func TestEnsureStableAudioIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson1/slide1.mp3", []byte("a"))
	id := uuid.New()
	svc := newTestMigration(store)
	lessons := []types.LessonRef{{ID: id, Position: 1}}

	if r := svc.EnsureStableAudio(context.Background(), lessons); r[0].Status != MigrationMigrated {
		t.Fatalf("first run: %+v", r[0])
	}
	before := store.count("write")
	if r := svc.EnsureStableAudio(context.Background(), lessons); r[0].Status != MigrationAlreadyStable {
		t.Fatalf("second run: %+v", r[0])
	}
	if store.count("write") != before {
		t.Fatalf("second run wrote again")
	}
}

func TestEnsureStableAudioWithoutLegacyAudio(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson3/readme.md", []byte("no slides here"))
	reports := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{
		{ID: uuid.New(), Position: 3},
		{ID: uuid.New(), Position: 9},
	})
	for _, r := range reports {
		if r.Status != MigrationNoLegacyAudio {
			t.Fatalf("report=%+v", r)
		}
	}
	if store.count("write") != 0 {
		t.Fatalf("unexpected writes")
	}
}

func TestEnsureStableAudioVanishedFileIsBenign(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson5/slide1.mp3", []byte("gone"))
	store.put("audio/lesson5/slide2.mp3", []byte("kept"))
	store.setFail(func(op, p string) error {
		if op == "read" && p == "audio/lesson5/slide1.mp3" {
			return fmt.Errorf("read: %w", contentstore.ErrNotFound)
		}
		return nil
	})
	id := uuid.New()
	r := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 5}})[0]
	if r.Status != MigrationMigrated || r.Copied != 1 || r.Vanished != 1 {
		t.Fatalf("report=%+v", r)
	}
	if _, ok := store.get(audiopath.StablePath(id, 2)); !ok {
		t.Fatalf("slide2 not copied")
	}
	if n := store.count("read"); n != 2 {
		t.Fatalf("vanished read was retried: reads=%d", n)
	}
}

func TestEnsureStableAudioRetriesTransientWrites(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson1/slide1.mp3", []byte("a"))
	failures := 2
	store.setFail(func(op, p string) error {
		if op == "write" && failures > 0 {
			failures--
			return transient(op, p)
		}
		return nil
	})
	r := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{{ID: uuid.New(), Position: 1}})[0]
	if r.Status != MigrationMigrated || r.Copied != 1 {
		t.Fatalf("report=%+v", r)
	}
	if n := store.count("write"); n != 3 {
		t.Fatalf("write attempts=%d", n)
	}
}

func TestEnsureStableAudioAbandonsLessonAfterRetries(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson1/slide1.mp3", []byte("a"))
	store.put("audio/lesson2/slide1.mp3", []byte("b"))
	first := uuid.New()
	second := uuid.New()
	store.setFail(func(op, p string) error {
		if op == "write" && p == audiopath.StablePath(first, 1) {
			return transient(op, p)
		}
		return nil
	})
	reports := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{
		{ID: first, Position: 1},
		{ID: second, Position: 2},
	})
	if reports[0].Status != MigrationFailed || reports[0].Error == "" {
		t.Fatalf("first=%+v", reports[0])
	}
	if reports[1].Status != MigrationMigrated {
		t.Fatalf("second lesson not processed after failure: %+v", reports[1])
	}
}

func TestEnsureStableAudioOrdersSlidesNumerically(t *testing.T) {
	store := newMemStore()
	for _, i := range []int{10, 2, 1} {
		store.put(fmt.Sprintf("audio/lesson7/slide%d.mp3", i), []byte{byte(i)})
	}
	id := uuid.New()
	newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 7}})
	got := store.writtenPaths()
	want := []string{audiopath.StablePath(id, 1), audiopath.StablePath(id, 2), audiopath.StablePath(id, 10)}
	if len(got) != len(want) {
		t.Fatalf("writes=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write order=%v want %v", got, want)
		}
	}
}

func TestEnsureStableAudioStopsOnCancelledContext(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson1/slide1.mp3", []byte("a"))
	store.setFail(func(op, p string) error { return transient(op, p) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewAudioMigrationService(logger.Nop(), store, AudioMigrationConfig{
		Retry: contentstore.RetryPolicy{MaxAttempts: 5, Step: time.Hour},
	})
	r := svc.EnsureStableAudio(ctx, []types.LessonRef{{ID: uuid.New(), Position: 1}})[0]
	if r.Status != MigrationFailed {
		t.Fatalf("report=%+v", r)
	}
	if n := store.count("list"); n != 2 {
		t.Fatalf("list attempts=%d, want one per directory after cancellation", n)
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatalf("ctx not cancelled")
	}
}

func TestEnsureStableAudioCopiesWhenStableListingFails(t *testing.T) {
	store := newMemStore()
	store.put("audio/lesson4/slide1.mp3", []byte("one"))
	id := uuid.New()
	stableDir := audiopath.StableDir(id)
	store.setFail(func(op, p string) error {
		if op == "list" && p == stableDir {
			return transient(op, p)
		}
		return nil
	})

	r := newTestMigration(store).EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 4}})[0]
	if r.Status != MigrationMigrated || r.Copied != 1 || r.Error != "" {
		t.Fatalf("report=%+v", r)
	}
	if got, ok := store.get(audiopath.StablePath(id, 1)); !ok || string(got) != "one" {
		t.Fatalf("stable slide1=%q ok=%v", got, ok)
	}
}

// recordPauses replaces the pause of svc with one that notes each call on
// the store's operation trail.
func recordPauses(t *testing.T, svc AudioMigrationService, store *memStore) *[]time.Duration {
	t.Helper()
	impl, ok := svc.(*audioMigrationService)
	if !ok {
		t.Fatalf("unexpected service type %T", svc)
	}
	var pauses []time.Duration
	impl.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		store.note("pause")
		return ctx.Err()
	}
	return &pauses
}

func TestEnsureStableAudioPausesBetweenWriteAndNextRead(t *testing.T) {
	store := newMemStore()
	for i := 1; i <= 3; i++ {
		store.put(fmt.Sprintf("audio/lesson4/slide%d.mp3", i), []byte{byte(i)})
	}
	id := uuid.New()
	cfg := testMigrationConfig()
	cfg.PauseBetweenFiles = 40 * time.Millisecond
	svc := NewAudioMigrationService(logger.Nop(), store, cfg)
	pauses := recordPauses(t, svc, store)

	r := svc.EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 4}})[0]
	if r.Status != MigrationMigrated || r.Copied != 3 {
		t.Fatalf("report=%+v", r)
	}

	want := []string{
		"list " + audiopath.StableDir(id),
		"list audio/lesson4",
		"read audio/lesson4/slide1.mp3",
		"write " + audiopath.StablePath(id, 1),
		"pause",
		"read audio/lesson4/slide2.mp3",
		"write " + audiopath.StablePath(id, 2),
		"pause",
		"read audio/lesson4/slide3.mp3",
		"write " + audiopath.StablePath(id, 3),
	}
	got := store.ops()
	if len(got) != len(want) {
		t.Fatalf("ops=%v\nwant %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops[%d]=%q want %q (ops=%v)", i, got[i], want[i], got)
		}
	}
	if len(*pauses) != 2 {
		t.Fatalf("pauses=%v", *pauses)
	}
	for _, d := range *pauses {
		if d != cfg.PauseBetweenFiles {
			t.Fatalf("pause=%v want %v", d, cfg.PauseBetweenFiles)
		}
	}
}

func TestEnsureStableAudioSkipsPauseAfterVanishedFile(t *testing.T) {
	store := newMemStore()
	for i := 1; i <= 3; i++ {
		store.put(fmt.Sprintf("audio/lesson2/slide%d.mp3", i), []byte{byte(i)})
	}
	store.setFail(func(op, p string) error {
		if op == "read" && p == "audio/lesson2/slide2.mp3" {
			return fmt.Errorf("read: %w", contentstore.ErrNotFound)
		}
		return nil
	})
	id := uuid.New()
	cfg := testMigrationConfig()
	cfg.PauseBetweenFiles = time.Millisecond
	svc := NewAudioMigrationService(logger.Nop(), store, cfg)
	pauses := recordPauses(t, svc, store)

	r := svc.EnsureStableAudio(context.Background(), []types.LessonRef{{ID: id, Position: 2}})[0]
	if r.Status != MigrationMigrated || r.Copied != 2 || r.Vanished != 1 {
		t.Fatalf("report=%+v", r)
	}
	if len(*pauses) != 1 {
		t.Fatalf("pauses=%d ops=%v", len(*pauses), store.ops())
	}
	got := store.ops()
	tail := got[len(got)-3:]
	if tail[0] != "read audio/lesson2/slide2.mp3" || tail[1] != "read audio/lesson2/slide3.mp3" {
		t.Fatalf("expected no pause after vanished read: ops=%v", got)
	}
}
