// Command lessonctl runs lesson ordering and audio migration operations
// against the configured database and content store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursefront-backend/internal/app"
	"github.com/yungbote/coursefront-backend/internal/learning/audiopath"
	"github.com/yungbote/coursefront-backend/internal/platform/shutdown"
	"github.com/yungbote/coursefront-backend/internal/realtime/bus"
)

const usage = `usage: lessonctl <command> [flags]

commands:
  set-position   -lesson <id> -position <n>   move a lesson (audio is migrated first)
  migrate-audio  -course <id>                 copy legacy audio for every lesson in a course
  remove         -lesson <id>                 delete a lesson and close the gap
  watch-events                                print lesson events from the redis bus
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	lessonID := fs.String("lesson", "", "lesson id")
	courseID := fs.String("course", "", "course id")
	position := fs.Int("position", 0, "requested 1-based position")
	_ = fs.Parse(args)

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a, cmd, *lessonID, *courseID, *position); err != nil {
		fmt.Printf("%s: %v\n", cmd, err)
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd, lessonArg, courseArg string, position int) error {
	switch cmd {
	case "set-position":
		id, err := parseID("lesson", lessonArg)
		if err != nil {
			return err
		}
		lesson, err := a.Services.Coordinator.HandleReorderRequest(ctx, id, position)
		if err != nil {
			return err
		}
		return printJSON(audiopath.NormalizeLesson(lesson))
	case "migrate-audio":
		id, err := parseID("course", courseArg)
		if err != nil {
			return err
		}
		reports, err := a.Services.Coordinator.MigrateCourseAudio(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(reports)
	case "remove":
		id, err := parseID("lesson", lessonArg)
		if err != nil {
			return err
		}
		if err := a.Services.Coordinator.RemoveLesson(ctx, id); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", id)
		return nil
	case "watch-events":
		if a.Bus == nil {
			return fmt.Errorf("REDIS_ADDR is not set")
		}
		if err := a.Bus.StartForwarder(ctx, func(m bus.Message) {
			_ = printJSON(m)
		}); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("-%s must be a valid id", name)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
