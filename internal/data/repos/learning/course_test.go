package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursefront-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/platform/dbctx"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	c := &types.Course{Title: "Go basics", Slug: "go-basics-" + uuid.NewString()[:8]}
	if _, err := repo.Create(dbc, []*types.Course{c}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Fatalf("BeforeCreate did not assign id")
	}
	if got, err := repo.GetByID(dbc, c.ID); err != nil || got.Title != "Go basics" {
		t.Fatalf("GetByID: %+v err=%v", got, err)
	}
	if got, err := repo.LockByID(dbc, c.ID); err != nil || got.ID != c.ID {
		t.Fatalf("LockByID: %+v err=%v", got, err)
	}
	if _, err := repo.LockByID(dbctx.Context{Ctx: ctx}, c.ID); err == nil {
		t.Fatalf("LockByID without tx should fail")
	}
}
