package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/parleylab/parley/internal/flow"
	"github.com/parleylab/parley/internal/model/convo"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "parley.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate err: %v", err)
	}
	return db
}

func sampleConversation(id, user string, ts int64) *convo.Conversation {
	return &convo.Conversation{
		ID:       id,
		UserName: user,
		Agent:    "Chris",
		Info: convo.Info{
			Kind:  convo.KindLevel,
			Level: 0,
			Scenario: convo.Scenario{
				UserPerspective:  "catching up with a coworker",
				AgentPerspective: "a literal-minded coworker",
			},
		},
		Elements:  []convo.Element{},
		CreatedTs: ts,
	}
}

func TestConversationRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c := sampleConversation("c-1", "bob", time.Now().Unix())
	if err := db.CreateConversation(ctx, c); err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	c.Elements = append(c.Elements, convo.NewMessageElement("Chris", "hi there"))
	ref := flow.UserRef("greet")
	c.State = &convo.State{Kind: convo.StateActive, Ref: &ref}
	if err := db.UpdateConversation(ctx, c); err != nil {
		t.Fatalf("UpdateConversation err: %v", err)
	}

	got, err := db.GetConversation(ctx, "c-1", "bob")
	if err != nil {
		t.Fatalf("GetConversation err: %v", err)
	}
	if len(got.Elements) != 1 || got.Elements[0].Message.Body != "hi there" {
		t.Fatalf("unexpected elements: %+v", got.Elements)
	}
	if got.State == nil || got.State.Kind != convo.StateActive || got.State.Ref.ID != "greet" {
		t.Fatalf("unexpected state: %+v", got.State)
	}
	if got.Info.Scenario.UserPerspective == "" {
		t.Fatal("info scenario not restored")
	}
}

func TestGetConversationWrongUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateConversation(ctx, sampleConversation("c-1", "bob", 1)); err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}
	if _, err := db.GetConversation(ctx, "c-1", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListConversationsOldestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i, id := range []string{"c-new", "c-old"} {
		c := sampleConversation(id, "bob", int64(10-i))
		if err := db.CreateConversation(ctx, c); err != nil {
			t.Fatalf("CreateConversation err: %v", err)
		}
	}

	summaries, err := db.ListConversations(ctx, "bob", convo.KindLevel, 0)
	if err != nil {
		t.Fatalf("ListConversations err: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != "c-old" || summaries[1].ID != "c-new" {
		t.Fatalf("expected oldest first, got %s then %s", summaries[0].ID, summaries[1].ID)
	}
}

func TestUserProgress(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := db.EnsureUser(ctx, "bob")
	if err != nil {
		t.Fatalf("EnsureUser err: %v", err)
	}
	if user.MaxUnlockedStage != flow.StageLevel0 {
		t.Fatalf("expected default stage, got %s", user.MaxUnlockedStage)
	}

	// EnsureUser is idempotent.
	if _, err := db.EnsureUser(ctx, "bob"); err != nil {
		t.Fatalf("EnsureUser (second) err: %v", err)
	}

	for i := 1; i <= 3; i++ {
		n, err := db.IncrementMessageCount(ctx, "bob", flow.StageLevel0)
		if err != nil {
			t.Fatalf("IncrementMessageCount err: %v", err)
		}
		if n != i {
			t.Fatalf("expected count %d, got %d", i, n)
		}
	}

	if err := db.UnlockStage(ctx, "bob", flow.StageLevel1); err != nil {
		t.Fatalf("UnlockStage err: %v", err)
	}
	user, err = db.EnsureUser(ctx, "bob")
	if err != nil {
		t.Fatalf("EnsureUser err: %v", err)
	}
	if user.MaxUnlockedStage != flow.StageLevel1 {
		t.Fatalf("expected level-1 unlocked, got %s", user.MaxUnlockedStage)
	}
	if user.MessageCounts[flow.StageLevel0] != 3 {
		t.Fatalf("expected 3 messages counted, got %d", user.MessageCounts[flow.StageLevel0])
	}
}
