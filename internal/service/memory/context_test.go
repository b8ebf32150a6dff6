package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/sandevgo/membot/internal/core"
)

func TestBuildBasicOrder(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	if _, err := repo.Insert(context.Background(), core.Entry{
		SourceID: "doc", Section: "Languages", Content: "python is dynamically typed",
	}); err != nil {
		t.Fatal(err)
	}

	builder := NewBuilder(repo, fakeCounter{})

	session := &core.Session{ID: "s1"}
	session.AddMessage(core.Message{Role: core.RoleUser, Content: "hi"})
	session.AddMessage(core.Message{Role: core.RoleAssistant, Content: "hello"})

	built, err := builder.Build(context.Background(), session, "tell me about python", core.ContextConfig{
		MaxTokens:        1000,
		SystemPrompt:     "You are helpful.",
		MemoryMaxResults: 3,
		MemoryMinScore:   -1000,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if built.Truncated {
		t.Error("unexpected truncation")
	}
	if len(built.Messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(built.Messages))
	}
	if built.Messages[0].Role != core.RoleSystem || built.Messages[0].Content != "You are helpful." {
		t.Errorf("message 0 = %+v, want system prompt", built.Messages[0])
	}
	if built.Messages[1].Role != core.RoleSystem || !strings.Contains(built.Messages[1].Content, "Relevant information:") {
		t.Errorf("message 1 = %+v, want memory block", built.Messages[1])
	}
	if !strings.Contains(built.Messages[1].Content, "[Languages]") {
		t.Errorf("memory block missing section label: %q", built.Messages[1].Content)
	}
	last := built.Messages[len(built.Messages)-1]
	if last.Role != core.RoleUser || last.Content != "tell me about python" {
		t.Errorf("last message = %+v, want query", last)
	}
	if len(built.MemoryResults) != 1 {
		t.Errorf("got %d memory results, want 1", len(built.MemoryResults))
	}
}

func TestBuildNoMemoryHits(t *testing.T) {
	t.Parallel()

	builder := NewBuilder(newFakeRepo(), fakeCounter{})

	built, err := builder.Build(context.Background(), nil, "anything", core.ContextConfig{
		MaxTokens:        1000,
		MemoryMaxResults: 3,
		MemoryMinScore:   -1000,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(built.Messages) != 1 {
		t.Fatalf("got %d messages, want just the query", len(built.Messages))
	}
	if len(built.MemoryResults) != 0 {
		t.Errorf("got %d memory results, want 0", len(built.MemoryResults))
	}
}

func TestBuildMinScoreFilters(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	if _, err := repo.Insert(context.Background(), core.Entry{
		SourceID: "doc", Section: "S", Content: "python facts",
	}); err != nil {
		t.Fatal(err)
	}

	builder := NewBuilder(repo, fakeCounter{})

	// fakeRepo scores every hit -1; a floor of 0 rejects them all.
	built, err := builder.Build(context.Background(), nil, "python", core.ContextConfig{
		MaxTokens:        1000,
		MemoryMaxResults: 3,
		MemoryMinScore:   0,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built.MemoryResults) != 0 {
		t.Errorf("got %d memory results, want 0", len(built.MemoryResults))
	}
	for _, msg := range built.Messages {
		if strings.Contains(msg.Content, "Relevant information:") {
			t.Error("memory block present despite score floor")
		}
	}
}

func TestBuildTruncatesOldMessages(t *testing.T) {
	t.Parallel()

	builder := NewBuilder(newFakeRepo(), fakeCounter{})

	session := &core.Session{ID: "s1"}
	content := strings.Repeat("x", 100)
	for i := 0; i < 9; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		session.AddMessage(core.Message{Role: role, Content: content})
	}

	built, err := builder.Build(context.Background(), session, content, core.ContextConfig{
		MaxTokens: 250,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !built.Truncated {
		t.Fatal("expected truncation")
	}
	if len(built.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(built.Messages))
	}
	if built.TokenCount != 203 {
		t.Errorf("token count = %d, want 203", built.TokenCount)
	}
	if built.TokenCount > 250 {
		t.Errorf("token count %d exceeds budget", built.TokenCount)
	}
	last := built.Messages[len(built.Messages)-1]
	if last.Role != core.RoleUser || last.Content != content {
		t.Errorf("last message = role %q, want query", last.Role)
	}
}

func TestBuildTruncationKeepsSystemPrompt(t *testing.T) {
	t.Parallel()

	builder := NewBuilder(newFakeRepo(), fakeCounter{})

	session := &core.Session{ID: "s1"}
	for i := 0; i < 20; i++ {
		session.AddMessage(core.Message{Role: core.RoleUser, Content: strings.Repeat("y", 50)})
	}

	prompt := strings.Repeat("p", 40)
	built, err := builder.Build(context.Background(), session, "short query", core.ContextConfig{
		MaxTokens:    200,
		SystemPrompt: prompt,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !built.Truncated {
		t.Fatal("expected truncation")
	}
	if built.Messages[0].Role != core.RoleSystem || built.Messages[0].Content != prompt {
		t.Error("system prompt dropped during truncation")
	}
	if built.TokenCount > 200 {
		t.Errorf("token count %d exceeds budget", built.TokenCount)
	}
}

func TestBuildSearchError(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.searchErr = context.DeadlineExceeded

	builder := NewBuilder(repo, fakeCounter{})
	_, err := builder.Build(context.Background(), nil, "q", core.ContextConfig{
		MaxTokens:        100,
		MemoryMaxResults: 3,
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatMemoryBlock(t *testing.T) {
	t.Parallel()

	block := formatMemoryBlock([]core.SearchResult{
		{Entry: core.Entry{Section: "A"}, Snippet: "first fact"},
		{Entry: core.Entry{Section: "B"}, Snippet: "second fact"},
	})

	want := "Relevant information:\n1. [A]\n   first fact\n2. [B]\n   second fact"
	if block != want {
		t.Errorf("block = %q, want %q", block, want)
	}

	if got := formatMemoryBlock(nil); got != "" {
		t.Errorf("empty results produced %q", got)
	}
}
