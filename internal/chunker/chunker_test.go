package chunker

import (
	"strings"
	"testing"
)

func TestShortText(t *testing.T) {
	posts := Chunk("Hello world", DefaultOptions())
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0] != "Hello world" {
		t.Errorf("unexpected text: %q", posts[0])
	}
}

func TestEmptyText(t *testing.T) {
	if posts := Chunk("", DefaultOptions()); posts != nil {
		t.Errorf("expected nil, got %v", posts)
	}
}

func TestSplitOnLines(t *testing.T) {
	text := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 30)
	posts := Chunk(text, Options{MaxSize: 40})
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d: %q", len(posts), posts)
	}
	if posts[0] != strings.Repeat("a", 30) || posts[1] != strings.Repeat("b", 30) {
		t.Errorf("unexpected posts: %q", posts)
	}
}

func TestSplitOnSentences(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here."
	posts := Chunk(text, Options{MaxSize: 25})
	for _, p := range posts {
		if len(p) > 25 {
			t.Errorf("post exceeds limit: %q", p)
		}
	}
	if posts[0] != "First sentence here." {
		t.Errorf("expected sentence boundary, got %q", posts[0])
	}
}

func TestHardSplitLongWord(t *testing.T) {
	text := strings.Repeat("x", 25)
	posts := Chunk(text, Options{MaxSize: 10})
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if strings.Join(posts, "") != text {
		t.Error("content lost in hard split")
	}
}

func TestDefaultsOnZeroOptions(t *testing.T) {
	text := strings.Repeat("word ", 100)
	posts := Chunk(text, Options{})
	for _, p := range posts {
		if len(p) > DefaultMaxSize {
			t.Errorf("post exceeds default limit: %d", len(p))
		}
	}
}
