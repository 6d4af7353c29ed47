package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestArticleRecordLineage(t *testing.T) {
	testCases := []struct {
		source       string
		wantOriginal bool
		wantUpdated  bool
	}{
		{"BeyondChats", true, false},
		{"beyondchats", true, false},
		{"BeyondChats-Updated", false, true},
		{"UPDATED copy", false, true},
		{"Other", false, false},
		{"", false, false},
	}

	for _, tc := range testCases {
		a := ArticleRecord{Source: tc.source}
		if got := a.IsOriginal(); got != tc.wantOriginal {
			t.Errorf("IsOriginal(%q) = %v, want %v", tc.source, got, tc.wantOriginal)
		}
		if got := a.IsUpdated(); got != tc.wantUpdated {
			t.Errorf("IsUpdated(%q) = %v, want %v", tc.source, got, tc.wantUpdated)
		}
	}
}

func TestPublishedMillis(t *testing.T) {
	var a ArticleRecord
	if a.PublishedMillis() != 0 {
		t.Errorf("Expected undated record to sort as 0, got %d", a.PublishedMillis())
	}

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a.PublishedAt = &ts
	if a.PublishedMillis() != ts.UnixMilli() {
		t.Errorf("Expected %d, got %d", ts.UnixMilli(), a.PublishedMillis())
	}
}

func TestBodyFallsBackToExcerpt(t *testing.T) {
	a := ArticleRecord{Excerpt: "teaser"}
	if a.Body() != "teaser" {
		t.Errorf("Expected excerpt fallback, got %q", a.Body())
	}
	a.Content = "full"
	if a.Body() != "full" {
		t.Errorf("Expected content, got %q", a.Body())
	}
}

func TestArticleRecordDecodesStorePayload(t *testing.T) {
	payload := `{"id":7,"title":"T","slug":"t","url":"https://beyondchats.com/blogs/t/","author":null,
		"image_url":null,"excerpt":"e","content":null,"published_at":"2023-12-05T10:00:00.000000Z","source":"BeyondChats"}`

	var a ArticleRecord
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if a.ID != 7 || a.Author != "" || a.Content != "" {
		t.Errorf("Unexpected decode result: %+v", a)
	}
	if a.PublishedAt == nil || a.PublishedAt.Year() != 2023 {
		t.Errorf("Expected published_at to be parsed, got %v", a.PublishedAt)
	}
	if !a.IsOriginal() {
		t.Error("Expected record to be original")
	}
}
