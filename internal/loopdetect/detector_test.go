package loopdetect

import (
	"math"
	"strings"
	"testing"

	"github.com/use-sonar/open-sonar/internal/events"
)

func TestFeedBelowMinimumLengthIsIgnored(t *testing.T) {
	d := New(nil, events.PrivacyFilter{})
	if alert := d.Feed("a1", "too short", 0.01); alert != nil {
		t.Fatalf("expected nil alert for short chunk, got %+v", alert)
	}
	if d.IsLooping("a1") {
		t.Fatal("expected IsLooping false")
	}
}

func TestFeedDetectsLoopOnThirdRepeat(t *testing.T) {
	var alerts []LoopAlertPayload
	sink := events.SinkFunc(func(topic events.Topic, payload any) {
		if topic == events.TopicLoopAlert {
			alerts = append(alerts, payload.(LoopAlertPayload))
		}
	})
	d := New(sink, events.PrivacyFilter{})

	chunk := strings.Repeat("x", 60)

	if alert := d.Feed("a1", chunk, 0.01); alert != nil {
		t.Fatalf("1st feed: expected no alert, got %+v", alert)
	}
	if alert := d.Feed("a1", chunk, 0.01); alert != nil {
		t.Fatalf("2nd feed: expected no alert, got %+v", alert)
	}

	alert := d.Feed("a1", chunk, 0.01)
	if alert == nil {
		t.Fatal("3rd feed: expected a loop alert")
	}
	if alert.RepeatCount != 3 {
		t.Fatalf("repeat count = %d, want 3", alert.RepeatCount)
	}
	if got, want := alert.EstimatedWasteUSD, 0.01*30*3; math.Abs(got-want) > 1e-9 {
		t.Fatalf("estimated waste = %v, want %v", got, want)
	}
	if !d.IsLooping("a1") {
		t.Fatal("expected IsLooping true after alert")
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert emitted, got %d", len(alerts))
	}

	alert4 := d.Feed("a1", chunk, 0.01)
	if alert4 == nil {
		t.Fatal("4th feed: expected another alert")
	}
	if alert4.RepeatCount != 4 {
		t.Fatalf("4th feed repeat count = %d, want 4", alert4.RepeatCount)
	}
}

func TestResetClearsWindowAndStickyFlag(t *testing.T) {
	d := New(nil, events.PrivacyFilter{})
	chunk := strings.Repeat("y", 60)
	d.Feed("a1", chunk, 0.01)
	d.Feed("a1", chunk, 0.01)
	d.Feed("a1", chunk, 0.01)
	if !d.IsLooping("a1") {
		t.Fatal("expected looping before reset")
	}
	d.Reset("a1")
	if d.IsLooping("a1") {
		t.Fatal("expected not looping after reset")
	}
}

func TestNormalizeDropsNonSpaceWhitespace(t *testing.T) {
	got := normalize("Hello\tWorld\n!!  ")
	want := "helloworld!!  "
	if got != want {
		t.Fatalf("normalize = %q, want %q", got, want)
	}
}

func TestSimilarityIdenticalAndEmpty(t *testing.T) {
	if similarity("abc", "abc") != 1.0 {
		t.Fatal("identical strings should have similarity 1.0")
	}
	if similarity("", "") != 1.0 {
		t.Fatal("two empty strings are equal strings, similarity 1.0")
	}
	if similarity("abc", "") != 0.0 {
		t.Fatal("one empty string should have similarity 0.0")
	}
}

func TestSimilarityPositionWiseNotLevenshtein(t *testing.T) {
	// "xabc" vs "abcx": shifting by one character yields zero position-wise
	// matches even though the strings share all the same characters, which
	// is the defining difference from edit-distance similarity.
	got := similarity("xabc", "abcx")
	if got != 0.0 {
		t.Fatalf("similarity = %v, want 0.0 (position-wise, not Levenshtein)", got)
	}
}

func TestTruncateAddsEllipsisOnlyWhenNeeded(t *testing.T) {
	short := truncate("hello", 100)
	if short != "hello" {
		t.Fatalf("truncate(short) = %q, want unchanged", short)
	}
	long := truncate(strings.Repeat("z", 150), 100)
	if long != strings.Repeat("z", 100)+"..." {
		t.Fatalf("truncate(long) did not end with ellipsis: %q", long)
	}
}
