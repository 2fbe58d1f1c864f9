package docs

import (
	"strings"
	"testing"
)

func TestAll_ReturnsTopics(t *testing.T) {
	topics := All()
	if len(topics) == 0 {
		t.Fatal("All() returned no topics")
	}
	if topics[0].Name != "quickstart" {
		t.Errorf("first topic = %q, want %q", topics[0].Name, "quickstart")
	}
}

func TestAll_NoDuplicateNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, topic := range All() {
		if seen[topic.Name] {
			t.Errorf("duplicate topic name: %q", topic.Name)
		}
		seen[topic.Name] = true
	}
}

func TestAll_AllFieldsPopulated(t *testing.T) {
	for _, topic := range All() {
		if topic.Name == "" {
			t.Error("topic has empty Name")
		}
		if topic.Title == "" {
			t.Errorf("topic %q has empty Title", topic.Name)
		}
		if topic.Summary == "" {
			t.Errorf("topic %q has empty Summary", topic.Name)
		}
		if topic.Content == "" {
			t.Errorf("topic %q has empty Content", topic.Name)
		}
	}
}

func TestGet_Found(t *testing.T) {
	topic, err := Get("quickstart")
	if err != nil {
		t.Fatalf("Get(quickstart) error: %v", err)
	}
	if topic.Name != "quickstart" {
		t.Errorf("Name = %q, want %q", topic.Name, "quickstart")
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := Get("nonexistent")
	if err == nil {
		t.Fatal("Get(nonexistent) should return error")
	}
}

func TestGet_NotFoundHint(t *testing.T) {
	_, err := Get("phases")
	if err == nil || !strings.Contains(err.Error(), "docgen docs") {
		t.Fatalf("err = %v", err)
	}
}

func TestTopics_CoverCommands(t *testing.T) {
	quick, err := Get("quickstart")
	if err != nil {
		t.Fatal(err)
	}
	for _, cmd := range []string{"docgen init", "docgen run", "docgen batch", "docgen index", "docgen status", "docgen doctor", "docgen docs"} {
		if !strings.Contains(quick.Content, cmd) {
			t.Errorf("quickstart does not mention %q", cmd)
		}
	}
}

func TestGet_IgnoresCase(t *testing.T) {
	topic, err := Get("Scoring")
	if err != nil || topic.Name != "scoring" {
		t.Fatalf("Get(Scoring) = %q, %v", topic.Name, err)
	}
}

func TestGet_NotFoundListsNames(t *testing.T) {
	_, err := Get("phases")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range Names() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not list %q: %v", name, err)
		}
	}
}
