package vision

import (
	"context"
	"strings"
	"testing"
)

func TestPrompt(t *testing.T) {
	tests := []struct {
		name string
		lang string
		want string
	}{
		{"explicit language", "fr", `"fr"`},
		{"empty falls back to default", "", `"es"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := Prompt(tt.lang)
			if !strings.Contains(prompt, tt.want) {
				t.Errorf("Prompt(%q) does not name language %s", tt.lang, tt.want)
			}
			if !strings.Contains(prompt, "1: [tag1, tag2, tag3, tag4, tag5]") {
				t.Error("Prompt() does not describe the numbered bracket format")
			}
		})
	}
}

func TestDefaultLanguageIsSupported(t *testing.T) {
	if Languages[0] != DefaultLanguage {
		t.Errorf("Languages[0] = %q, want default %q first", Languages[0], DefaultLanguage)
	}
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), GeminiConfig{}); err == nil {
		t.Fatal("NewGemini() with empty API key: expected error, got nil")
	}
}

func TestNewGeminiDefaultModel(t *testing.T) {
	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	if g.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", g.Model(), DefaultModel)
	}
}
