package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"audioflow/internal/catalog"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"server-port", "AUDIOFLOW_SERVER_PORT"},
		{"resolver-fallback-delay", "AUDIOFLOW_RESOLVER_FALLBACK_DELAY"},
		{"language", "AUDIOFLOW_LANGUAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if got := flagToEnvVar(tt.flag); got != tt.want {
				t.Errorf("flagToEnvVar(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := buildLogger(tt.level, "json")
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %s not enabled for %q", tt.want, tt.level)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %s unexpectedly enabled for %q", tt.want-1, tt.level)
			}
		})
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, section := range envSections {
		if !strings.Contains(content, "# "+section.title+"\n") {
			t.Errorf("missing section %q", section.title)
		}
		for _, name := range section.flags {
			if rootCmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("section %q lists unknown flag %q", section.title, name)
			}
			if !strings.Contains(content, flagToEnvVar(name)+"=") {
				t.Errorf("missing variable for flag %q", name)
			}
		}
	}

	if !strings.Contains(content, "AUDIOFLOW_SERVER_PORT=8080") {
		t.Error("server port default not written")
	}
	if !strings.Contains(content, "AUDIOFLOW_RESOLVER_MODE=static") {
		t.Error("resolver mode default not written")
	}
}

func TestLoadSeedRecords(t *testing.T) {
	t.Run("builtin", func(t *testing.T) {
		records, err := loadSeedRecords("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != len(catalog.DefaultRecords()) {
			t.Errorf("got %d records, want %d", len(records), len(catalog.DefaultRecords()))
		}
	})

	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{
			name: "valid",
			body: `[{"id":"c1","chapterName":"Chapter","companyName":"Co","audioUrl":"/c1.mp3"}]`,
			want: 1,
		},
		{
			name:    "missing audio url",
			body:    `[{"id":"c1","chapterName":"Chapter","companyName":"Co"}]`,
			wantErr: true,
		},
		{
			name:    "missing id",
			body:    `[{"chapterName":"Chapter","companyName":"Co","audioUrl":"/a.mp3"}]`,
			wantErr: true,
		},
		{
			name:    "bad website",
			body:    `[{"id":"c1","chapterName":"C","companyName":"Co","companyWebsite":"nope","audioUrl":"/a"}]`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := loadSeedRecords(write(strings.ReplaceAll(tt.name, " ", "_")+".json", tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}
