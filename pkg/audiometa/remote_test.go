package audiometa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteLookup_Lookup(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantErr     error
		wantMessage string
		wantChapter string
	}{
		{
			name:        "Successful response",
			status:      http.StatusOK,
			contentType: "application/json; charset=utf-8",
			body:        `{"success":true,"audio":{"chapterName":"Chapter","companyName":"ACME","audioUrl":"/a.m4a"}}`,
			wantChapter: "Chapter",
		},
		{
			name:        "Negative response",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"success":false,"message":"Audio not found"}`,
			wantErr:     ErrNotFound,
			wantMessage: "Audio not found",
		},
		{
			name:        "Server error",
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{}`,
			wantErr:     ErrUnavailable,
		},
		{
			name:        "HTML response",
			status:      http.StatusOK,
			contentType: "text/html",
			body:        `<html></html>`,
			wantErr:     ErrUnavailable,
		},
		{
			name:        "Malformed JSON",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"success":`,
			wantErr:     ErrUnavailable,
		},
		{
			name:        "Missing success flag",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"audio":{"chapterName":"Chapter","companyName":"ACME","audioUrl":"/a.m4a"}}`,
			wantErr:     ErrUnavailable,
		},
		{
			name:        "Success without audio",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"success":true}`,
			wantErr:     ErrUnavailable,
		},
		{
			name:        "Audio missing required field",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"success":true,"audio":{"chapterName":"Chapter","companyName":"ACME"}}`,
			wantErr:     ErrUnavailable,
		},
		{
			name:        "Audio with bad website",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"success":true,"audio":{"chapterName":"C","companyName":"A","audioUrl":"/a","companyWebsite":"nope"}}`,
			wantErr:     ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				var req Request
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if req.UniqueID != "chap1" {
					t.Errorf("uniqueId = %q, want chap1", req.UniqueID)
				}
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			lookup := NewRemoteLookup(server.URL+DefaultEndpointPath, 0)
			record, err := lookup.Lookup(context.Background(), "chap1")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Lookup() err = %v, want %v", err, tt.wantErr)
				}
				if tt.wantMessage != "" {
					if got := Failure(err).Message; got != tt.wantMessage {
						t.Errorf("Failure().Message = %q, want %q", got, tt.wantMessage)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("Lookup() unexpected error: %v", err)
			}
			if record.ChapterName != tt.wantChapter {
				t.Errorf("ChapterName = %q, want %q", record.ChapterName, tt.wantChapter)
			}
			if record.ID != "chap1" {
				t.Errorf("ID = %q, want the requested identifier", record.ID)
			}
		})
	}
}

func TestRemoteLookup_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewRemoteLookup(url, 0).Lookup(context.Background(), "chap1")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Lookup() err = %v, want ErrUnavailable", err)
	}
}

func TestRemoteLookup_WithResolverFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	policy := DefaultPolicy()
	policy.Strict = false
	resolver := NewResolver(NewRemoteLookup(server.URL, 0), policy, nil)

	result := resolver.Resolve(context.Background(), "chap1")
	if !result.Success || !result.Fallback {
		t.Fatalf("Resolve() = %+v, want fallback success", result)
	}
	if result.Audio.CompanyName != "AudioFlow Demo" {
		t.Errorf("CompanyName = %q, want AudioFlow Demo", result.Audio.CompanyName)
	}
}
