package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mealmind/go-mealmind/pkg/onboarding"
	"github.com/mealmind/go-mealmind/pkg/stt"
	"github.com/mealmind/go-mealmind/pkg/web"
)

func testSections() []onboarding.Section {
	return []onboarding.Section{
		{
			ID:    "diet",
			Title: "How you eat",
			Questions: []onboarding.Question{
				{
					ID:       "favorite_cuisine",
					Prompt:   "What cuisine do you enjoy most?",
					Kind:     onboarding.KindSingleSelect,
					Required: true,
					Options: []onboarding.Option{
						{Value: "italian", Label: "Italian"},
						{Value: "mexican", Label: "Mexican"},
					},
					Validate: onboarding.NonEmpty(),
				},
				{
					ID:   "snacks",
					Kind: onboarding.KindMultiSelect,
					Options: []onboarding.Option{
						{Value: "fruit", Label: "Fruit"},
						{Value: "nuts", Label: "Nuts"},
					},
				},
			},
		},
	}
}

func newTestServer(t *testing.T, opts ...web.ServerOption) *web.Server {
	t.Helper()
	store, err := onboarding.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	orch, err := onboarding.NewOrchestrator(testSections(), store)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return web.NewServer("0", orch, opts...)
}

func doJSON(t *testing.T, s *web.Server, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var decoded map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var sectionID string
	json.Unmarshal(body["section_id"], &sectionID)
	if sectionID != "diet" {
		t.Errorf("section_id = %q", sectionID)
	}
	var question struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}
	json.Unmarshal(body["question"], &question)
	if question.ID != "favorite_cuisine" || question.Kind != "single_select" {
		t.Errorf("question = %+v", question)
	}
}

func TestAnswerAndAdvance(t *testing.T) {
	s := newTestServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/answer", map[string]any{
		"question_id": "favorite_cuisine",
		"answer":      map[string]any{"kind": "choice", "choice": "italian"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/api/toggle", map[string]any{
		"question_id": "snacks",
		"value":       "fruit",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, s, http.MethodPost, "/api/next", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next status = %d", resp.StatusCode)
	}
	var complete bool
	json.Unmarshal(body["complete"], &complete)
	if !complete {
		t.Error("flow should be complete after the single section")
	}
}

func TestAnswerValidationFailure(t *testing.T) {
	s := newTestServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/answer", map[string]any{
		"question_id": "favorite_cuisine",
		"answer":      map[string]any{"kind": "choice", "choice": ""},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestNextBlockedWhileIncomplete(t *testing.T) {
	s := newTestServer(t)

	// Skip to the last question without answering the required one.
	doJSON(t, s, http.MethodPost, "/api/key", map[string]any{"key": "enter"})
	resp, _ := doJSON(t, s, http.MethodPost, "/api/next", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestVoiceUpload(t *testing.T) {
	s := newTestServer(t, web.WithTranscriber(stt.WithTranscript("I like Italian food")))

	req := httptest.NewRequest(http.MethodPost, "/api/voice", bytes.NewReader([]byte("fake-audio")))
	req.Header.Set("Content-Type", "audio/webm")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("voice request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Transcript string   `json:"transcript"`
		Committed  bool     `json:"committed"`
		Matched    []string `json:"matched"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.Committed || len(body.Matched) != 1 || body.Matched[0] != "italian" {
		t.Errorf("outcome = %+v", body)
	}
}

func TestVoiceUploadUnsupportedType(t *testing.T) {
	s := newTestServer(t, web.WithTranscriber(stt.NewMock()))

	req := httptest.NewRequest(http.MethodPost, "/api/voice", bytes.NewReader([]byte("x")))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("voice request: %v", err)
	}
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
}

func TestVoiceWithoutTranscriber(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/voice", bytes.NewReader([]byte("x")))
	req.Header.Set("Content-Type", "audio/webm")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("voice request: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestResetEndpoint(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/answer", map[string]any{
		"question_id": "favorite_cuisine",
		"answer":      map[string]any{"kind": "choice", "choice": "mexican"},
	})
	resp, body := doJSON(t, s, http.MethodPost, "/api/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
	var idx int
	json.Unmarshal(body["question_index"], &idx)
	if idx != 0 {
		t.Errorf("question_index = %d after reset", idx)
	}
}
