package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/dedup"
	"github.com/yutsang/ai-news/internal/record"
)

func TestKeywordOracle_JudgeSimilar(t *testing.T) {
	t.Parallel()

	o := KeywordOracle{}
	verdict, err := o.JudgeSimilar(context.Background(), "中環中心 18樓 A室 成交", "中環中心 18樓 A室 成交")
	if err != nil || verdict != dedup.VerdictDuplicate {
		t.Fatalf("identical text must be duplicate: %v %v", verdict, err)
	}
	verdict, err = o.JudgeSimilar(context.Background(), "中環中心成交", "觀塘工廈租出")
	if err != nil || verdict != dedup.VerdictNotDuplicate {
		t.Fatalf("unrelated text must not be duplicate: %v %v", verdict, err)
	}
}

func TestKeywordOracle_ScoreRelevance(t *testing.T) {
	t.Parallel()

	o := KeywordOracle{}
	strong, err := o.ScoreRelevance(context.Background(), record.NewsRecord{
		Topic:   "中環寫字樓錄大手成交",
		Summary: "香港地產市場回暖，租金回報率上升。",
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	weak, err := o.ScoreRelevance(context.Background(), record.NewsRecord{
		Topic: "足球賽事精華",
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if strong <= weak {
		t.Fatalf("property news must outscore unrelated news: %f vs %f", strong, weak)
	}
	if strong > 10 {
		t.Fatalf("score above scale: %f", strong)
	}
	if weak != 0 {
		t.Fatalf("unrelated news must score 0, got %f", weak)
	}
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model == "" || len(req.Messages) != 2 {
			t.Errorf("unexpected request shape: %+v", req)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_JudgeSimilar(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, "```json\n{\"duplicate\": true}\n```")
	defer srv.Close()

	client := NewClient(ClientOptions{Endpoint: srv.URL, APIKey: "test"}, zerolog.Nop())
	verdict, err := client.JudgeSimilar(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if verdict != dedup.VerdictDuplicate {
		t.Fatalf("unexpected verdict: %v", verdict)
	}
}

func TestClient_ScoreRelevance(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, `{"score": 8.5}`)
	defer srv.Close()

	client := NewClient(ClientOptions{Endpoint: srv.URL}, zerolog.Nop())
	score, err := client.ScoreRelevance(context.Background(), record.NewsRecord{Topic: "t"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 8.5 {
		t.Fatalf("unexpected score: %f", score)
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, "I think these are probably the same deal.")
	defer srv.Close()

	client := NewClient(ClientOptions{Endpoint: srv.URL}, zerolog.Nop())
	verdict, err := client.JudgeSimilar(context.Background(), "a", "b")
	if err == nil {
		t.Fatalf("expected error for non-JSON response")
	}
	if verdict != dedup.VerdictUnknown {
		t.Fatalf("malformed response must yield unknown verdict, got %v", verdict)
	}
}

func TestClient_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{Endpoint: srv.URL}, zerolog.Nop())
	if _, err := client.JudgeSimilar(context.Background(), "a", "b"); err == nil {
		t.Fatalf("expected error for upstream failure")
	}
}

func TestCleanJSONResponse(t *testing.T) {
	t.Parallel()

	if got := cleanJSONResponse("```json\n{\"score\": 1}\n```"); got != `{"score": 1}` {
		t.Fatalf("unexpected cleaned response: %q", got)
	}
	if got := cleanJSONResponse(`{"score": 1}`); got != `{"score": 1}` {
		t.Fatalf("plain JSON must pass through: %q", got)
	}
}
