//go:build integration
// +build integration

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherbot/internal/lifecycle"
	"github.com/kjstillabower/weatherbot/internal/observability"
	testhelpers "github.com/kjstillabower/weatherbot/internal/testhelpers"
)

var testLogger *zap.Logger

func init() {
	var err error
	testLogger, err = observability.NewLogger("weatherbot-integration")
	if err != nil {
		panic(err)
	}
}

// setupIntegrationServer starts the full route stack against the live provider.
func setupIntegrationServer(t *testing.T, limiter *rate.Limiter) *httptest.Server {
	t.Helper()
	cfg := testhelpers.GetIntegrationConfig(t)
	chat := testhelpers.SetupIntegrationRouter(t, cfg, testLogger)
	handler := NewHandler(chat, &HealthConfig{StartTime: time.Now()}, testLogger, 500)

	server := httptest.NewServer(NewRouter(handler, testLogger, limiter, 30*time.Second))
	t.Cleanup(server.Close)
	return server
}

func postChat(t *testing.T, server *httptest.Server, msg string) (int, string) {
	t.Helper()
	resp, err := http.PostForm(server.URL+"/get", url.Values{"msg": {msg}})
	if err != nil {
		t.Fatalf("POST /get: %v", err)
	}
	defer resp.Body.Close()
	var reply string
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			t.Fatalf("decode reply: %v", err)
		}
	}
	return resp.StatusCode, reply
}

func TestIntegration_PostChat_Temperature(t *testing.T) {
	server := setupIntegrationServer(t, nil)

	code, reply := postChat(t, server, "What is the temperature in Ho Chi Minh?")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !strings.HasPrefix(reply, "Temperature in Ho Chi Minh: ") || !strings.Contains(reply, "°F") {
		t.Errorf("reply = %q, want temperature line", reply)
	}
}

func TestIntegration_PostChat_Summary(t *testing.T) {
	server := setupIntegrationServer(t, nil)

	code, reply := postChat(t, server, "thời tiết hanoi")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if lines := strings.Split(reply, "\n"); len(lines) != 7 {
		t.Errorf("summary has %d lines, want 7: %q", len(lines), reply)
	}
}

func TestIntegration_PostChat_CannedAndUnknown(t *testing.T) {
	server := setupIntegrationServer(t, nil)

	if _, reply := postChat(t, server, "Hello"); !strings.HasPrefix(reply, "Hello!") {
		t.Errorf("canned reply = %q", reply)
	}
	if _, reply := postChat(t, server, "tell me something"); !strings.HasPrefix(reply, "Sorry, I couldn't find") {
		t.Errorf("unknown reply = %q", reply)
	}
}

func TestIntegration_GetHealth_FullStack(t *testing.T) {
	t.Cleanup(func() { lifecycle.SetPhase(lifecycle.PhaseStarting) })
	lifecycle.SetPhase(lifecycle.PhaseReady)
	server := setupIntegrationServer(t, nil)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestIntegration_RateLimiting_Concurrent(t *testing.T) {
	server := setupIntegrationServer(t, rate.NewLimiter(rate.Every(time.Hour), 2))

	var mu sync.Mutex
	codes := map[int]int{}
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.PostForm(server.URL+"/get", url.Values{"msg": {"hello"}})
			if err != nil {
				t.Errorf("POST /get: %v", err)
				return
			}
			resp.Body.Close()
			mu.Lock()
			codes[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if codes[http.StatusOK] != 2 || codes[http.StatusTooManyRequests] != 4 {
		t.Errorf("status counts = %v, want 2x200 and 4x429", codes)
	}
}
