package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/srimap/internal/core/domain"
)

type sessionBody struct {
	ID       string               `json:"id"`
	Location *domain.UserLocation `json:"location"`
}

func createSession(t *testing.T, app *fiber.App, body string) sessionBody {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/chat/sessions", strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var sess sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	if sess.ID == "" {
		t.Fatal("expected a session id")
	}
	return sess
}

func ask(t *testing.T, app *fiber.App, id, text string) (int, domain.Reply) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest("POST", "/v1/chat/sessions/"+id+"/messages", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var reply domain.Reply
	if resp.StatusCode == 200 {
		json.NewDecoder(resp.Body).Decode(&reply)
	}
	return resp.StatusCode, reply
}

func TestChat_LocalAnswer(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	code, reply := ask(t, app, sess.ID, "Tell me about trains")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if reply.Route != domain.RouteLocal || reply.Category != domain.CategoryRailway {
		t.Errorf("unexpected reply route=%s category=%s", reply.Route, reply.Category)
	}
	if !strings.Contains(reply.Text, "RAILWAY NETWORK INFO") || !strings.Contains(reply.Text, "Stations: 1") {
		t.Errorf("unexpected answer text %q", reply.Text)
	}
}

func TestChat_RejectsRapidSecondMessage(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	if code, _ := ask(t, app, sess.ID, "train"); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	code, reply := ask(t, app, sess.ID, "train")
	if code != 200 {
		t.Fatalf("expected 200 for a rejected message, got %d", code)
	}
	if reply.Route != domain.RouteRejected || !strings.HasPrefix(reply.Text, "Please wait") {
		t.Errorf("expected a rejection, got %+v", reply)
	}
}

func TestChat_HelpWithoutRemote(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	_, reply := ask(t, app, sess.ID, "what is the capital?")
	if reply.Route != domain.RouteHelp || !strings.HasPrefix(reply.Text, "I can help you with") {
		t.Errorf("expected the help message, got %+v", reply)
	}
}

func TestChat_NearbyUsesSessionLocation(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, `{"lat":6.9271,"lon":79.8612,"accuracy":15}`)
	if sess.Location == nil || sess.Location.Lat != 6.9271 {
		t.Fatalf("expected the location to be kept, got %+v", sess.Location)
	}

	_, reply := ask(t, app, sess.ID, "any dangers nearby?")
	if reply.Route != domain.RouteLocal || !reply.Nearby {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if !strings.Contains(reply.Text, "NEARBY DANGEROUS AREAS") || !strings.Contains(reply.Text, "**flood** at Colombo") {
		t.Errorf("unexpected answer text %q", reply.Text)
	}
}

func TestChat_NearbyWithoutLocationPrompts(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	_, reply := ask(t, app, sess.ID, "restaurants near me")
	if reply.Route != domain.RouteLocal || strings.Contains(reply.Text, "NEARBY RESTAURANTS") {
		t.Errorf("expected a location prompt, got %+v", reply)
	}
}

func TestChat_SetAndClearLocation(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	req := httptest.NewRequest("PUT", "/v1/chat/sessions/"+sess.ID+"/location", strings.NewReader(`{"lat":7.2906,"lon":80.6337}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("PUT", "/v1/chat/sessions/"+sess.ID+"/location", strings.NewReader(`{"lat":91,"lon":80}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for an out-of-range latitude, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/chat/sessions/"+sess.ID+"/location", nil), -1)
	if resp.StatusCode != 204 {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	if code, _ := ask(t, app, sess.ID, "   "); code != 400 {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestChat_UnknownSession(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	if code, _ := ask(t, app, "missing", "train"); code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/chat/sessions/missing/history", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for history, got %d", resp.StatusCode)
	}
}

func TestChat_CloseSession(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/chat/sessions/"+sess.ID, nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if code, _ := ask(t, app, sess.ID, "train"); code != 404 {
		t.Errorf("expected 404 after close, got %d", code)
	}
}

func TestChat_HistoryWithoutRepository(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))
	sess := createSession(t, app, "")

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/chat/sessions/"+sess.ID+"/history", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := strings.TrimSpace(string(readBody(t, resp.Body))); body != "[]" {
		t.Errorf("expected empty history, got %s", body)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
}

func TestGraphQL_Classify(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	q := `{"query":"{ classify(text: \"nearby stations\") { category matched nearby } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Classify struct {
				Category string `json:"category"`
				Matched  bool   `json:"matched"`
				Nearby   bool   `json:"nearby"`
			} `json:"classify"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Errors) > 0 {
		t.Fatalf("unexpected errors %v", out.Errors)
	}
	if out.Data.Classify.Category != "railway" || !out.Data.Classify.Matched || !out.Data.Classify.Nearby {
		t.Errorf("unexpected classification %+v", out.Data.Classify)
	}
}

func TestGraphQL_Nearby(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	q := `{"query":"{ nearby(dataset: \"trains\", lat: 6.9344, lon: 79.85, radiusKm: 5) { name distance_km } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	var out struct {
		Data struct {
			Nearby []struct {
				Name string `json:"name"`
			} `json:"nearby"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Errors) > 0 {
		t.Fatalf("unexpected errors %v", out.Errors)
	}
	if len(out.Data.Nearby) != 2 || out.Data.Nearby[0].Name != "Colombo Fort" || out.Data.Nearby[1].Name != "Main Line" {
		t.Errorf("unexpected nearby results %+v", out.Data.Nearby)
	}
}
