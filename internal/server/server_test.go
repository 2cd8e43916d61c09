package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tripledger/internal/service"
	"tripledger/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "tripledger-server-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ts := httptest.NewServer(New(service.NewSettlementService(store)))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestAPI(t *testing.T) {
	ts := newTestServer(t)

	var event struct {
		ID       string `json:"id"`
		Currency string `json:"currency"`
	}
	resp := postJSON(t, ts.URL+"/api/events", map[string]string{"name": "Ski weekend", "currency": "chf"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event status = %d, want 201", resp.StatusCode)
	}
	decodeBody(t, resp, &event)
	if event.Currency != "CHF" {
		t.Errorf("currency = %s, want CHF", event.Currency)
	}

	addPerson := func(name string) string {
		var p struct {
			ID string `json:"id"`
		}
		resp := postJSON(t, fmt.Sprintf("%s/api/events/%s/people", ts.URL, event.ID), map[string]string{"name": name})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add person status = %d, want 201", resp.StatusCode)
		}
		decodeBody(t, resp, &p)
		return p.ID
	}
	annaID := addPerson("Anna")
	benID := addPerson("Ben")

	t.Run("add activity", func(t *testing.T) {
		resp := postJSON(t, fmt.Sprintf("%s/api/events/%s/activities", ts.URL, event.ID), map[string]any{
			"description":     "Lift passes",
			"amount":          "150.00",
			"payer_id":        annaID,
			"participant_ids": []string{annaID, benID},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add activity status = %d, want 201", resp.StatusCode)
		}
		var act struct {
			SplitStrategy string `json:"split_strategy"`
		}
		decodeBody(t, resp, &act)
		if act.SplitStrategy != "equal" {
			t.Errorf("split_strategy = %s, want equal", act.SplitStrategy)
		}
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		resp := postJSON(t, fmt.Sprintf("%s/api/events/%s/activities", ts.URL, event.ID), map[string]any{
			"description":     "Bad",
			"amount":          "-5",
			"payer_id":        annaID,
			"participant_ids": []string{annaID},
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		var body struct {
			Code string `json:"code"`
		}
		decodeBody(t, resp, &body)
		if body.Code != "validation" {
			t.Errorf("code = %s, want validation", body.Code)
		}
	})

	t.Run("get event returns people and activities", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/events/%s", ts.URL, event.ID))
		if err != nil {
			t.Fatalf("GET event failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body struct {
			People     []any `json:"people"`
			Activities []any `json:"activities"`
		}
		decodeBody(t, resp, &body)
		if len(body.People) != 2 || len(body.Activities) != 1 {
			t.Errorf("people = %d, activities = %d, want 2 and 1", len(body.People), len(body.Activities))
		}
	})

	t.Run("settlement", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/events/%s/settlement", ts.URL, event.ID))
		if err != nil {
			t.Fatalf("GET settlement failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body struct {
			Transfers []struct {
				From   struct{ ID string }
				To     struct{ ID string }
				Amount string `json:"amount"`
			} `json:"transfers"`
			Summary []struct {
				Net string `json:"net"`
			} `json:"summary"`
		}
		decodeBody(t, resp, &body)
		if len(body.Transfers) != 1 {
			t.Fatalf("transfers = %d, want 1", len(body.Transfers))
		}
		tr := body.Transfers[0]
		if tr.From.ID != benID || tr.To.ID != annaID || tr.Amount != "75" {
			t.Errorf("transfer = %+v, want Ben pays Anna 75", tr)
		}
		if len(body.Summary) != 2 {
			t.Errorf("summary = %d entries, want 2", len(body.Summary))
		}
	})

	t.Run("unknown event maps to 404", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/events/nope/settlement")
		if err != nil {
			t.Fatalf("GET settlement failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/events")
		if err != nil {
			t.Fatalf("GET events failed: %v", err)
		}
		var infos []struct {
			ID     string `json:"id"`
			People int    `json:"people"`
		}
		decodeBody(t, resp, &infos)
		if len(infos) != 1 || infos[0].People != 2 {
			t.Errorf("infos = %+v, want one event with 2 people", infos)
		}

		req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/events/%s", ts.URL, event.ID), nil)
		if err != nil {
			t.Fatalf("Failed to build request: %v", err)
		}
		delResp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE failed: %v", err)
		}
		delResp.Body.Close()
		if delResp.StatusCode != http.StatusNoContent {
			t.Errorf("delete status = %d, want 204", delResp.StatusCode)
		}
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET metrics failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}
