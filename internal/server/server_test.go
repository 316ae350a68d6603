package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ainurse/internal/app"
	"ainurse/internal/store"
	"ainurse/pkg/domain"
)

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

const analysisReply = "```json\n" + `{
	"referral": "Cardiologia",
	"urgency": "Alta",
	"justification": "Dor torácica.",
	"diagnoses": [{"name": "IAM", "probability": "alta"}],
	"exams": ["ECG"],
	"medications": ["AAS"]
}` + "\n```"

func newTestServer(t *testing.T, gen *fakeGenerator) *httptest.Server {
	t.Helper()
	appCore, err := app.New(app.Config{Store: store.NewMemoryStore(), Generator: gen})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: appCore})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func registerClinician(t *testing.T, baseURL, email string) domain.User {
	t.Helper()
	resp := postJSON(t, baseURL+"/users/", map[string]string{
		"email":     email,
		"password":  "s3cret",
		"full_name": "Dra. Silva",
		"crm":       "12345-SP",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup status = %d, want 200", resp.StatusCode)
	}
	return decodeJSON[domain.User](t, resp)
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})
	user := registerClinician(t, ts.URL, "dra.silva@example.com")
	if user.ID == "" || user.Email != "dra.silva@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Blank required fields are the client's mistake, not a server error.
	resp := postJSON(t, ts.URL+"/users/", map[string]string{
		"email": "", "password": "", "full_name": "",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank signup status = %d, want 400", resp.StatusCode)
	}

	// Duplicate email.
	resp = postJSON(t, ts.URL+"/users/", map[string]string{
		"email": "dra.silva@example.com", "password": "x", "full_name": "Dup", "crm": "1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate signup status = %d, want 400", resp.StatusCode)
	}

	// Valid login.
	resp = postJSON(t, ts.URL+"/login", map[string]string{"email": "dra.silva@example.com", "password": "s3cret"})
	logged := decodeJSON[domain.User](t, resp)
	if resp.StatusCode != http.StatusOK || logged.ID != user.ID {
		t.Fatalf("login status=%d user=%+v", resp.StatusCode, logged)
	}

	// Wrong password and unknown email share the same status.
	for _, creds := range []map[string]string{
		{"email": "dra.silva@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "s3cret"},
	} {
		resp = postJSON(t, ts.URL+"/login", creds)
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("login mismatch status = %d, want 403", resp.StatusCode)
		}
	}
}

func TestGetAndUpdateUser(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})
	user := registerClinician(t, ts.URL, "dra.silva@example.com")

	resp, err := http.Get(ts.URL + "/users/" + user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	fetched := decodeJSON[domain.User](t, resp)
	if fetched.ID != user.ID {
		t.Fatalf("fetched wrong user: %+v", fetched)
	}

	resp, err = http.Get(ts.URL + "/users/missing-id")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing user status = %d, want 404", resp.StatusCode)
	}

	body, _ := json.Marshal(map[string]string{"specialty": "Cardiologia", "phone": "+55 11 99999-0000"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/users/"+user.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put user: %v", err)
	}
	updated := decodeJSON[domain.User](t, resp)
	if updated.Specialty != "Cardiologia" || updated.Phone != "+55 11 99999-0000" {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.FullName != user.FullName {
		t.Fatalf("untouched field changed: %+v", updated)
	}
}

func TestSubmitCaseEndToEnd(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})
	owner := registerClinician(t, ts.URL, "dra.silva@example.com")

	resp := postJSON(t, fmt.Sprintf("%s/cases/?owner_id=%s", ts.URL, owner.ID), map[string]any{
		"patient_data": map[string]string{
			"full_name":       "Jane Doe",
			"birth_date":      "1990-01-01",
			"gender":          "F",
			"medical_history": "",
		},
		"symptoms": "fever",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200", resp.StatusCode)
	}
	payload := decodeJSON[map[string]any](t, resp)
	if payload["status"] != string(domain.StatusAnalisado) {
		t.Fatalf("status = %v, want Analisado", payload["status"])
	}
	if payload["patient_name"] != "Jane Doe" {
		t.Fatalf("patient_name = %v, want Jane Doe", payload["patient_name"])
	}
	analysis, ok := payload["ai_analysis_json"].(map[string]any)
	if !ok {
		t.Fatalf("ai_analysis_json missing or wrong type: %v", payload["ai_analysis_json"])
	}
	for _, key := range []string{"referral", "urgency", "justification", "diagnoses", "exams", "medications"} {
		if _, ok := analysis[key]; !ok {
			t.Fatalf("ai_analysis_json missing key %q: %v", key, analysis)
		}
	}

	// Patient got registered under the owner.
	resp, err := http.Get(fmt.Sprintf("%s/patients/?owner_id=%s", ts.URL, owner.ID))
	if err != nil {
		t.Fatalf("list patients: %v", err)
	}
	patients := decodeJSON[[]domain.Patient](t, resp)
	if len(patients) != 1 || patients[0].FullName != "Jane Doe" {
		t.Fatalf("unexpected patients: %+v", patients)
	}
}

func TestSubmitCaseFallbackStillSucceeds(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{err: errors.New("upstream down")})
	owner := registerClinician(t, ts.URL, "dra.silva@example.com")

	resp := postJSON(t, fmt.Sprintf("%s/cases/?owner_id=%s", ts.URL, owner.ID), map[string]any{
		"patient_data": map[string]string{"full_name": "Jane Doe", "birth_date": "1990-01-01", "gender": "F"},
		"symptoms":     "fever",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200 despite AI failure", resp.StatusCode)
	}
	c := decodeJSON[domain.Case](t, resp)
	if c.Analysis == nil || c.Analysis.Urgency != domain.UrgencyIndefinida || c.Analysis.Referral != "Clínico Geral" {
		t.Fatalf("expected fallback analysis, got %+v", c.Analysis)
	}
	if c.Status != domain.StatusAnalisado {
		t.Fatalf("status = %q, want Analisado", c.Status)
	}
}

func TestSubmitCaseMissingPatientData(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})
	owner := registerClinician(t, ts.URL, "dra.silva@example.com")

	resp := postJSON(t, fmt.Sprintf("%s/cases/?owner_id=%s", ts.URL, owner.ID), map[string]any{
		"symptoms": "fever",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCaseListDetailAndDelete(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})
	owner := registerClinician(t, ts.URL, "dra.silva@example.com")
	other := registerClinician(t, ts.URL, "outro@example.com")

	resp := postJSON(t, fmt.Sprintf("%s/cases/?owner_id=%s", ts.URL, owner.ID), map[string]any{
		"patient_data": map[string]string{"full_name": "Jane Doe", "birth_date": "1990-01-01", "gender": "F"},
		"symptoms":     "fever",
	})
	created := decodeJSON[domain.Case](t, resp)

	// List is owner-scoped.
	resp, err := http.Get(fmt.Sprintf("%s/cases/?owner_id=%s", ts.URL, owner.ID))
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	cases := decodeJSON[[]domain.Case](t, resp)
	if len(cases) != 1 || cases[0].PatientName != "Jane Doe" {
		t.Fatalf("unexpected cases: %+v", cases)
	}
	resp, err = http.Get(fmt.Sprintf("%s/cases/?owner_id=%s", ts.URL, other.ID))
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if got := decodeJSON[[]domain.Case](t, resp); len(got) != 0 {
		t.Fatalf("other owner sees %d cases, want 0", len(got))
	}

	// Detail joins patient fields.
	resp, err = http.Get(ts.URL + "/cases/" + created.ID)
	if err != nil {
		t.Fatalf("case detail: %v", err)
	}
	detail := decodeJSON[domain.CaseDetail](t, resp)
	if detail.PatientName != "Jane Doe" || detail.BirthDate != "1990-01-01" {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	// Cross-owner delete is a 404 and keeps the case.
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/cases/%s?owner_id=%s", ts.URL, created.ID, other.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("cross-owner delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-owner delete status = %d, want 404", resp.StatusCode)
	}

	// Owner delete succeeds with 204; a second attempt is a 404.
	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/cases/%s?owner_id=%s", ts.URL, created.ID, owner.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("owner delete status = %d, want 204", resp.StatusCode)
	}
	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/cases/%s?owner_id=%s", ts.URL, created.ID, owner.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d, want 404", resp.StatusCode)
	}
}

func TestOwnerIDRequired(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})

	for _, url := range []string{ts.URL + "/patients/", ts.URL + "/cases/"} {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("get %s: %v", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("GET %s status = %d, want 400", url, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: analysisReply})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
}
