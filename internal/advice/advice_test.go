package advice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDoer struct {
	calls int
	resp  *http.Response
	err   error
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return d.resp, d.err
}

func testConfig(url string) Config {
	return Config{URL: url, APIKey: "hf_test"}
}

func TestMissingKeyMakesNoCall(t *testing.T) {
	doer := &countingDoer{}
	cfg := testConfig("http://unused")
	cfg.APIKey = ""

	got := New(cfg, doer).GetMedicalResponse(context.Background(), "fever")

	assert.Equal(t, MissingKeyMessage, got)
	assert.Zero(t, doer.calls)
}

func TestSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, Prompt("fever, cough"), body["inputs"])
		params := body["parameters"].(map[string]any)
		assert.EqualValues(t, 200, params["max_new_tokens"])
		assert.EqualValues(t, 0.7, params["temperature"])
		assert.Equal(t, false, params["return_full_text"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"generated_text":" Rest and hydrate. "},{"generated_text":"ignored"}]`)
	}))
	defer srv.Close()

	got := New(testConfig(srv.URL), srv.Client()).GetMedicalResponse(context.Background(), "fever, cough")
	assert.Equal(t, " Rest and hydrate. ", got)
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":"model loading"}`)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), srv.Client())
	assert.Equal(t, `❌ Error 503: {"error":"model loading"}`, c.GetMedicalResponse(context.Background(), "fever"))

	_, err := c.Ask(context.Background(), "fever")
	var rse *RemoteServiceError
	require.ErrorAs(t, err, &rse)
	assert.Equal(t, KindStatus, rse.Kind)
	assert.ErrorIs(t, err, apperrors.ErrRemoteService)
}

func TestTransportFailure(t *testing.T) {
	doer := &countingDoer{err: errors.New("connection refused")}
	got := New(testConfig("http://model.invalid"), doer).GetMedicalResponse(context.Background(), "fever")

	assert.Equal(t, "❌ Error during request: connection refused", got)
	assert.Equal(t, 1, doer.calls, "no retries")
}

func TestEmptyAndUndecodableResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty array", `[]`, EmptyResponseMessage},
		{"not json", `<html>`, "❌ Error during request: "},
		{"missing generated_text", `[{"text":"hi"}]`, "❌ Error during request: 'generated_text'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &countingDoer{resp: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}}
			got := New(testConfig("http://model"), doer).GetMedicalResponse(context.Background(), "fever")
			assert.True(t, strings.HasPrefix(got, tt.want), got)
		})
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(srv.URL), srv.Client()).Ask(ctx, "fever")

	var rse *RemoteServiceError
	require.ErrorAs(t, err, &rse)
	assert.Equal(t, KindTransport, rse.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingGeneratedTextIsDecodeError(t *testing.T) {
	doer := &countingDoer{resp: &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`[{}]`)),
	}}
	_, err := New(testConfig("http://model"), doer).Ask(context.Background(), "fever")

	var rse *RemoteServiceError
	require.ErrorAs(t, err, &rse)
	assert.Equal(t, KindDecode, rse.Kind)
	assert.Equal(t, "decode", Outcome(err))
}

func TestEmptyGeneratedTextIsReturned(t *testing.T) {
	doer := &countingDoer{resp: &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`[{"generated_text":""}]`)),
	}}
	text, err := New(testConfig("http://model"), doer).Ask(context.Background(), "fever")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestHistoryIsSentInPrompt(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Text: "I have a fever"},
		{Role: RoleAssistant, Text: "How long?"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, Prompt("fever, chills", history...), body["inputs"])
		io.WriteString(w, `[{"generated_text":"ok"}]`)
	}))
	defer srv.Close()

	got := New(testConfig(srv.URL), srv.Client()).GetMedicalResponse(context.Background(), "fever, chills", history...)
	assert.Equal(t, "ok", got)
}

func TestPrompt(t *testing.T) {
	base := "You are a helpful medical assistant. A patient reports: fever\nSuggest possible diagnosis, home care tips, and whether to consult a doctor."
	assert.Equal(t, base, Prompt("fever"))
	assert.Equal(t, base+"\nConversation history: User: hi | Assistant: hello",
		Prompt("fever", Turn{Role: RoleUser, Text: "hi"}, Turn{Role: RoleAssistant, Text: "hello"}))
}

func TestNormalizeHistory(t *testing.T) {
	got, err := NormalizeHistory([]Turn{
		{Role: " User ", Text: " fever "},
		{Role: "assistant", Text: "  "},
		{Role: "ASSISTANT", Text: "rest"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Turn{{Role: RoleUser, Text: "fever"}, {Role: RoleAssistant, Text: "rest"}}, got)

	_, err = NormalizeHistory([]Turn{{Role: "system", Text: "x"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	long := make([]Turn, MaxHistoryTurns+3)
	for i := range long {
		long[i] = Turn{Role: RoleUser, Text: strings.Repeat("a", i+1)}
	}
	got, err = NormalizeHistory(long)
	require.NoError(t, err)
	require.Len(t, got, MaxHistoryTurns)
	assert.Equal(t, long[3].Text, got[0].Text)
}
