// ABOUTME: Tests for the Bot API client against a local fake server
// ABOUTME: Covers payload encoding, envelope parsing and edit tolerance

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/groq-relay/internal/bot"
)

// fakeAPI records every Bot API call and serves canned responses.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []apiCall
	responses map[string]string
}

type apiCall struct {
	method  string
	payload map[string]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: make(map[string]string)}
}

func (f *fakeAPI) respond(method, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = body
}

func (f *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/")

		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		f.calls = append(f.calls, apiCall{method: method, payload: payload})
		body, ok := f.responses[method]
		f.mu.Unlock()

		if !ok {
			body = `{"ok":true,"result":true}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func (f *fakeAPI) lastCall(t *testing.T) apiCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	return NewClient(server.URL, nil), api
}

func TestSend_ReturnsMessageRef(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("sendMessage", `{"ok":true,"result":{"message_id":42,"chat":{"id":7}}}`)

	ref, err := client.Send(context.Background(), 7, "hello")
	require.NoError(t, err)
	assert.Equal(t, bot.MessageRef{ChatID: 7, MessageID: 42}, ref)

	call := api.lastCall(t)
	assert.Equal(t, "sendMessage", call.method)
	assert.Equal(t, float64(7), call.payload["chat_id"])
	assert.Equal(t, "hello", call.payload["text"])
	assert.NotContains(t, call.payload, "parse_mode")
}

func TestSendHTML_SetsParseMode(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("sendMessage", `{"ok":true,"result":{"message_id":1,"chat":{"id":7}}}`)

	_, err := client.SendHTML(context.Background(), 7, "<b>hi</b>")
	require.NoError(t, err)

	call := api.lastCall(t)
	assert.Equal(t, "HTML", call.payload["parse_mode"])
	assert.Equal(t, true, call.payload["disable_web_page_preview"])
}

func TestEditHTML_SendsMessageID(t *testing.T) {
	client, api := newTestClient(t)

	err := client.EditHTML(context.Background(), bot.MessageRef{ChatID: 7, MessageID: 42}, "updated")
	require.NoError(t, err)

	call := api.lastCall(t)
	assert.Equal(t, "editMessageText", call.method)
	assert.Equal(t, float64(42), call.payload["message_id"])
	assert.Equal(t, "updated", call.payload["text"])
}

func TestEditHTML_NotModifiedIsNotAnError(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("editMessageText",
		`{"ok":false,"description":"Bad Request: message is not modified"}`)

	err := client.EditHTML(context.Background(), bot.MessageRef{ChatID: 7, MessageID: 42}, "same")
	assert.NoError(t, err)
}

func TestEditHTML_OtherAPIErrorSurfaces(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("editMessageText",
		`{"ok":false,"description":"Bad Request: message to edit not found"}`)

	err := client.EditHTML(context.Background(), bot.MessageRef{ChatID: 7, MessageID: 42}, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message to edit not found")
}

func TestSendButtons_EncodesInlineKeyboard(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("sendMessage", `{"ok":true,"result":{"message_id":5,"chat":{"id":7}}}`)

	rows := [][]bot.Button{
		{{Label: "model-a", Data: "change_model_model-a"}},
		{{Label: "model-b", Data: "change_model_model-b"}},
	}
	_, err := client.SendButtons(context.Background(), 7, "Select a model:", rows)
	require.NoError(t, err)

	call := api.lastCall(t)
	markup, ok := call.payload["reply_markup"].(map[string]any)
	require.True(t, ok)
	keyboard, ok := markup["inline_keyboard"].([]any)
	require.True(t, ok)
	require.Len(t, keyboard, 2)

	firstRow := keyboard[0].([]any)
	firstBtn := firstRow[0].(map[string]any)
	assert.Equal(t, "model-a", firstBtn["text"])
	assert.Equal(t, "change_model_model-a", firstBtn["callback_data"])
}

func TestTyping_SendsChatAction(t *testing.T) {
	client, api := newTestClient(t)

	require.NoError(t, client.Typing(context.Background(), 7))

	call := api.lastCall(t)
	assert.Equal(t, "sendChatAction", call.method)
	assert.Equal(t, "typing", call.payload["action"])
}

func TestGetUpdates_ParsesUpdates(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("getUpdates", `{"ok":true,"result":[
		{"update_id":100,"message":{"message_id":1,"from":{"id":9},"chat":{"id":7},"text":"hello"}},
		{"update_id":101,"callback_query":{"id":"cb1","from":{"id":9},"message":{"message_id":2,"chat":{"id":7}},"data":"change_model_x"}}
	]}`)

	updates, err := client.GetUpdates(context.Background(), 0, 1)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	require.NotNil(t, updates[0].Message)
	assert.Equal(t, int64(100), updates[0].UpdateID)
	assert.Equal(t, "hello", updates[0].Message.Text)
	assert.Equal(t, int64(9), updates[0].Message.From.ID)

	require.NotNil(t, updates[1].CallbackQuery)
	assert.Equal(t, "change_model_x", updates[1].CallbackQuery.Data)

	call := api.lastCall(t)
	assert.Equal(t, float64(0), call.payload["offset"])
	assert.Equal(t, float64(1), call.payload["timeout"])
}

func TestCall_APIErrorIncludesDescription(t *testing.T) {
	client, api := newTestClient(t)
	api.respond("sendMessage", `{"ok":false,"description":"Unauthorized"}`)

	_, err := client.Send(context.Background(), 7, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTruncate_CapsLongMessages(t *testing.T) {
	long := strings.Repeat("x", maxMessageLen+500)
	got := truncate(long, maxMessageLen)
	assert.Len(t, got, maxMessageLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "short", truncate("short", maxMessageLen))
}
