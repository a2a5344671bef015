package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/api"
)

func postAnswer(t *testing.T, h *AnswersHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleAppend(w, httptest.NewRequest(http.MethodPost, "/answers", strings.NewReader(body)))
	return w
}

func TestAnswersHandler_AppendListReset(t *testing.T) {
	h := NewAnswersHandler(answers.NewMemoryStore(), nil)

	w := postAnswer(t, h, `{"question":"colour","answer":"blue"}`)
	require.Equal(t, http.StatusOK, w.Code)
	postAnswer(t, h, `{"question":" colour ","answer":"green"}`)
	w = postAnswer(t, h, `{"question":"pet","answer":"cat"}`)

	var stored struct {
		Data api.AnswerStoredResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stored))
	assert.Equal(t, 2, stored.Data.Stored)

	w = httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/answers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data api.AnswerListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Equal(t, 2, list.Data.Count)
	assert.Equal(t, "colour", list.Data.Answers[0].Question)
	assert.Equal(t, "blue; green", list.Data.Answers[0].Answer)
	assert.Equal(t, "pet", list.Data.Answers[1].Question)

	w = httptest.NewRecorder()
	h.HandleReset(w, httptest.NewRequest(http.MethodDelete, "/answers", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/answers", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, 0, list.Data.Count)
}

func TestAnswersHandler_EmptyQuestion(t *testing.T) {
	h := NewAnswersHandler(answers.NewMemoryStore(), nil)
	w := postAnswer(t, h, `{"question":"  ","answer":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnswersHandler_InvalidBody(t *testing.T) {
	h := NewAnswersHandler(answers.NewMemoryStore(), nil)
	w := postAnswer(t, h, `{"q":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
