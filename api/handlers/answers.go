package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/api"
	"github.com/BaSui01/voiceweb/types"
)

// AnswersHandler 暴露问答存储
type AnswersHandler struct {
	store  answers.Store
	logger *zap.Logger
}

// NewAnswersHandler 创建问答处理器
func NewAnswersHandler(store answers.Store, logger *zap.Logger) *AnswersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswersHandler{store: store, logger: logger.With(zap.String("component", "answers_api"))}
}

// HandleList 处理 GET /answers
// @Summary 列出问答
// @Tags 问答
// @Produce json
// @Success 200 {object} api.AnswerListResponse
// @Router /answers [get]
func (h *AnswersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.All(r.Context())
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "list answers").WithCause(err), h.logger)
		return
	}
	out := make([]api.AnswerEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.AnswerEntry{
			Question:  e.Question,
			Answer:    e.Answer,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	WriteSuccess(w, api.AnswerListResponse{Answers: out, Count: len(out)})
}

// HandleAppend 处理 POST /answers
// @Summary 追加问答
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.AnswerRequest true "问答"
// @Success 200 {object} api.AnswerStoredResponse
// @Failure 400 {object} Response
// @Router /answers [post]
func (h *AnswersHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	var req api.AnswerRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	n, err := h.store.Append(r.Context(), req.Question, req.Answer)
	if errors.Is(err, answers.ErrEmptyQuestion) {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, err.Error(), h.logger)
		return
	}
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "store answer").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, api.AnswerStoredResponse{Stored: n})
}

// HandleReset 处理 DELETE /answers
// @Summary 清空问答
// @Tags 问答
// @Success 204
// @Router /answers [delete]
func (h *AnswersHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "reset answers").WithCause(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
