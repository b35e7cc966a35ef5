package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/common"
	"github.com/suPer8Hu/prompt-lab/internal/variation"
)

const maxPromptChars = 5000

type experimentReq struct {
	Prompt     string          `json:"prompt"`
	Parameters json.RawMessage `json:"parameters"`
}

// bindExperiment validates the body and returns the trimmed prompt and the
// parameters with defaults filled in. It writes the 400 itself.
func bindExperiment(c *gin.Context) (string, variation.Params, bool) {
	var req experimentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return "", variation.Params{}, false
	}

	prompt := strings.TrimSpace(req.Prompt)
	if n := utf8.RuneCountInString(prompt); n == 0 || n > maxPromptChars {
		common.Fail(c, http.StatusBadRequest, 10002, "prompt is required, 1 to 5000 characters")
		return "", variation.Params{}, false
	}

	raw := bytes.TrimSpace(req.Parameters)
	if len(raw) == 0 || raw[0] != '{' {
		common.Fail(c, http.StatusBadRequest, 10003, "parameters must be an object")
		return "", variation.Params{}, false
	}
	var params variation.Params
	if err := json.Unmarshal(raw, &params); err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "invalid parameters: "+err.Error())
		return "", variation.Params{}, false
	}
	return prompt, params, true
}

// ListExperiments lists turns, optionally narrowed by ?sessionId= and
// ?sender=.
func (h *Handler) ListExperiments(c *gin.Context) {
	f := chat.TurnFilter{
		SessionID: c.Query("sessionId"),
		Sender:    chat.Sender(c.Query("sender")),
	}
	if f.Sender != "" && f.Sender != chat.SenderUser && f.Sender != chat.SenderAssistant {
		common.Fail(c, http.StatusBadRequest, 10004, "sender must be user or assistant")
		return
	}

	turns, err := h.ChatSvc.ListTurns(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "list experiments", err)
		return
	}
	common.OK(c, turns)
}

func (h *Handler) GetExperiment(c *gin.Context) {
	t, err := h.ChatSvc.GetTurn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get experiment", err)
		return
	}
	common.OK(c, t)
}

// ListSessionExperiments lists the turns of session :id, oldest first.
func (h *Handler) ListSessionExperiments(c *gin.Context) {
	turns, err := h.ChatSvc.ListTurnsBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "list session experiments", err)
		return
	}
	common.OK(c, turns)
}

// AddExperiment commits a prompt and its three scored variations to the
// active session.
func (h *Handler) AddExperiment(c *gin.Context) {
	prompt, params, ok := bindExperiment(c)
	if !ok {
		return
	}

	res, err := h.ChatSvc.CommitTurn(c.Request.Context(), prompt, params)
	if err != nil {
		h.failCommit(c, "commit experiment", err)
		return
	}
	common.Created(c, "experiment created", res)
}

func (h *Handler) UpdateExperiment(c *gin.Context) {
	var patch chat.TurnPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	t, err := h.ChatSvc.UpdateTurn(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, "update experiment", err)
		return
	}
	common.OK(c, t)
}

func (h *Handler) DeleteExperiment(c *gin.Context) {
	id := c.Param("id")
	if err := h.ChatSvc.DeleteTurn(c.Request.Context(), id); err != nil {
		h.fail(c, "delete experiment", err)
		return
	}
	common.OK(c, gin.H{"id": id})
}
