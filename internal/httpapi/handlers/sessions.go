package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/common"
)

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.ChatSvc.ListSessions(c.Request.Context())
	if err != nil {
		h.fail(c, "list sessions", err)
		return
	}
	common.OK(c, sessions)
}

// CurrentSession returns the active session, creating one if needed.
func (h *Handler) CurrentSession(c *gin.Context) {
	sess, err := h.ChatSvc.CurrentSession(c.Request.Context())
	if err != nil {
		h.fail(c, "current session", err)
		return
	}
	common.OK(c, sess)
}

type createSessionReq struct {
	Title string `json:"title" binding:"max=200"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionReq
	// an empty body means "no title"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.Fail(c, http.StatusBadRequest, 10001, "title must be a string of at most 200 characters")
		return
	}

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		h.fail(c, "create session", err)
		return
	}
	common.Created(c, "session created", sess)
}

type renameSessionReq struct {
	Title string `json:"title" binding:"required,max=200"`
}

func (h *Handler) RenameSession(c *gin.Context) {
	var req renameSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "title required, at most 200 characters")
		return
	}

	sess, err := h.ChatSvc.RenameSession(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		h.fail(c, "rename session", err)
		return
	}
	common.OK(c, sess)
}

// SwitchSession makes :id the active session.
func (h *Handler) SwitchSession(c *gin.Context) {
	sess, err := h.ChatSvc.SwitchSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failCommit(c, "switch session", err)
		return
	}
	common.OK(c, sess)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.ChatSvc.DeleteSession(c.Request.Context(), id); err != nil {
		h.fail(c, "delete session", err)
		return
	}
	common.OK(c, gin.H{"id": id})
}
