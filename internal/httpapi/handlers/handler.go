package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/common"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobPublisher enqueues experiment jobs for the worker.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Handler struct {
	DB      *gorm.DB
	ChatSvc *chat.Service
	// nil disables POST /experiments/async
	Rabbit JobPublisher
	Log    *zap.Logger
}

func NewHandler(db *gorm.DB, svc *chat.Service, rabbit JobPublisher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, ChatSvc: svc, Rabbit: rabbit, Log: log}
}

// fail maps a service error to the response envelope. Anything it does not
// recognize is logged and reported as a 500.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, chat.ErrNoActiveSession):
		common.Fail(c, http.StatusBadRequest, 40001, "no active session, create a session first")
	case errors.Is(err, chat.ErrSessionNotFound):
		common.Fail(c, http.StatusNotFound, 40401, "session not found")
	case errors.Is(err, chat.ErrTurnNotFound):
		common.Fail(c, http.StatusNotFound, 40402, "experiment not found")
	case errors.Is(err, chat.ErrJobNotFound):
		common.Fail(c, http.StatusNotFound, 40403, "job not found")
	case errors.Is(err, chat.ErrInvalidPatch):
		common.Fail(c, http.StatusBadRequest, 10006, err.Error())
	default:
		h.Log.Error(op+" failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

// failCommit is fail for writes against the active session, where a
// missing session is a bad request rather than a missing resource.
func (h *Handler) failCommit(c *gin.Context, op string, err error) {
	if errors.Is(err, chat.ErrSessionNotFound) {
		common.Fail(c, http.StatusBadRequest, 40002, "session not found")
		return
	}
	h.fail(c, op, err)
}
