package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/common"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi/middleware"
	"go.uber.org/zap"
)

const maxIdempotencyKey = 128

// AddExperimentAsync queues an experiment against the active session and
// returns its job id. With an Idempotency-Key header a repeated request
// returns the original job instead of creating another.
func (h *Handler) AddExperimentAsync(c *gin.Context) {
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async experiments are disabled")
		return
	}

	prompt, params, ok := bindExperiment(c)
	if !ok {
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > maxIdempotencyKey {
		common.Fail(c, http.StatusBadRequest, 10005, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	jobID, err := common.NewULID()
	if err != nil {
		h.fail(c, "new job id", err)
		return
	}

	job, created, err := h.ChatSvc.SubmitJob(c.Request.Context(), jobID, prompt, params, idempoKeyPtr)
	if err != nil {
		h.failCommit(c, "submit job", err)
		return
	}

	// a replayed request re-enqueues a job that never left the queued state;
	// the worker's claim keeps it from running twice
	if created || job.Status == chat.JobQueued {
		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			h.Log.Error("publish job failed",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.Respond(c, http.StatusAccepted, "experiment queued", gin.H{"job_id": job.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.ChatSvc.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.fail(c, "get job", err)
		return
	}
	common.OK(c, gin.H{"job": j})
}
