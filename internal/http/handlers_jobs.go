package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"numq/internal/store"
)

// enqueueHandler accepts a numeric work item, records it as queued,
// and returns the new job id without waiting for processing.
func enqueueHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid JSON body",
		})
	}
	if req.Value == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "value is required",
		})
	}

	id := uuid.New().String()
	if err := st.Submit(c.Context(), id, *req.Value); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "STORE_UNAVAILABLE",
			Error:   "failed to record job: " + err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(EnqueueResponse{
		Success: true,
		JobID:   id,
	})
}

// jobStatusHandler returns the current state of a job, with its
// result or error detail once terminal. Unknown ids get a 404,
// distinct from a queued job that has no result yet.
func jobStatusHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	id := c.Params("id")
	job, err := st.GetJob(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(JobStatusResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "job not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(JobStatusResponse{
			Success: false,
			Code:    "STORE_UNAVAILABLE",
			Error:   "failed to load job: " + err.Error(),
		})
	}

	return c.JSON(JobStatusResponse{
		Success: true,
		Job: &JobStatusItem{
			ID:     job.ID,
			Status: string(job.Status),
			Input:  job.InputValue,
			Result: job.Result,
			Error:  job.ErrorMessage,
		},
	})
}
