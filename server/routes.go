package main

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/meikuraledutech/stratigraphie"
	"github.com/meikuraledutech/stratigraphie/worker"
)

type server struct {
	worker  *worker.Worker
	store   stratigraphie.Store
	site    string
	timeout time.Duration
	logger  *log.Logger
}

// newCorrelationID returns a JSON string id for requests the caller did not tag.
func newCorrelationID() json.RawMessage {
	return json.RawMessage(strconv.Quote(uuid.NewString()))
}

func newApp(s *server) *fiber.App {
	app := fiber.New()

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ── Message envelope ──────────────────────────────────────────────
	app.Post("/rpc", func(c fiber.Ctx) error {
		req, err := worker.DecodeRequest(c.Body())
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if len(req.ID) == 0 || string(req.ID) == "null" {
			req.ID = newCorrelationID()
		}
		resp, err := s.call(c.Context(), req)
		if err != nil {
			return c.Status(503).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(resp)
	})

	// ── Shortcuts ─────────────────────────────────────────────────────
	app.Get("/stats", func(c fiber.Ctx) error {
		resp, err := s.call(c.Context(), worker.Request{ID: newCorrelationID(), Type: worker.TypeStats})
		if err != nil {
			return c.Status(503).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(resp.Result)
	})

	app.Post("/validate", func(c fiber.Ctx) error {
		var r stratigraphie.Relation
		if err := c.Bind().JSON(&r); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		resp, err := s.call(c.Context(), worker.Request{ID: newCorrelationID(), Type: worker.TypeValidate, Relation: &r})
		if err != nil {
			return c.Status(503).JSON(fiber.Map{"error": err.Error()})
		}
		result, _ := resp.Result.(stratigraphie.ValidationResult)
		if !result.OK {
			return c.Status(422).JSON(result)
		}
		return c.JSON(result)
	})

	return app
}

// call forwards req to the worker, bounded by the configured timeout.
func (s *server) call(ctx context.Context, req worker.Request) (worker.Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.worker.Do(ctx, req)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("request timed out", "id", string(req.ID), "type", req.Type)
	}
	return resp, err
}
