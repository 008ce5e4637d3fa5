package payment

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"payment-router/infrastructure/queue"
)

type Controller struct {
	intake   queue.IntakeQueue
	ledger   ILedger
	inflight *Inflight
	failed   *FailedStore
	peer     *PeerClient
}

// NewController wires the client-facing boundary. peer may be nil when the
// instance runs alone.
func NewController(intake queue.IntakeQueue, ledger ILedger, inflight *Inflight, failed *FailedStore, peer *PeerClient) *Controller {
	return &Controller{intake, ledger, inflight, failed, peer}
}

func (c *Controller) InitRoutes(app *fiber.App) {
	app.Post("/payments", c.postPayment)
	app.Get("/payments-summary", c.getSummary)
	app.Get("/payments-summary/local", c.getLocalSummary)
	app.Get("/payments/failed", c.getFailed)
	app.Post("/purge-payments", c.purge)
}

func (c *Controller) postPayment(ctx *fiber.Ctx) error {
	var input PostInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.SendStatus(fiber.StatusBadRequest)
	}
	if input.Amount <= 0 {
		return ctx.SendStatus(fiber.StatusBadRequest)
	}
	if _, err := uuid.Parse(input.CorrelationId); err != nil {
		return ctx.SendStatus(fiber.StatusBadRequest)
	}

	// Re-marshal rather than forwarding the raw body so unknown fields
	// never travel through the queue.
	payload, err := json.Marshal(input)
	if err != nil {
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}

	if err := c.intake.Enqueue(payload); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			return ctx.SendStatus(fiber.StatusTooManyRequests)
		}
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}

	return ctx.SendStatus(fiber.StatusAccepted)
}

func (c *Controller) getSummary(ctx *fiber.Ctx) error {
	summaryDate, err := ParseSummaryDate(ctx.Query("from"), ctx.Query("to"))
	if err != nil {
		return ctx.SendStatus(fiber.StatusBadRequest)
	}

	// Payments whose requestedAt falls inside the window may still be in
	// flight; waiting here keeps the reported totals consistent with what
	// the processors charged.
	c.inflight.WaitSettled(summaryDate)

	summary, err := c.ledger.AggregateSummary(ctx.Context(), summaryDate)
	if err != nil {
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}

	if c.peer != nil {
		remote, err := c.peer.LocalSummary(ctx.Context(), summaryDate)
		if err != nil {
			log.Errorf("peer summary: %v", err)
		} else {
			summary.Merge(remote)
		}
	}

	return ctx.Status(fiber.StatusOK).JSON(summary)
}

func (c *Controller) getLocalSummary(ctx *fiber.Ctx) error {
	summaryDate, err := ParseSummaryDate(ctx.Query("from"), ctx.Query("to"))
	if err != nil {
		return ctx.SendStatus(fiber.StatusBadRequest)
	}

	c.inflight.WaitSettled(summaryDate)

	summary, err := c.ledger.AggregateSummary(ctx.Context(), summaryDate)
	if err != nil {
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}

	return ctx.Status(fiber.StatusOK).JSON(summary)
}

func (c *Controller) getFailed(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(c.failed.All())
}

func (c *Controller) purge(ctx *fiber.Ctx) error {
	if err := c.ledger.DeleteAll(ctx.Context()); err != nil {
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}

	if err := c.intake.Purge(); err != nil {
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}

	c.failed.Reset()

	return ctx.SendStatus(fiber.StatusOK)
}
