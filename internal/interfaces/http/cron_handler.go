package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/application/reminder"
)

// CronHandler endpoints invocados por el scheduler externo.
type CronHandler struct {
	reminders *reminder.UseCase
	now       func() time.Time
}

// NewCronHandler construye el handler.
func NewCronHandler(reminders *reminder.UseCase) *CronHandler {
	return &CronHandler{reminders: reminders, now: time.Now}
}

// SendReminders ejecuta el barrido de recordatorios.
// GET /api/cron/send-reminders
func (h *CronHandler) SendReminders(c *fiber.Ctx) error {
	res, err := h.reminders.ExecuteForAllUsers(c.UserContext(), h.now())
	if err != nil {
		return writeError(c, err)
	}
	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(dto.ReminderSweepResponse{
		Sent:    res.Sent,
		Skipped: res.Skipped,
		Failed:  res.Failed,
		Errors:  errs,
	})
}
