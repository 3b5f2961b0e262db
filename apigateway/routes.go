package apigateway

import (
	"net/http"
	"strconv"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/auditor"
	"github.com/downtowncxsh/xplx-access-bot/store"
	"github.com/downtowncxsh/xplx-access-bot/verifier"
)

// Deps is everything the ops surface needs.
type Deps struct {
	Verifier *verifier.Service
	Auditor  *auditor.Service
	Journal  *store.Journal
	AdminKey string
	Logger   *logrus.Logger
}

type verifyPayload struct {
	Email      string `json:"email"`
	MemberID   string `json:"member_id"`
	DisplayTag string `json:"display_tag"`
}

// Router assembles the fiber app.
func Router(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(RequestID())
	app.Use(Instrumentation())
	app.Use(RequestLogger(deps.Logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	admin := app.Group("/admin", RequireAdmin(deps.AdminKey))
	{
		admin.Post("/verify", func(c *fiber.Ctx) error {
			var payload verifyPayload
			if err := c.BodyParser(&payload); err != nil {
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"code": "bad_request", "message": err.Error()})
			}
			if payload.Email == "" || payload.MemberID == "" {
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"code": "bad_request", "message": "email and member_id are required"})
			}
			res := deps.Verifier.Verify(c.UserContext(), verifier.Request{
				Email:      payload.Email,
				MemberID:   payload.MemberID,
				DisplayTag: payload.DisplayTag,
			})
			return c.Status(http.StatusOK).JSON(fiber.Map{
				"request_id": res.RequestID,
				"outcome":    string(res.Outcome),
				"tier_role":  res.TierRole,
				"message":    res.Outcome.Message(),
			})
		})

		admin.Post("/audit/run", func(c *fiber.Ctx) error {
			stats := deps.Auditor.Sweep(c.UserContext())
			return c.Status(http.StatusOK).JSON(stats)
		})

		admin.Get("/events", func(c *fiber.Ctx) error {
			limit, _ := strconv.Atoi(c.Query("limit", "50"))
			var (
				events []store.Event
				err    error
			)
			if email := c.Query("email"); email != "" {
				events, err = deps.Journal.RecentByEmail(c.UserContext(), email, limit)
			} else {
				events, err = deps.Journal.Recent(c.UserContext(), limit)
			}
			if err != nil {
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"code": "journal_error", "message": err.Error()})
			}
			return c.Status(http.StatusOK).JSON(events)
		})
	}

	return app
}
