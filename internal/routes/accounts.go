package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eventledger/eventledger/internal/accounts"
)

// RegisterAccountRoutes wires account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:id", h.Get)
	r.Get("/accounts/:id/balance", h.Balance)
	r.Get("/accounts/:id/transactions", h.Transactions)
	r.Post("/accounts/:id/deposit", h.Deposit)
	r.Post("/accounts/:id/withdraw", h.Withdraw)
	r.Post("/accounts/:id/transfer", h.Transfer)
}
