package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/banking"
	"github.com/eventledger/eventledger/internal/eventstore"
	"github.com/eventledger/eventledger/internal/money"
	"github.com/eventledger/eventledger/internal/projection"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *banking.Service
	logger  *slog.Logger
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *banking.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

type amountBody struct {
	Amount *decimal.Decimal `json:"amount"`
}

type createRequest struct {
	Name           string      `json:"name"`
	InitialBalance *amountBody `json:"initialBalance"`
}

type transferRequest struct {
	DestinationAccountID string      `json:"destinationAccountId"`
	Amount               *amountBody `json:"amount"`
}

// Create opens a new account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fiber.NewError(http.StatusBadRequest, "name is required")
	}
	if req.InitialBalance == nil {
		return fiber.NewError(http.StatusBadRequest, "initialBalance is required")
	}
	initial, err := toMoney("initialBalance.amount", req.InitialBalance.Amount)
	if err != nil {
		return err
	}

	id, err := h.service.CreateAccount(c.UserContext(), name, initial)
	if err != nil {
		return h.commandError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":      id,
		"message": "account created",
	})
}

// List returns every known account.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.service.Accounts())
}

// Get returns the details of one account.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := accountID(c.Params("id"))
	if err != nil {
		return err
	}
	details, ok := h.service.Account(id)
	if !ok {
		return fiber.NewError(http.StatusNotFound, account.ErrAccountNotFound.Error())
	}
	return c.Status(http.StatusOK).JSON(details)
}

// Balance returns the projected balance of one account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id, err := accountID(c.Params("id"))
	if err != nil {
		return err
	}
	balance, ok := h.service.Balance(id)
	if !ok {
		return fiber.NewError(http.StatusNotFound, account.ErrAccountNotFound.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": balance})
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	id, amount, err := h.movement(c)
	if err != nil {
		return err
	}
	if err := h.service.Deposit(c.UserContext(), id, amount); err != nil {
		return h.commandError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "deposit completed"})
}

// Withdraw debits an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	id, amount, err := h.movement(c)
	if err != nil {
		return err
	}
	if err := h.service.Withdraw(c.UserContext(), id, amount); err != nil {
		return h.commandError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "withdrawal completed"})
}

// Transfer moves money to another account.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	from, err := accountID(c.Params("id"))
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	to, err := accountID(req.DestinationAccountID)
	if err != nil {
		return err
	}
	if to == from {
		return fiber.NewError(http.StatusBadRequest, "cannot transfer to the same account")
	}
	if req.Amount == nil {
		return fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	amount, err := toMoney("amount.amount", req.Amount.Amount)
	if err != nil {
		return err
	}

	if err := h.service.Transfer(c.UserContext(), from, to, amount); err != nil {
		return h.commandError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "transfer completed"})
}

// Transactions lists an account's history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	id, err := accountID(c.Params("id"))
	if err != nil {
		return err
	}

	var q projection.Query
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return fiber.NewError(http.StatusBadRequest, "limit must be a positive integer")
		}
		q.Limit = limit
	}
	if raw := c.Query("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "since must be a millisecond timestamp")
		}
		q.Since = &since
	}

	return c.Status(http.StatusOK).JSON(h.service.Transactions(id, q))
}

func (h *Handler) movement(c *fiber.Ctx) (account.ID, money.Money, error) {
	id, err := accountID(c.Params("id"))
	if err != nil {
		return "", money.Money{}, err
	}
	var req amountBody
	if err := c.BodyParser(&req); err != nil {
		return "", money.Money{}, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := toMoney("amount", req.Amount)
	if err != nil {
		return "", money.Money{}, err
	}
	return id, amount, nil
}

func (h *Handler) commandError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, account.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, account.ErrInvalidOperation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInvalidID):
		return fiber.NewError(http.StatusBadRequest, "account id must be a UUID")
	case errors.Is(err, eventstore.ErrConcurrency):
		return fiber.NewError(http.StatusConflict, "concurrent modification, retry the request")
	case errors.Is(err, banking.ErrLockTimeout):
		return fiber.NewError(http.StatusServiceUnavailable, "account busy, try again later")
	default:
		h.logger.Error("account command failed",
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}

func accountID(raw string) (account.ID, error) {
	id, err := account.ParseID(raw)
	if err != nil {
		return "", fiber.NewError(http.StatusBadRequest, "account id must be a UUID")
	}
	return id, nil
}

func toMoney(field string, amount *decimal.Decimal) (money.Money, error) {
	if amount == nil {
		return money.Money{}, fiber.NewError(http.StatusBadRequest, field+" is required")
	}
	m, err := money.New(*amount)
	if err != nil {
		return money.Money{}, fiber.NewError(http.StatusBadRequest, field+" must not be negative")
	}
	return m, nil
}
