// Package api is the typed wrapper around the authenticated cart REST
// surface. Every operation except GetCount requires a bearer credential and
// fails before any network attempt when none is present. Server responses
// follow an envelope {message, data}; the server's message is surfaced
// verbatim on failure, with a per-operation Vietnamese fallback when the
// body is empty or unparseable.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/huyndq/phonecart/internal/config"
	apperrors "github.com/huyndq/phonecart/internal/errors"
	"github.com/huyndq/phonecart/internal/metrics"
	"github.com/huyndq/phonecart/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CredentialSource is where the client reads the bearer token from before
// each call. "" means no credential.
type CredentialSource interface {
	Token() string
}

// operation pairs a metric/log name with its two user-facing Vietnamese
// messages: one for the missing-credential precondition, one as the
// fallback when a failed response carries no usable message.
type operation struct {
	name         string
	authRequired string
	fallback     string
}

var (
	opAddItem        = operation{"add_item", "Vui lòng đăng nhập để thêm sản phẩm vào giỏ hàng", "Không thể thêm sản phẩm vào giỏ hàng"}
	opGetCart        = operation{"get_cart", "Vui lòng đăng nhập để xem giỏ hàng", "Không thể tải giỏ hàng"}
	opUpdateQuantity = operation{"update_quantity", "Vui lòng đăng nhập để cập nhật giỏ hàng", "Không thể cập nhật số lượng sản phẩm"}
	opUpdateColor    = operation{"update_color", "Vui lòng đăng nhập để cập nhật giỏ hàng", "Không thể cập nhật màu sản phẩm"}
	opRemoveItem     = operation{"remove_item", "Vui lòng đăng nhập để cập nhật giỏ hàng", "Không thể xóa sản phẩm khỏi giỏ hàng"}
	opClearCart      = operation{"clear_cart", "Vui lòng đăng nhập để cập nhật giỏ hàng", "Không thể xóa giỏ hàng"}
	opGetCount       = operation{"get_count", "", "Không thể đếm số lượng giỏ hàng"}
	opValidate       = operation{"validate", "Vui lòng đăng nhập để kiểm tra giỏ hàng", "Không thể kiểm tra giỏ hàng"}
	opSyncCart       = operation{"sync_cart", "Vui lòng đăng nhập để đồng bộ giỏ hàng", "Không thể đồng bộ giỏ hàng"}
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL   string
	http      *http.Client
	creds     CredentialSource
	validator *validator.Validate
	logger    *slog.Logger
}

func NewClient(cfg *config.API, creds CredentialSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		creds:     creds,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "cart_api")),
	}
}

// do runs one envelope-shaped call. out, when non-nil, receives the decoded
// data payload; a 2xx with an absent or null data leaves out untouched.
func (c *Client) do(ctx context.Context, op operation, method, path string, body any, out any) error {
	token := c.creds.Token()
	if token == "" {
		metrics.ObserveCartOp(op.name, metrics.OutcomeError)

		return apperrors.AuthRequiredError(op.authRequired)
	}

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.InternalError(op.fallback).WithError(err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.InternalError(op.fallback).WithError(err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.http.Do(req)

	metrics.ObserveAPIDuration(op.name, time.Since(start))

	if err != nil {
		metrics.ObserveCartOp(op.name, metrics.OutcomeError)
		c.logger.Warn("cart API call failed", slog.String("op", op.name), slog.String("error", err.Error()))

		return apperrors.NetworkError(op.fallback).WithError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveCartOp(op.name, metrics.OutcomeError)

		return apperrors.NetworkError(op.fallback).WithError(err)
	}

	var env envelope

	decodable := json.Unmarshal(raw, &env) == nil

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveCartOp(op.name, metrics.OutcomeError)

		message := op.fallback
		if decodable && env.Message != "" {
			message = env.Message
		}

		c.logger.Warn("cart API rejected request",
			slog.String("op", op.name),
			slog.Int("status", resp.StatusCode),
			slog.String("message", message))

		return apperrors.ServerRejectedError(message, resp.StatusCode)
	}

	metrics.ObserveCartOp(op.name, metrics.OutcomeSuccess)

	if out == nil || !decodable || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.InternalError(op.fallback).WithError(err)
	}

	return nil
}

func (c *Client) AddItem(ctx context.Context, req *models.AddItemRequest) (*models.ServerCart, error) {
	if err := c.validator.Struct(req); err != nil {
		return nil, apperrors.ValidationError("Số lượng hoặc sản phẩm không hợp lệ").WithError(err)
	}

	cart := &models.ServerCart{}
	if err := c.do(ctx, opAddItem, http.MethodPost, "/cart/items", req, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (c *Client) GetCart(ctx context.Context) (*models.ServerCart, error) {
	cart := &models.ServerCart{}
	if err := c.do(ctx, opGetCart, http.MethodGet, "/cart", nil, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (c *Client) UpdateQuantity(ctx context.Context, itemID int64, quantity int) (*models.ServerCart, error) {
	req := &models.UpdateQuantityRequest{Quantity: quantity}
	if err := c.validator.Struct(req); err != nil {
		return nil, apperrors.ValidationError("Số lượng phải lớn hơn 0").WithError(err)
	}

	cart := &models.ServerCart{}
	if err := c.do(ctx, opUpdateQuantity, http.MethodPut, fmt.Sprintf("/cart/items/%d/quantity", itemID), req, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (c *Client) UpdateColor(ctx context.Context, itemID, colorID int64) (*models.ServerCart, error) {
	req := &models.UpdateColorRequest{ColorID: colorID}
	if err := c.validator.Struct(req); err != nil {
		return nil, apperrors.ValidationError("Màu sản phẩm không hợp lệ").WithError(err)
	}

	cart := &models.ServerCart{}
	if err := c.do(ctx, opUpdateColor, http.MethodPut, fmt.Sprintf("/cart/items/%d/color", itemID), req, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (c *Client) RemoveItem(ctx context.Context, itemID int64) (*models.ServerCart, error) {
	cart := &models.ServerCart{}
	if err := c.do(ctx, opRemoveItem, http.MethodDelete, fmt.Sprintf("/cart/items/%d", itemID), nil, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, opClearCart, http.MethodDelete, "/cart", nil, nil)
}

// GetCount is advisory (badge display), not correctness-critical: it
// degrades to 0 on a missing credential or any failure instead of raising.
func (c *Client) GetCount(ctx context.Context) int {
	if c.creds.Token() == "" {
		return 0
	}

	count := &models.CartCount{}
	if err := c.do(ctx, opGetCount, http.MethodGet, "/cart/count", nil, count); err != nil {
		c.logger.Warn("cart count unavailable", slog.String("error", err.Error()))

		return 0
	}

	return count.TotalItems
}

// Validate asks the server to re-check stock and pricing before checkout.
func (c *Client) Validate(ctx context.Context) (*models.CartValidation, error) {
	result := &models.CartValidation{}
	if err := c.do(ctx, opValidate, http.MethodPost, "/cart/validate", nil, result); err != nil {
		return nil, err
	}

	return result, nil
}

// SyncGuestCart submits the whole guest cart as one batch for a server-side
// merge. Matching, summing and clamping against stock are server concerns.
func (c *Client) SyncGuestCart(ctx context.Context, items []models.GuestCartItem) (*models.SyncResult, error) {
	req := &models.SyncGuestCartRequest{GuestCartItems: items}
	if err := c.validator.Struct(req); err != nil {
		return nil, apperrors.ValidationError("Giỏ hàng tạm không hợp lệ").WithError(err)
	}

	result := &models.SyncResult{}
	if err := c.do(ctx, opSyncCart, http.MethodPost, "/cart/sync", req, result); err != nil {
		return nil, err
	}

	return result, nil
}
