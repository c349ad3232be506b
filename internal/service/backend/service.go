package backend

import (
	"OrderFlow/entity"
	"OrderFlow/internal/config"
	"OrderFlow/internal/lib/sl"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// Error is a failed backend call. Message is the text the backend wants the user to see.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is shown in place of the raw error.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "请求超时，请检查网络后重试"
	case e.Status >= 500:
		return "服务暂时不可用，请稍后再试"
	case e.Status == http.StatusUnauthorized:
		return "身份验证失败，请重新登录"
	}
	return "网络连接不稳定，请检查网络后重试"
}

// Service talks to the verification and order backend.
type Service struct {
	baseUrl string
	client  *http.Client
	log     *slog.Logger
}

func NewBackendService(conf *config.Config, logger *slog.Logger) *Service {
	timeout := conf.Backend.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Service{
		baseUrl: strings.TrimRight(conf.Backend.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     logger.With(sl.Module("backend service")),
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Service) post(ctx context.Context, op, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("marshal request body: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseUrl+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, op, out)
}

func (s *Service) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	target := s.baseUrl + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	return s.do(req, op, out)
}

func (s *Service) do(req *http.Request, op string, out interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log := s.log.With(slog.String("op", op), slog.String("request_id", requestID))

	resp, err := s.client.Do(req)
	if err != nil {
		log.With(sl.Err(err)).Error("send HTTP")
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.With(sl.Err(err)).Error("read response")
		return &Error{Op: op, Status: resp.StatusCode, Err: err}
	}

	var env envelope
	if len(data) > 0 {
		if err = json.Unmarshal(data, &env); err != nil {
			log.With(sl.Err(err), slog.Int("status", resp.StatusCode)).Error("decode response")
			return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		log.With(
			slog.Int("status", resp.StatusCode),
			slog.String("message", env.Message),
		).Warn("backend rejected request")
		return &Error{Op: op, Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if err = json.Unmarshal(data, out); err != nil {
			return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	log.Debug("backend call succeeded")
	return nil
}

// SendVerificationCode asks the backend to text a login code to the phone.
func (s *Service) SendVerificationCode(ctx context.Context, phone string) error {
	body := struct {
		PhoneNumber string `json:"phone_number"`
	}{phone}
	return s.post(ctx, "send verification code", "/send-verification-code", body, nil)
}

type authResponse struct {
	UserID       string `json:"user_id"`
	PhoneNumber  string `json:"phone_number"`
	IsNewUser    bool   `json:"is_new_user"`
	UserSequence int    `json:"user_sequence"`
}

func (r authResponse) result(phone string) *entity.AuthResult {
	res := &entity.AuthResult{
		UserID:       r.UserID,
		PhoneNumber:  r.PhoneNumber,
		IsNewUser:    r.IsNewUser,
		UserSequence: r.UserSequence,
	}
	if res.PhoneNumber == "" {
		res.PhoneNumber = phone
	}
	return res
}

// LoginWithPhone verifies a code. New users still need an invite code afterwards.
func (s *Service) LoginWithPhone(ctx context.Context, phone, code string) (*entity.AuthResult, error) {
	body := struct {
		PhoneNumber      string `json:"phone_number"`
		VerificationCode string `json:"verification_code"`
	}{phone, code}

	var resp authResponse
	if err := s.post(ctx, "login with phone", "/login-with-phone", body, &resp); err != nil {
		return nil, err
	}
	return resp.result(phone), nil
}

// VerifyInviteCode creates the account of a new user.
func (s *Service) VerifyInviteCode(ctx context.Context, phone, inviteCode string) (*entity.AuthResult, error) {
	body := struct {
		PhoneNumber string `json:"phone_number"`
		InviteCode  string `json:"invite_code"`
	}{phone, inviteCode}

	var resp authResponse
	if err := s.post(ctx, "verify invite code", "/verify-invite-code", body, &resp); err != nil {
		return nil, err
	}
	res := resp.result(phone)
	res.IsNewUser = true
	return res, nil
}

// CreatedOrder is the backend reply to an order creation.
type CreatedOrder struct {
	OrderID      string `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	UserSequence int    `json:"user_sequence_number"`
}

func (s *Service) CreateOrder(ctx context.Context, req entity.OrderRequest) (*CreatedOrder, error) {
	var resp CreatedOrder
	if err := s.post(ctx, "create order", "/create-order", req, &resp); err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		return nil, &Error{Op: "create order", Status: http.StatusOK, Err: errors.New("empty order id")}
	}
	return &resp, nil
}

// SubmitOrder confirms a created order and returns its final number.
func (s *Service) SubmitOrder(ctx context.Context, orderID string) (string, error) {
	body := struct {
		OrderID string `json:"order_id"`
	}{orderID}

	var resp struct {
		OrderNumber string `json:"order_number"`
	}
	if err := s.post(ctx, "submit order", "/submit-order", body, &resp); err != nil {
		return "", err
	}
	return resp.OrderNumber, nil
}

// ClaimFreeDrink redeems the invite reward and returns how many free drinks are left.
func (s *Service) ClaimFreeDrink(ctx context.Context, userID string) (int, error) {
	body := struct {
		UserID string `json:"user_id"`
	}{userID}

	var resp struct {
		Remaining int `json:"free_drinks_remaining"`
	}
	if err := s.post(ctx, "claim free drink", "/claim-free-drink", body, &resp); err != nil {
		return 0, err
	}
	return resp.Remaining, nil
}

// InviteStats returns the invite code usage of a user and its free drink eligibility.
func (s *Service) InviteStats(ctx context.Context, userID string) (*entity.InviteStats, error) {
	var resp entity.InviteStats
	if err := s.get(ctx, "get invite stats", "/get-user-invite-stats", url.Values{"user_id": {userID}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InviteProgress lists the users who signed up with the user's invite code.
func (s *Service) InviteProgress(ctx context.Context, userID string) (*entity.InviteProgress, error) {
	var resp entity.InviteProgress
	if err := s.get(ctx, "get invite progress", "/get-invite-progress", url.Values{"user_id": {userID}}, &resp); err != nil {
		return nil, err
	}
	if resp.Invitations == nil {
		resp.Invitations = []entity.Invitation{}
	}
	return &resp, nil
}

// FreeDrinksRemaining returns the global number of free drinks still available.
func (s *Service) FreeDrinksRemaining(ctx context.Context) (int, error) {
	var resp struct {
		Remaining int `json:"free_drinks_remaining"`
	}
	if err := s.get(ctx, "get free drinks remaining", "/free-drinks-remaining", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Remaining, nil
}
