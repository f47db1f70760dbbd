package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StubOTPCode is accepted by the stub provider
const StubOTPCode = "000000"

// SMSProvider sends and verifies login OTPs
type SMSProvider interface {
	SendOTP(ctx context.Context, phoneNumber string) (verificationID string, err error)
	VerifyOTP(ctx context.Context, phoneNumber, verificationID, code string) (bool, error)
}

// MessageCentralClient talks to the Message Central verification API
type MessageCentralClient struct {
	baseURL     string
	customerID  string
	password    string
	countryCode string
	httpClient  *http.Client
	logger      zerolog.Logger
	retryDelay  time.Duration
}

// NewMessageCentralClient creates a client with a bounded request timeout
func NewMessageCentralClient(baseURL, customerID, password, countryCode string, logger zerolog.Logger) *MessageCentralClient {
	return &MessageCentralClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		customerID:  customerID,
		password:    password,
		countryCode: countryCode,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger,
		retryDelay: 200 * time.Millisecond,
	}
}

type messageCentralResponse struct {
	Data struct {
		VerificationID     string `json:"verificationId"`
		VerificationStatus string `json:"verificationStatus"`
	} `json:"data"`
}

var errRetryable = errors.New("retryable upstream failure")

// do executes the request built by newReq, retrying once on transport errors and 5xx
func (m *MessageCentralClient) do(ctx context.Context, newReq func() (*http.Request, error)) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(m.retryDelay):
			}
		}

		req, err := newReq()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := m.httpClient.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", errRetryable, err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: %v", errRetryable, readErr)
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: status %d: %s", errRetryable, resp.StatusCode, string(body))
			continue
		}
		return resp.StatusCode, body, nil
	}
	return 0, nil, lastErr
}

func (m *MessageCentralClient) token(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("customerId", m.customerID)
	q.Set("key", base64.StdEncoding.EncodeToString([]byte(m.password)))
	q.Set("scope", "NEW")

	status, body, err := m.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, m.baseURL+"/auth/v1/authentication/token?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "*/*")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch provider token: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s", status, string(body))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		return "", fmt.Errorf("token endpoint returned no token")
	}
	return out.Token, nil
}

// SendOTP asks the provider to text a 6 digit code to phoneNumber
func (m *MessageCentralClient) SendOTP(ctx context.Context, phoneNumber string) (string, error) {
	authToken, err := m.token(ctx)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("countryCode", m.countryCode)
	q.Set("customerId", m.customerID)
	q.Set("mobileNumber", phoneNumber)
	q.Set("flowType", "SMS")
	q.Set("otpLength", "6")

	status, body, err := m.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, m.baseURL+"/verification/v3/send?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("authToken", authToken)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to send OTP: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("send endpoint returned status %d: %s", status, string(body))
	}

	var out messageCentralResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Data.VerificationID == "" {
		return "", fmt.Errorf("send endpoint returned no verification id")
	}
	return out.Data.VerificationID, nil
}

// VerifyOTP checks code against the provider. A rejected code is (false, nil).
func (m *MessageCentralClient) VerifyOTP(ctx context.Context, phoneNumber, verificationID, code string) (bool, error) {
	authToken, err := m.token(ctx)
	if err != nil {
		return false, err
	}

	q := url.Values{}
	q.Set("verificationId", verificationID)
	q.Set("code", code)
	q.Set("customerId", m.customerID)
	q.Set("countryCode", m.countryCode)
	q.Set("mobileNumber", phoneNumber)

	status, body, err := m.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, m.baseURL+"/verification/v3/validateOtp?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("authToken", authToken)
		return req, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to validate OTP: %w", err)
	}
	if status != http.StatusOK {
		m.logger.Warn().Int("status", status).Msg("provider rejected OTP")
		return false, nil
	}

	var out messageCentralResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("failed to decode validate response: %w", err)
	}
	return out.Data.VerificationStatus == "VERIFICATION_COMPLETED", nil
}

// StubSMSProvider logs instead of texting and accepts StubOTPCode
type StubSMSProvider struct {
	logger zerolog.Logger
}

// NewStubSMSProvider creates the development provider
func NewStubSMSProvider(logger zerolog.Logger) *StubSMSProvider {
	return &StubSMSProvider{logger: logger}
}

// SendOTP returns a fresh verification id without sending anything
func (s *StubSMSProvider) SendOTP(_ context.Context, phoneNumber string) (string, error) {
	id := "stub-" + uuid.NewString()
	s.logger.Info().Str("phone_number", phoneNumber).Str("verification_id", id).Msgf("SMS stub: use code %s", StubOTPCode)
	return id, nil
}

// VerifyOTP accepts StubOTPCode only
func (s *StubSMSProvider) VerifyOTP(_ context.Context, _, _, code string) (bool, error) {
	return code == StubOTPCode, nil
}
