package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultMSG91URL = "https://api.msg91.com/api/v5/flow/"

// countryCode se antepone a los numeros de 10 digitos.
const countryCode = "91"

// MSG91Sender envia OTP mediante la Flow API de MSG91.
type MSG91Sender struct {
	authKey string
	flowID  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewMSG91Sender(authKey, flowID, baseURL string, logger *zap.Logger) (*MSG91Sender, error) {
	if strings.TrimSpace(authKey) == "" {
		return nil, fmt.Errorf("msg91 auth key is required")
	}
	if strings.TrimSpace(flowID) == "" {
		return nil, fmt.Errorf("msg91 flow id is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultMSG91URL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MSG91Sender{
		authKey: authKey,
		flowID:  flowID,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

type flowRequest struct {
	FlowID  string `json:"flow_id"`
	Mobiles string `json:"mobiles"`
	OTP     string `json:"otp"`
}

func (s *MSG91Sender) SendOTP(ctx context.Context, mobile string, code string) error {
	if strings.TrimSpace(mobile) == "" {
		return fmt.Errorf("mobile is required")
	}

	body, err := json.Marshal(flowRequest{
		FlowID:  s.flowID,
		Mobiles: countryCode + mobile,
		OTP:     code,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.authKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("sms send failed", zap.String("mobile", mobile), zap.Error(err))
		return fmt.Errorf("sms http error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("sms gateway rejected request",
			zap.String("mobile", mobile),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent",
		zap.String("mobile", mobile),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

func (s *MSG91Sender) Mode() string {
	return ModeGateway
}
