// Package device talks to the HTTP controller on each physical tank. The
// controller exposes pump and valve commands plus the raw ultrasonic
// distance reading.
package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client tank controller HTTP client. Controllers are addressed by IP and
// all listen on the same port.
type Client struct {
	httpClient *resty.Client
	port       int
	logger     *zap.Logger
}

func NewClient(port int, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient: client,
		port:       port,
		logger:     logger,
	}
}

func (c *Client) url(ip, path string) string {
	return fmt.Sprintf("http://%s:%d%s", ip, c.port, path)
}

// StartSending opens the pump on the sending tank for the given number of
// seconds. The controller stops on its own after the duration, but the
// coordinator still issues an explicit stop.
func (c *Client) StartSending(ctx context.Context, ip string, durationSeconds float64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]float64{"duration": durationSeconds}).
		Post(c.url(ip, "/send-water"))
	if err != nil {
		return fmt.Errorf("failed to start sending on %s: %w", ip, err)
	}
	if resp.IsError() {
		return fmt.Errorf("start sending on %s returned %d", ip, resp.StatusCode())
	}
	return nil
}

// StopSending stops the pump immediately.
func (c *Client) StopSending(ctx context.Context, ip string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Post(c.url(ip, "/stop-water"))
	if err != nil {
		return fmt.Errorf("failed to stop sending on %s: %w", ip, err)
	}
	if resp.IsError() {
		return fmt.Errorf("stop sending on %s returned %d", ip, resp.StatusCode())
	}
	return nil
}

// StartReceiving opens the receiving valve.
func (c *Client) StartReceiving(ctx context.Context, ip string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Post(c.url(ip, "/receive-water"))
	if err != nil {
		return fmt.Errorf("failed to start receiving on %s: %w", ip, err)
	}
	if resp.IsError() {
		return fmt.Errorf("start receiving on %s returned %d", ip, resp.StatusCode())
	}
	return nil
}

// StopReceiving closes the receiving valve.
func (c *Client) StopReceiving(ctx context.Context, ip string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Post(c.url(ip, "/stop-receive-water"))
	if err != nil {
		return fmt.Errorf("failed to stop receiving on %s: %w", ip, err)
	}
	if resp.IsError() {
		return fmt.Errorf("stop receiving on %s returned %d", ip, resp.StatusCode())
	}
	return nil
}

// WaterLevel reads the raw distance from the controller. The controller
// answers with the integer centimeter value as plain text.
func (c *Client) WaterLevel(ctx context.Context, ip string) (int, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.url(ip, "/get-water-level"))
	if err != nil {
		return 0, fmt.Errorf("failed to read water level from %s: %w", ip, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("water level read from %s returned %d", ip, resp.StatusCode())
	}

	level, err := strconv.Atoi(strings.TrimSpace(string(resp.Body())))
	if err != nil {
		return 0, fmt.Errorf("unparseable water level %q from %s: %w", resp.Body(), ip, err)
	}
	return level, nil
}
