package classifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCClient calls a remote emotion service. The request is a BytesValue holding the
// JPEG frame; the reply is a Struct shaped like {"emotion": {...}, "region": {...}}.
type GRPCClient struct {
	endpoint string
	method   string
	dial     func(endpoint string) (*grpc.ClientConn, error)
	now      func() time.Time

	mu   sync.RWMutex
	conn *grpc.ClientConn

	// Retry management
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

// NewGRPCClient creates a client; the connection is opened lazily.
func NewGRPCClient(endpoint, method string) *GRPCClient {
	c := &GRPCClient{
		endpoint:        endpoint,
		method:          method,
		now:             time.Now,
		maxRetryBackoff: 30 * time.Second,
	}
	c.dial = c.dialEndpoint
	return c
}

func (c *GRPCClient) Name() string { return "grpc" }

func (c *GRPCClient) dialEndpoint(endpoint string) (*grpc.ClientConn, error) {
	target, creds, err := parseGRPCEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AI endpoint %s: %w", endpoint, err)
	}

	log.Info().
		Str("original_endpoint", endpoint).
		Str("normalized_endpoint", target).
		Bool("use_tls", creds.Info().SecurityProtocol == "tls").
		Msg("Connecting to emotion gRPC service")

	return grpc.NewClient(target, grpc.WithTransportCredentials(creds))
}

// connect opens the connection if needed and replaces one stuck in a failure state.
func (c *GRPCClient) connect() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		state := c.conn.GetState()
		if state != connectivity.TransientFailure && state != connectivity.Shutdown {
			return c.conn, nil
		}
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.dial(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to emotion service at %s: %w", c.endpoint, err)
	}

	// Health check runs asynchronously so the render loop is not held up by it
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			log.Warn().Err(err).Str("ai_endpoint", c.endpoint).Msg("Initial emotion service health check failed")
			return
		}
		log.Info().
			Str("ai_endpoint", c.endpoint).
			Str("status", resp.GetStatus().String()).
			Msg("Emotion service health check passed")
	}()

	c.conn = conn
	return conn, nil
}

func (c *GRPCClient) Analyze(ctx context.Context, jpeg []byte) (RawResult, error) {
	if !c.shouldRetry() {
		return RawResult{}, errors.New("in backoff period after consecutive failures")
	}

	conn, err := c.connect()
	if err != nil {
		c.recordFailure()
		return RawResult{}, err
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, c.method, wrapperspb.Bytes(jpeg), resp); err != nil {
		c.recordFailure()
		return RawResult{}, fmt.Errorf("inference failed: %w", err)
	}

	c.mu.Lock()
	c.consecutiveFails = 0
	c.mu.Unlock()

	return decodeStruct(resp)
}

// decodeStruct reads the emotion map and the optional region out of the reply.
func decodeStruct(resp *structpb.Struct) (RawResult, error) {
	fields := resp.GetFields()
	if msg := fields["error"].GetStringValue(); msg != "" {
		return RawResult{}, fmt.Errorf("emotion service error: %s", msg)
	}

	emotion := fields["emotion"].GetStructValue()
	if emotion == nil {
		return RawResult{}, errors.New("emotion service returned no emotion scores")
	}

	raw := RawResult{Emotion: make(map[string]float64, len(emotion.GetFields()))}
	for label, v := range emotion.GetFields() {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
			raw.Emotion[label] = v.GetNumberValue()
		}
	}

	if region := fields["region"].GetStructValue(); region != nil {
		rf := region.GetFields()
		raw.Region = &Region{
			X: toInt(rf["x"]),
			Y: toInt(rf["y"]),
			W: toInt(rf["w"]),
			H: toInt(rf["h"]),
		}
	}
	return raw, nil
}

func toInt(v *structpb.Value) int {
	f := v.GetNumberValue()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// IsConnected checks if the connection is usable
func (c *GRPCClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return false
	}
	state := c.conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle || state == connectivity.Connecting
}

// shouldRetry applies exponential backoff: 1s, 2s, 4s, 8s, 16s, 30s (max)
func (c *GRPCClient) shouldRetry() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.consecutiveFails == 0 {
		return true
	}

	backoffDuration := time.Duration(1<<uint(min(c.consecutiveFails-1, 10))) * time.Second
	if backoffDuration > c.maxRetryBackoff {
		backoffDuration = c.maxRetryBackoff
	}

	return c.now().Sub(c.lastFailTime) >= backoffDuration
}

// recordFailure records a failure for backoff calculation
func (c *GRPCClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++
	c.lastFailTime = c.now()

	if c.consecutiveFails <= 5 {
		log.Warn().
			Str("ai_endpoint", c.endpoint).
			Int("consecutive_fails", c.consecutiveFails).
			Msg("Emotion service failure recorded")
	}
}

func (c *GRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	log.Info().Str("ai_endpoint", c.endpoint).Msg("Emotion gRPC connection closed")
	return err
}

// parseGRPCEndpoint parses and normalizes the gRPC endpoint URL
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	// Add scheme if missing
	if !strings.Contains(endpoint, "://") {
		if strings.Contains(endpoint, ".") && !strings.Contains(endpoint, ":") {
			endpoint = "https://" + endpoint + ":443"
		} else if strings.Contains(endpoint, ":") {
			parts := strings.Split(endpoint, ":")
			if len(parts) == 2 {
				if port, err := strconv.Atoi(parts[1]); err == nil {
					if port == 443 || port == 8443 || port == 9443 {
						endpoint = "https://" + endpoint
					} else {
						endpoint = "http://" + endpoint
					}
				} else {
					endpoint = "http://" + endpoint
				}
			}
		} else {
			endpoint = "https://" + endpoint + ":443"
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	// Ensure port is set
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	var creds credentials.TransportCredentials
	switch u.Scheme {
	case "https":
		creds = credentials.NewTLS(&tls.Config{ServerName: u.Hostname()})
	case "http":
		creds = insecure.NewCredentials()
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	return host, creds, nil
}
