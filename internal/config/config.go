package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	BackendPython = "python"
	BackendGRPC   = "grpc"
)

type Config struct {
	// Application
	Version   string
	SessionID string
	LogLevel  string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Camera
	CameraIndices []int
	FrameWidth    int // 0 keeps the device default
	FrameHeight   int
	MirrorFrame   bool

	// Display
	WindowTitle string
	QuitKey     string
	Headless    bool

	// Emotion analysis
	AnalyzeInterval       time.Duration
	ClassifierBackend     string
	ClassifierTimeout     time.Duration // 0 = wait for the classifier indefinitely
	ClassifierJPEGQuality int

	// Python DeepFace worker
	PythonBin          string
	PythonWorkerScript string

	// Remote classifier over gRPC
	AIGRPCURL    string
	AIGRPCMethod string

	// Preview API (MJPEG + state)
	PreviewEnabled bool
	PreviewPort    int

	// NATS (reading events)
	NatsEnabled        bool
	NatsURL            string
	NatsSubject        string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:   getEnv("VERSION", "1.0.0"),
		SessionID: getEnv("SESSION_ID", defaultSessionID()),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Camera
		CameraIndices: getEnvIntList("CAMERA_INDICES", []int{0, 1, 2}),
		FrameWidth:    getEnvInt("FRAME_WIDTH", 0),
		FrameHeight:   getEnvInt("FRAME_HEIGHT", 0),
		MirrorFrame:   getEnvBool("MIRROR_FRAME", true),

		// Display
		WindowTitle: getEnv("WINDOW_TITLE", "AI Face Emotion HUD"),
		QuitKey:     getEnv("QUIT_KEY", "q"),
		Headless:    getEnvBool("HEADLESS", false),

		// Emotion analysis
		AnalyzeInterval:       getEnvDuration("ANALYZE_INTERVAL", 600*time.Millisecond),
		ClassifierBackend:     strings.ToLower(getEnv("CLASSIFIER_BACKEND", BackendPython)),
		ClassifierTimeout:     getEnvDuration("CLASSIFIER_TIMEOUT", 0),
		ClassifierJPEGQuality: getEnvInt("CLASSIFIER_JPEG_QUALITY", 90),

		// Python DeepFace worker
		PythonBin:          getEnv("PYTHON_BIN", "python3"),
		PythonWorkerScript: getEnv("PYTHON_WORKER_SCRIPT", "python/deepface_worker.py"),

		// Remote classifier over gRPC
		AIGRPCURL:    getEnv("AI_GRPC_URL", "localhost:50052"),
		AIGRPCMethod: getEnv("AI_GRPC_METHOD", "/emotion.EmotionService/Analyze"),

		// Preview API
		PreviewEnabled: getEnvBool("PREVIEW_ENABLED", false),
		PreviewPort:    getEnvInt("PREVIEW_PORT", 8000),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsSubject:        getEnv("NATS_SUBJECT", "emotion.readings"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

// Validate reports the first setting the HUD cannot run with.
func (c *Config) Validate() error {
	if c.AnalyzeInterval <= 0 {
		return fmt.Errorf("ANALYZE_INTERVAL must be positive, got %s", c.AnalyzeInterval)
	}
	if len(c.CameraIndices) == 0 {
		return fmt.Errorf("CAMERA_INDICES must list at least one device index")
	}
	switch c.ClassifierBackend {
	case BackendPython, BackendGRPC:
	default:
		return fmt.Errorf("unsupported CLASSIFIER_BACKEND %q", c.ClassifierBackend)
	}
	if len(c.QuitKey) != 1 || c.QuitKey[0] > 127 {
		return fmt.Errorf("QUIT_KEY must be a single ASCII character, got %q", c.QuitKey)
	}
	if c.ClassifierJPEGQuality < 1 || c.ClassifierJPEGQuality > 100 {
		return fmt.Errorf("CLASSIFIER_JPEG_QUALITY must be within 1..100, got %d", c.ClassifierJPEGQuality)
	}
	if c.ClassifierTimeout < 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must not be negative, got %s", c.ClassifierTimeout)
	}
	return nil
}

// QuitKeyCode is the key code polled from the display to stop the loop.
func (c *Config) QuitKeyCode() int {
	if c.QuitKey == "" {
		return 'q'
	}
	return int(c.QuitKey[0])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntList parses a comma separated list such as "0,1,2".
// Any malformed entry discards the whole value.
func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer list, using default")
			return defaultValue
		}
		out = append(out, parsed)
	}
	return out
}

func defaultSessionID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "hud"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
