// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ServerAddr      string
	MaxBodyBytes    int64    // bytes for /telemetry payload
	Outputs         []string // enabled alert sinks: log, kafka, postgres
	AlertScoreFloor float64  // emit an alert when the anomaly score reaches this

	// Default analyzer tuning for sessions initialized without an explicit
	// threshold configuration.
	MouseVelocityThreshold     float64
	KeystrokeIntervalThreshold float64
	GazeAttentionThreshold     float64
	TimePatternThreshold       float64
	MouseWeight                float64
	KeystrokeWeight            float64
	GazeWeight                 float64
	TimeWeight                 float64
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getStringSlice(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func Load() Config {
	return Config{
		ServerAddr:      getOr("SERVER_ADDR", ":18490"),
		MaxBodyBytes:    getInt64("MAX_BODY_BYTES", 1<<20), // 1 MiB default
		Outputs:         getStringSlice("OUTPUTS", "log"),  // default to log only
		AlertScoreFloor: getFloat("ALERT_SCORE_FLOOR", 60),

		MouseVelocityThreshold:     getFloat("MOUSE_VELOCITY_THRESHOLD", 250000),
		KeystrokeIntervalThreshold: getFloat("KEYSTROKE_INTERVAL_THRESHOLD", 10),
		GazeAttentionThreshold:     getFloat("GAZE_ATTENTION_THRESHOLD", 0.6),
		TimePatternThreshold:       getFloat("TIME_PATTERN_THRESHOLD", 1e9),
		MouseWeight:                getFloat("MOUSE_WEIGHT", 1),
		KeystrokeWeight:            getFloat("KEYSTROKE_WEIGHT", 1),
		GazeWeight:                 getFloat("GAZE_WEIGHT", 1),
		TimeWeight:                 getFloat("TIME_WEIGHT", 1),
	}
}
