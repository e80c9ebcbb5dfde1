package logx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init swaps the package-global logger, so these tests stay sequential.

func TestInitDefaultsToInfo(t *testing.T) {
	Init()

	if got := log.Logger.GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("GetLevel() = %v, want %v", got, zerolog.InfoLevel)
	}
}

func TestInitDebugLowersLevel(t *testing.T) {
	Init(Config{Debug: true})

	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("GetLevel() = %v, want %v", got, zerolog.DebugLevel)
	}

	Init(Config{})
	if got := log.Logger.GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("GetLevel() after reset = %v, want %v", got, zerolog.InfoLevel)
	}
}

func TestInitPrettyFormatStillLogs(t *testing.T) {
	Init(Config{PrettyFormat: true, Debug: true})

	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("GetLevel() = %v, want %v", got, zerolog.DebugLevel)
	}
}
