package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewConsoleHandler(&buf, "json", "warn")).Info("hidden")
	assert.Zero(t, buf.Len())

	slog.New(NewConsoleHandler(&buf, "json", "info")).Info("shown", "k", 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])

	buf.Reset()
	slog.New(NewConsoleHandler(&buf, "text", "info")).Info("pretty")
	assert.Contains(t, buf.String(), "pretty")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestDBHandlerPersistsErrors(t *testing.T) {
	db := testutil.NewDB(t)
	var console bytes.Buffer
	h := NewDBHandler(db, slog.NewJSONHandler(&console, nil), time.Hour)

	logger := slog.New(NewMultiHandler(slog.NewJSONHandler(&console, nil), h))
	logger.Info("not stored")
	logger.With("action", "complete_confession").ErrorContext(context.Background(), "karma update failed",
		"user_id", "u1",
		"error", errors.New("locked"),
		"confession_id", "confession:u1:1",
	)
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	got := logs[0]
	assert.Equal(t, "ERROR", got.Level)
	assert.Equal(t, "karma update failed", got.Message)
	assert.Equal(t, "complete_confession", got.Action)
	assert.Equal(t, "locked", got.Error)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "u1", *got.UserID)
	assert.Contains(t, string(got.Extra), "confession:u1:1")
}

func TestPrune(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.AddDate(0, 0, -40), Level: "ERROR"}).Error)
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now, Level: "ERROR"}).Error)

	deleted, err := Prune(db, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	db.Model(&models.SystemLog{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
