package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/salesiq/backend/internal/infrastructure/config"
	infralog "github.com/salesiq/backend/internal/infrastructure/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testHTTPConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "salesiq-backend", Env: "development", Port: "8080"},
		HTTP: config.HTTPConfig{MaxBodySize: 1 << 20},
	}
}

func TestBuildEngineStampsRequestIDOnLogs(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	engine := buildEngine(testHTTPConfig(), log)

	var ctxRequestID string
	engine.GET("/health", func(c *gin.Context) {
		ctxRequestID = infralog.GetRequestID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// RequestID runs ahead of the request logger, so both the response
	// header and the log entry carry the same generated id.
	headerID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, headerID)
	assert.Equal(t, headerID, ctxRequestID)

	logs := recorded.All()
	require.NotEmpty(t, logs)

	var loggedID string
	for _, entry := range logs {
		for _, f := range entry.Context {
			if f.Key == "request_id" {
				loggedID = f.String
			}
		}
	}
	assert.Equal(t, headerID, loggedID)
}

func TestBuildEngineHonoursInboundRequestID(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	engine := buildEngine(testHTTPConfig(), zap.New(core))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "inbound-77")
	engine.ServeHTTP(w, req)

	assert.Equal(t, "inbound-77", w.Header().Get("X-Request-ID"))
}
