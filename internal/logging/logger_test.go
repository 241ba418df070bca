package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesComponentLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "app", Handler: slog.NewTextHandler(&buf, nil)})

	logger.Info("starting")

	assert.Contains(t, buf.String(), "component=app")
}

func TestWithComponentReplacesLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "app", Handler: slog.NewTextHandler(&buf, nil)})

	logger.WithComponent("budgets").Info("cycle rolled")

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, "component="), line)
	assert.Contains(t, line, "component=budgets")
}
