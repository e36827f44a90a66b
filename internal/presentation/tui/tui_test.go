package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/triage/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "0.1.0")
	assert.Contains(t, buf.String(), "v0.1.0")
	assert.Contains(t, buf.String(), "/reset")
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer()
	require.NoError(t, err)

	out, err := render("**Summary**: headache for 2 days")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "headache")
}
