package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"catalog", "--vendor", "Booking.com"})
	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Greater(t, len(lines), 1)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	for _, line := range lines[1:] {
		require.Contains(t, line, " booking ")
	}
	require.Contains(t, buf.String(), "blocks:TARGETED,blocks:PORTFOLIO")
}

func TestSeedRequiresFile(t *testing.T) {
	rootCmd.SetArgs([]string{"seed"})
	require.ErrorContains(t, rootCmd.Execute(), "--file is required")
}
