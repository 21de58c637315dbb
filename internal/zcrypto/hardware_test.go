package zcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHardwareInfo_ReportsExpectedKeys(t *testing.T) {
	info := HardwareInfo()

	require.Contains(t, info, "aes_hardware_support")
	require.Contains(t, info, "architecture")
	require.Contains(t, info, "goos")
	require.Contains(t, info, "go_version")
	require.Contains(t, info, "preferred_algorithm")
}

func TestPreferredAlgorithm_MatchesHardwareSupport(t *testing.T) {
	if HasAESHardwareSupport() {
		require.Equal(t, AlgorithmAES256GCMSIV, PreferredAlgorithm())
	} else {
		require.Equal(t, AlgorithmChaCha20Poly1305, PreferredAlgorithm())
	}
}
