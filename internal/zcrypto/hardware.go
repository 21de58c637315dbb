package zcrypto

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HasAESHardwareSupport checks if the CPU supports AES hardware acceleration,
// the way the teacher gateway's internal/crypto/hardware.go checks it before
// enabling AES-NI for its S3 object encryption path. Here it drives
// PreferredAlgorithm's choice and HardwareInfo's report; the chunking
// pipeline takes its AEAD algorithm from its caller's configuration.
func HasAESHardwareSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// PreferredAlgorithm picks AES-256-GCM-SIV when hardware AES acceleration is
// available and ChaCha20-Poly1305 otherwise, mirroring the well-known
// trade-off (ChaCha20 is faster without AES-NI/ARMv8 crypto extensions).
func PreferredAlgorithm() Algorithm {
	if HasAESHardwareSupport() {
		return AlgorithmAES256GCMSIV
	}
	return AlgorithmChaCha20Poly1305
}

// HardwareInfo reports the current host's acceleration status as a
// diagnostics map.
func HardwareInfo() map[string]any {
	return map[string]any{
		"aes_hardware_support": HasAESHardwareSupport(),
		"architecture":         runtime.GOARCH,
		"goos":                 runtime.GOOS,
		"go_version":           runtime.Version(),
		"preferred_algorithm":  PreferredAlgorithm().String(),
	}
}
