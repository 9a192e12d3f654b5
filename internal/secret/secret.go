// Package secret loads the shared symmetric key used to sign and verify
// redeem codes. The key is read once at startup. A missing or malformed
// key file is not fatal: it degrades code verification to "always
// reject" while time tracking continues.
package secret

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Secret is the shared signing key. An empty secret means "cannot verify".
type Secret []byte

// Empty reports whether no usable key was loaded.
func (s Secret) Empty() bool {
	return len(s) == 0
}

// Load reads the hex-encoded key from path. Any failure returns an empty
// secret; the error is logged, never propagated.
func Load(path string, logger zerolog.Logger) Secret {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("Failed to read secret file, redeem codes will be rejected")
		return nil
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("Secret file is not valid hex, redeem codes will be rejected")
		return nil
	}

	if len(key) == 0 {
		logger.Warn().Str("path", path).
			Msg("Secret file is empty, redeem codes will be rejected")
		return nil
	}

	return Secret(key)
}
