package config

import (
	"path/filepath"
	"runtime"
)

var defaultDataDir, defaultSecretFile, defaultRedeemFile = platformDefaults()

// platformDefaults picks sensible install paths per OS. The redeem file
// deliberately lives somewhere the supervised account can write to; the
// data dir deliberately does not.
func platformDefaults() (dataDir, secretFile, redeemFile string) {
	if runtime.GOOS == "windows" {
		dataDir = `C:\ProgramData\kwatch`
		redeemFile = `C:\Users\Public\kwatch_redeem.txt`
	} else {
		dataDir = "/var/lib/kwatch"
		redeemFile = "/var/local/kwatch_redeem.txt"
	}
	secretFile = filepath.Join(dataDir, "secret.key")
	return dataDir, secretFile, redeemFile
}
