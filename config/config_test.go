package config

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "config.toml", `
[nas]
host = "nas.lan"
username = "admin"
password = "secret"
`)
	cfg, err := Load(fs, "config.toml")
	require.NoError(t, err)
	assert.Equal(t, "nas.lan", cfg.NAS.Host)
	assert.True(t, cfg.NAS.UseSSL)
	assert.True(t, cfg.NAS.VerifySSL)
	assert.Equal(t, 5001, cfg.NAS.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInsecurePortDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "config.toml", `
[nas]
host = "nas.lan"
username = "admin"
password = "secret"
use_ssl = false
verify_ssl = false
`)
	cfg, err := Load(fs, "config.toml")
	require.NoError(t, err)
	assert.False(t, cfg.NAS.UseSSL)
	assert.False(t, cfg.NAS.VerifySSL)
	assert.Equal(t, 5000, cfg.NAS.Port)
}

func TestLoadExplicitPort(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "c.toml", `
[nas]
host = "nas.lan"
port = 8443
username = "admin"
password = "secret"
use_ssl = false
`)
	cfg, err := Load(fs, "c.toml")
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.NAS.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "missing.toml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "missing.toml")
}

func TestLoadMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "config.toml", "[nas\nhost=")
	_, err := Load(fs, "config.toml")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestValidateMissingPassword(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "config.toml", `
[nas]
host = "nas.lan"
username = "admin"
`)
	cfg, err := Load(fs, "config.toml")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password", verr.Field)
	assert.Equal(t, "NAS password is required", verr.Error())
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := &Config{NAS: NAS{Port: 5001, VerifySSL: true}}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "NAS host is required")
	assert.Contains(t, msg, "NAS username is required")
	assert.Contains(t, msg, "NAS password is required")
}

func TestValidateCACertNeedsVerification(t *testing.T) {
	cfg := &Config{NAS: NAS{
		Host: "nas", Port: 5001, Username: "u", Password: "p",
		CACert: "/etc/ssl/nas.pem", VerifySSL: false,
	}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ca_cert")
}

func TestApplyEnvironment(t *testing.T) {
	env := map[string]string{PasswordEnv: "from-env"}
	getenv := func(k string) string { return env[k] }

	cfg := &Config{NAS: NAS{Host: "nas", Port: 5001, Username: "u"}}
	cfg.ApplyEnvironment(getenv)
	assert.Equal(t, "from-env", cfg.NAS.Password)

	cfg = &Config{NAS: NAS{Password: "from-file"}}
	cfg.ApplyEnvironment(getenv)
	assert.Equal(t, "from-file", cfg.NAS.Password)
}

func TestClientConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/nas-ca.pem", "-----BEGIN CERTIFICATE-----\n")

	cfg := &Config{NAS: NAS{
		Host: "nas", Port: 5001, Username: "u", Password: "p",
		UseSSL: true, VerifySSL: true, CACert: "/etc/nas-ca.pem", TimeoutSeconds: 30,
	}}
	cc, err := cfg.ClientConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "nas", cc.ApiHost)
	assert.Equal(t, 5001, cc.ApiPort)
	assert.True(t, cc.UseSSL)
	assert.True(t, cc.VerifyTLS)
	assert.Equal(t, 30, cc.TimeoutSeconds)
	assert.Contains(t, cc.CACertPEM, "BEGIN CERTIFICATE")

	cfg.NAS.CACert = "/missing.pem"
	_, err = cfg.ClientConfig(fs)
	assert.Error(t, err)
}
