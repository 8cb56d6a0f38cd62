// Package config loads the NAS connection settings from a TOML file:
//
//	[nas]
//	host = "nas.example.lan"
//	port = 5001          # default 5001 with use_ssl, 5000 without
//	username = "admin"
//	password = "..."
//	use_ssl = true       # default true
//	verify_ssl = true    # default true
//	ca_cert = ""         # optional PEM bundle used to verify the NAS
//	timeout = 90         # optional, seconds
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"gopkg.in/go-playground/validator.v9"

	synology "github.com/scaleoutsean/synology-go"
)

const (
	DefaultPath = "config.toml"

	// PasswordEnv fills in an empty password so it can be kept out of the file.
	PasswordEnv = "SYNOLOGY_PASSWORD"
)

// ErrNotFound is returned by Load when the file does not exist.
var ErrNotFound = errors.New("config file not found")

type Config struct {
	NAS NAS `toml:"nas"`
}

type NAS struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"min=1,max=65535"`
	Username string `toml:"username" validate:"required"`
	Password string `toml:"password" validate:"required"`

	UseSSL    bool   `toml:"use_ssl"`
	VerifySSL bool   `toml:"verify_ssl"`
	CACert    string `toml:"ca_cert"`

	TimeoutSeconds int `toml:"timeout" validate:"min=0"`
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("NAS %s %s", e.Field, e.Reason)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Load reads path from fs and applies defaults. It does not validate.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.WithField("key", key.String()).Warn("Ignoring unknown config key.")
	}

	if !md.IsDefined("nas", "use_ssl") {
		cfg.NAS.UseSSL = true
	}
	if !md.IsDefined("nas", "verify_ssl") {
		cfg.NAS.VerifySSL = true
	}
	if !md.IsDefined("nas", "port") {
		cfg.NAS.Port = synology.DefaultHTTPSPort
		if !cfg.NAS.UseSSL {
			cfg.NAS.Port = synology.DefaultHTTPPort
		}
	}
	return &cfg, nil
}

// ApplyEnvironment fills settings left empty in the file from getenv.
func (c *Config) ApplyEnvironment(getenv func(string) string) {
	if c.NAS.Password == "" {
		c.NAS.Password = getenv(PasswordEnv)
	}
}

// Validate reports every invalid setting, host first, then username, then
// password.
func (c *Config) Validate() error {
	var errs error
	if err := validate.Struct(c.NAS); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = multierr.Append(errs, &ValidationError{Field: fe.Field(), Reason: reason(fe)})
		}
	}
	if c.NAS.CACert != "" && !c.NAS.VerifySSL {
		errs = multierr.Append(errs, &ValidationError{
			Field:  "ca_cert",
			Reason: "cannot be combined with verify_ssl = false",
		})
	}
	return errs
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

// ClientConfig converts the settings for synology.NewAPIClient, reading the CA
// bundle from fs when one is configured.
func (c *Config) ClientConfig(fs afero.Fs) (synology.ClientConfig, error) {
	cc := synology.ClientConfig{
		ApiHost:        c.NAS.Host,
		ApiPort:        c.NAS.Port,
		UseSSL:         c.NAS.UseSSL,
		VerifyTLS:      c.NAS.VerifySSL,
		TimeoutSeconds: c.NAS.TimeoutSeconds,
	}
	if c.NAS.CACert != "" {
		pem, err := afero.ReadFile(fs, c.NAS.CACert)
		if err != nil {
			return cc, fmt.Errorf("could not read CA certificate: %w", err)
		}
		cc.CACertPEM = string(pem)
	}
	return cc, nil
}
