package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const envPrefix = "ENCUESTAS_"

// Drivers accepted by -db-driver.
var Drivers = []string{"sqlite3", "sqlite", "postgres", "pgx", "sqlserver"}

type Config struct {
	Addr           string
	DBDriver       string
	DBUrl          string
	SurveyShape    string
	SurveyProc     string
	SummaryProc    string
	ResponsesTable string
	Migrate        bool
	CORSOrigin     string
	Diagnostics    bool
	DiagSecret     string
	CallTimeout    time.Duration
	Debug          bool
}

// ParseFlags reads the configuration from args. Every flag falls back to an
// ENCUESTAS_<NAME> environment variable; a .env file in the working directory
// is loaded first when present.
func ParseFlags(args []string) (cfg Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	fs := flag.NewFlagSet("encuestas", flag.ContinueOnError)
	var envErrs *multierror.Error
	envUint := func(key string, def uint) uint {
		v, err := parseEnvUint(key, def)
		envErrs = multierror.Append(envErrs, err)
		return v
	}
	envBool := func(key string, def bool) bool {
		v, err := parseEnvBool(key, def)
		envErrs = multierror.Append(envErrs, err)
		return v
	}

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("PORT", 5088), "listen port number")
	fs.StringVar(&cfg.DBDriver, "db-driver", env("DB_DRIVER", "sqlite3"), "database driver: "+strings.Join(Drivers, ", "))
	fs.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "encuestas.sqlite"), "database DSN, or SQLite file path")
	fs.StringVar(&cfg.SurveyShape, "survey-shape", env("SURVEY_SHAPE", "flat"), "result shape of the survey procedure: flat or json")
	fs.StringVar(&cfg.SurveyProc, "survey-proc", env("SURVEY_PROC", "sp_ObtenerEncuestaPorTipo"), "stored procedure returning a survey by type")
	fs.StringVar(&cfg.SummaryProc, "summary-proc", env("SUMMARY_PROC", "sp_ResumenEncuestaJson"), "stored procedure returning the results summary")
	fs.StringVar(&cfg.ResponsesTable, "responses-table", env("RESPONSES_TABLE", "RespuestasUsuario"), "table receiving submitted responses")
	fs.BoolVar(&cfg.Migrate, "migrate", envBool("MIGRATE", true), "apply the bundled schema (sqlite drivers only)")
	fs.StringVar(&cfg.CORSOrigin, "cors-origin", env("CORS_ORIGIN", "*"), "allowed CORS origin")
	fs.BoolVar(&cfg.Diagnostics, "diagnostics", envBool("DIAGNOSTICS", false), "expose /api/diagnostico endpoints")
	fs.StringVar(&cfg.DiagSecret, "diag-secret", env("DIAG_SECRET", ""), "HS256 secret required as bearer token on diagnostic endpoints")
	var timeout uint
	fs.UintVar(&timeout, "call-timeout", envUint("CALL_TIMEOUT", 15), "timeout of a single database call in seconds (0 disables)")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG", false), "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return cfg, err
	}
	// a flag given on the command line overrides a bad variable
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err = envErrs.ErrorOrNil(); err != nil {
		var remaining *multierror.Error
		for _, e := range envErrs.WrappedErrors() {
			var ve *envVarError
			if errors.As(e, &ve) && set[ve.flag] {
				continue
			}
			remaining = multierror.Append(remaining, e)
		}
		if err = remaining.ErrorOrNil(); err != nil {
			return cfg, err
		}
	}

	if port == 0 || port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", port)
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.CallTimeout = time.Duration(timeout) * time.Second

	if !validDriver(cfg.DBDriver) {
		return cfg, fmt.Errorf("unknown -db-driver %q", cfg.DBDriver)
	}
	if cfg.SurveyShape != "flat" && cfg.SurveyShape != "json" {
		return cfg, fmt.Errorf("unknown -survey-shape %q", cfg.SurveyShape)
	}
	if cfg.DBUrl == "" {
		return cfg, errors.New("missing parameter -db-url")
	}

	return cfg, nil
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

// SQLite reports whether the configured driver is one of the embedded SQLite drivers.
func (cfg Config) SQLite() bool {
	return cfg.DBDriver == "sqlite3" || cfg.DBDriver == "sqlite"
}

func validDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return v
	}
	return def
}

type envVarError struct {
	flag string
	name string
	err  error
}

func (e *envVarError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.name, e.err)
}

func (e *envVarError) Unwrap() error {
	return e.err
}

// flagName maps an env key such as CALL_TIMEOUT to its flag, call-timeout.
func flagName(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

func parseEnvUint(key string, def uint) (uint, error) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return def, &envVarError{flag: flagName(key), name: envPrefix + key, err: err}
	}
	return uint(v), nil
}

func parseEnvBool(key string, def bool) (bool, error) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def, &envVarError{flag: flagName(key), name: envPrefix + key, err: err}
	}
	return v, nil
}
