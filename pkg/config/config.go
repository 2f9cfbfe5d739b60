package config

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

// Tables names the sheets in the spreadsheet and the ranges read from them.
type Tables struct {
	Roster          string
	RosterRange     string
	Attendance      string
	AttendanceRange string
	Outreach        string
	OutreachRange   string
}

// Labels are the header texts used to find columns, plus the literal values
// written to the called column.
type Labels struct {
	Name         string
	AbsenceWeek  string
	Called       string
	CallDate     string
	Notes        string
	CalledYes    string
	CalledNo     string
	PresentValue string
}

type Retry struct {
	MaxAttempts int
	BaseDelay   string
	MaxDelay    string
}

type Config struct {
	ListenAddress     string
	SpreadsheetID     string
	CredentialsFile   string
	CredentialsJSON   string `toml:"-"`
	CacheTTL          string
	RequestsPerMinute int
	Timezone          string
	Tables            Tables
	Labels            Labels
	Retry             Retry
}

type store struct {
	Filename string
	Config   Config
}

// Default returns the configuration of the deployed spreadsheet.
func Default() Config {
	return Config{
		ListenAddress:     ":80",
		CacheTTL:          "5m",
		RequestsPerMinute: 60,
		Timezone:          "UTC",
		Tables: Tables{
			Roster:          "AllUsers",
			RosterRange:     "A:F",
			Attendance:      "الغياب",
			AttendanceRange: "A1:ZZ1000",
			Outreach:        "افتقاد",
			OutreachRange:   "A1:Z1000",
		},
		Labels: Labels{
			Name:         "الاسم",
			AbsenceWeek:  "تاريخ الغياب",
			Called:       "تم الاتصال",
			CallDate:     "تاريخ الاتصال",
			Notes:        "ملاحظات",
			CalledYes:    "نعم",
			CalledNo:     "لا",
			PresentValue: "1",
		},
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelay:   "1s",
			MaxDelay:    "5s",
		},
	}
}

// Write the current config out to a toml file.
func (s *store) Save() error {
	b, err := toml.Marshal(s.Config)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Filename, b, 0644)
}

// Load the current config from a toml file.
func (s *store) Load() error {
	b, err := os.ReadFile(s.Filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, &s.Config)
}

// Load reads filename on top of the defaults, writing the defaults out when
// the file does not exist yet, then applies .env and environment overrides.
// An empty filename skips the file entirely.
func Load(filename string) (Config, error) {
	s := &store{Filename: filename, Config: Default()}
	if filename != "" {
		if err := s.Load(); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, errors.Wrapf(err, "config: load %s", filename)
			}
			if err := s.Save(); err != nil {
				return Config{}, errors.Wrapf(err, "config: save %s", filename)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "config: load .env")
	}
	s.Config.applyEnv()

	if err := s.Config.Validate(); err != nil {
		return Config{}, err
	}
	return s.Config, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.SpreadsheetID, "SPREADSHEET_ID")
	override(&c.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	override(&c.CredentialsJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	override(&c.ListenAddress, "LISTEN_ADDRESS")
	override(&c.Timezone, "TZ_NAME")
}

// Validate checks the values that are parsed lazily by the accessors.
func (c Config) Validate() error {
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return errors.Wrap(err, "config: cache TTL")
	}
	if _, err := time.ParseDuration(c.Retry.BaseDelay); err != nil {
		return errors.Wrap(err, "config: retry base delay")
	}
	if _, err := time.ParseDuration(c.Retry.MaxDelay); err != nil {
		return errors.Wrap(err, "config: retry max delay")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrap(err, "config: timezone")
	}
	return nil
}

func (c Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

func (c Config) RetryDelays() (base, max time.Duration) {
	base, _ = time.ParseDuration(c.Retry.BaseDelay)
	max, _ = time.ParseDuration(c.Retry.MaxDelay)
	return base, max
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RetryPolicy is the default policy with the configured attempts and delays.
func (c Config) RetryPolicy() sheets.RetryPolicy {
	p := sheets.DefaultRetryPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	p.BaseDelay, p.MaxDelay = c.RetryDelays()
	return p
}

func (c Config) Credentials() sheets.Credentials {
	return sheets.Credentials{File: c.CredentialsFile, JSON: []byte(c.CredentialsJSON)}
}
