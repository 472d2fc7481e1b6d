package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"velora/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Backend    BackendConfig    `yaml:"backend"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Booking    BookingConfig    `yaml:"booking"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// BackendConfig points at the hosted data backend that owns all persistence.
type BackendConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 0 = без таймаута
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// BookingConfig carries the business rules of the wizard: travel fee, the
// closed weekday and the time-slot grid of the working day.
type BookingConfig struct {
	TravelFee           float64 `yaml:"travel_fee"`
	ClosedDay           string  `yaml:"closed_day"`
	DayStart            string  `yaml:"day_start"`
	DayEnd              string  `yaml:"day_end"`
	SlotIntervalMinutes int     `yaml:"slot_interval_minutes"`
	MaxBookingDays      int     `yaml:"max_booking_days"`
	SessionTTLSeconds   int     `yaml:"session_ttl_seconds"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ClosedWeekday parses the configured closed day name.
func (b BookingConfig) ClosedWeekday() (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(b.ClosedDay))]
	if !ok {
		return 0, fmt.Errorf("unknown closed_day: %q", b.ClosedDay)
	}
	return day, nil
}

// SessionTTL returns the wizard state TTL as a duration.
func (b BookingConfig) SessionTTL() time.Duration {
	return time.Duration(b.SessionTTLSeconds) * time.Second
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен, переменные могут прийти из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend url is required")
	}
	if c.Backend.APIKey == "" || c.Backend.APIKey == "YOUR_API_KEY_HERE" {
		return errors.New("backend api key is required")
	}

	return ValidateBooking(c.Booking)
}

// ValidateBooking checks that the business-day settings form a usable slot
// grid: parseable bounds, start before end, interval dividing the window.
func ValidateBooking(b BookingConfig) error {
	if b.TravelFee < 0 {
		return fmt.Errorf("travel_fee must not be negative: %v", b.TravelFee)
	}
	if _, err := b.ClosedWeekday(); err != nil {
		return err
	}

	start, err := time.Parse(models.ClockLayout, b.DayStart)
	if err != nil {
		return fmt.Errorf("invalid day_start %q: %w", b.DayStart, err)
	}
	end, err := time.Parse(models.ClockLayout, b.DayEnd)
	if err != nil {
		return fmt.Errorf("invalid day_end %q: %w", b.DayEnd, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("day_start %q must be before day_end %q", b.DayStart, b.DayEnd)
	}

	if b.SlotIntervalMinutes <= 0 {
		return fmt.Errorf("slot_interval_minutes must be positive: %d", b.SlotIntervalMinutes)
	}
	window := int(end.Sub(start).Minutes())
	if window%b.SlotIntervalMinutes != 0 {
		return fmt.Errorf("slot_interval_minutes %d does not divide the working day of %d minutes",
			b.SlotIntervalMinutes, window)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	// Booking defaults (reference salon: Sunday closed, 09:00-17:30, $25 fee)
	if c.Booking.TravelFee == 0 {
		c.Booking.TravelFee = models.DefaultTravelFee
	}
	if c.Booking.ClosedDay == "" {
		c.Booking.ClosedDay = models.DefaultClosedDay
	}
	if c.Booking.DayStart == "" {
		c.Booking.DayStart = models.DefaultDayStart
	}
	if c.Booking.DayEnd == "" {
		c.Booking.DayEnd = models.DefaultDayEnd
	}
	if c.Booking.SlotIntervalMinutes == 0 {
		c.Booking.SlotIntervalMinutes = models.DefaultSlotIntervalMinutes
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.SessionTTLSeconds == 0 {
		c.Booking.SessionTTLSeconds = models.DefaultSessionTTL
	}
}
