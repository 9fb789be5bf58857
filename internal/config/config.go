// Package config provides YAML-based configuration loading for Switchyard.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchyard/internal/field"
	"github.com/zulandar/switchyard/internal/models"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// seedNamespace derives stable ids for seeded boards and columns that do
// not name one explicitly.
var seedNamespace = uuid.MustParse("6f1c2a0e-4b7d-5c55-9a1e-737769746368")

// Config is the top-level Switchyard configuration, loaded from config.yaml.
type Config struct {
	Database           DatabaseConfig `yaml:"database"`
	Server             ServerConfig   `yaml:"server"`
	Log                LogConfig      `yaml:"log"`
	Audit              AuditConfig    `yaml:"audit"`
	Notify             NotifyConfig   `yaml:"notify"`
	ValidatorCacheSize int            `yaml:"validator_cache_size"`
	Boards             []BoardConfig  `yaml:"boards"`
}

// DatabaseConfig selects and locates the task store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql (default) or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"` // sqlite file
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// AuditConfig schedules the ordering audit. An empty schedule disables it.
type AuditConfig struct {
	Schedule string `yaml:"schedule"`
	Repair   bool   `yaml:"repair"`
}

// NotifyConfig holds chat destinations for board events.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig holds one platform's credentials and default channel.
type ChatConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// Enabled reports whether the platform is configured.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != ""
}

// BoardConfig seeds a board with its columns, members and fields.
type BoardConfig struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Project string         `yaml:"project"`
	Columns []ColumnConfig `yaml:"columns"`
	Members []MemberConfig `yaml:"members"`
	Fields  []FieldConfig  `yaml:"fields"`
}

// ColumnConfig seeds a column. A nil WipLimit is unlimited.
type ColumnConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	WipLimit *int   `yaml:"wip_limit"`
}

// MemberConfig grants a user a role on the board.
type MemberConfig struct {
	User string `yaml:"user"`
	Role string `yaml:"role"`
}

// FieldConfig seeds a custom field definition.
type FieldConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Config   map[string]any `yaml:"config"`
	Required bool           `yaml:"required"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "switchyard"
	}
	if c.Database.Path == "" {
		c.Database.Path = "switchyard.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.ValidatorCacheSize == 0 {
		c.ValidatorCacheSize = field.DefaultCacheSize
	}
	for i := range c.Boards {
		b := &c.Boards[i]
		if b.ID == "" && b.Name != "" {
			b.ID = seedID(b.Name)
		}
		for j := range b.Columns {
			if b.Columns[j].ID == "" && b.Columns[j].Name != "" {
				b.Columns[j].ID = seedID(b.ID, b.Columns[j].Name)
			}
		}
		for j := range b.Members {
			if b.Members[j].Role == "" {
				b.Members[j].Role = models.RoleMember
			}
		}
		for j := range b.Fields {
			if b.Fields[j].ID == "" && b.Fields[j].Name != "" {
				b.Fields[j].ID = seedID(b.ID, "field", b.Fields[j].Name)
			}
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is not a valid level", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if c.Audit.Schedule != "" {
		if _, err := cron.ParseStandard(c.Audit.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("audit.schedule: %v", err))
		}
	}
	if c.ValidatorCacheSize < 0 {
		errs = append(errs, "validator_cache_size must not be negative")
	}
	boardIDs := make(map[string]bool)
	for i, b := range c.Boards {
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("boards[%d].name is required", i))
		}
		if b.ID != "" && boardIDs[b.ID] {
			errs = append(errs, fmt.Sprintf("boards[%d].id %q is duplicated", i, b.ID))
		}
		boardIDs[b.ID] = true
		errs = append(errs, b.validate(i)...)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (b BoardConfig) validate(i int) []string {
	var errs []string
	if len(b.Columns) == 0 {
		errs = append(errs, fmt.Sprintf("boards[%d] needs at least one column", i))
	}
	names := make(map[string]bool)
	for j, col := range b.Columns {
		if col.Name == "" {
			errs = append(errs, fmt.Sprintf("boards[%d].columns[%d].name is required", i, j))
		}
		if names[col.Name] {
			errs = append(errs, fmt.Sprintf("boards[%d].columns[%d].name %q is duplicated", i, j, col.Name))
		}
		names[col.Name] = true
		if col.WipLimit != nil && *col.WipLimit < 0 {
			errs = append(errs, fmt.Sprintf("boards[%d].columns[%d].wip_limit must not be negative", i, j))
		}
	}
	for j, m := range b.Members {
		if m.User == "" {
			errs = append(errs, fmt.Sprintf("boards[%d].members[%d].user is required", i, j))
		}
		if models.RoleRank(m.Role) == 0 {
			errs = append(errs, fmt.Sprintf("boards[%d].members[%d].role %q is unknown", i, j, m.Role))
		}
	}
	for j, f := range b.Fields {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("boards[%d].fields[%d].name is required", i, j))
		}
		if _, err := field.ParseConfig(field.Type(f.Type), f.Config); err != nil {
			errs = append(errs, fmt.Sprintf("boards[%d].fields[%d]: %v", i, j, err))
		}
	}
	return errs
}

// seedID derives a stable uuid from names.
func seedID(parts ...string) string {
	return uuid.NewSHA1(seedNamespace, []byte(strings.Join(parts, "/"))).String()
}
