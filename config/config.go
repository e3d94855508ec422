package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mcsmanager/mcsm_bot/clock"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/mclogs"
	"github.com/mcsmanager/mcsm_bot/mcsmanager"
	"github.com/mcsmanager/mcsm_bot/store"
	"go.uber.org/config"
)

// Version is the bot release, substituted into the activity text.
const Version = "1.0.2"

// DiscordConfig holds Discord-specific configuration.
type DiscordConfig struct {
	Token    string `yaml:"token"`
	GuildID  string `yaml:"guild_id"`
	Activity string `yaml:"activity"`
	Status   string `yaml:"status"`
}

// RolesConfig lists the role ids allowed to run moderator commands.
type RolesConfig struct {
	Moderators []string `yaml:"moderators"`
}

// FAQEntry is one question posted by /sendfaq.
type FAQEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// FAQConfig points /faq at the FAQ channel.
type FAQConfig struct {
	ChannelID string     `yaml:"channel_id"`
	Entries   []FAQEntry `yaml:"entries"`
}

// ForumsConfig identifies the help forums and the suggestion forum.
// Only the help forums take part in closing and inactivity checks.
type ForumsConfig struct {
	BugReportForumID  string `yaml:"bug_report_forum_id"`
	SupportForumID    string `yaml:"support_forum_id"`
	SuggestionForumID string `yaml:"suggestion_forum_id"`
	ClosedTag         string `yaml:"closed_tag"`

	// Greeting posted in every new thread of the forum.
	BugReportWelcome string `yaml:"bug_report_welcome"`
	SupportWelcome   string `yaml:"support_welcome"`
}

// Forum pairs a help forum channel id with its display name.
type Forum struct {
	ID      string
	Name    string
	Welcome string
}

// List returns the configured help forums in a stable order, skipping blanks.
func (f ForumsConfig) List() []Forum {
	var out []Forum
	if f.BugReportForumID != "" {
		out = append(out, Forum{ID: f.BugReportForumID, Name: "Bug Report", Welcome: f.BugReportWelcome})
	}
	if f.SupportForumID != "" {
		out = append(out, Forum{ID: f.SupportForumID, Name: "Support", Welcome: f.SupportWelcome})
	}
	return out
}

// Lookup returns the help forum with the given id.
func (f ForumsConfig) Lookup(id string) (Forum, bool) {
	for _, forum := range f.List() {
		if forum.ID == id {
			return forum, true
		}
	}
	return Forum{}, false
}

// Name returns the display name of the forum with the given id.
func (f ForumsConfig) Name(id string) (string, bool) {
	forum, ok := f.Lookup(id)
	return forum.Name, ok
}

// InactivityConfig drives the daily forum inactivity checker.
type InactivityConfig struct {
	Disabled          bool   `yaml:"disabled"`
	ReminderAfterDays int    `yaml:"reminder_after_days"`
	CloseAfterDays    int    `yaml:"close_after_days"`
	RunHour           int    `yaml:"run_hour"`
	Timezone          string `yaml:"timezone"`
	HistoryLimit      int    `yaml:"history_limit"`
}

// ShortcutsConfig points at the legacy JSON shortcut file.
type ShortcutsConfig struct {
	ImportPath string `yaml:"import_path"`
}

// AppConfig holds all application configuration.
type AppConfig struct {
	Logger     logger.Config     `yaml:"logger"`
	Discord    DiscordConfig     `yaml:"discord"`
	Roles      RolesConfig       `yaml:"roles"`
	FAQ        FAQConfig         `yaml:"faq"`
	Forums     ForumsConfig      `yaml:"forums"`
	Inactivity InactivityConfig  `yaml:"inactivity"`
	MCSManager mcsmanager.Config `yaml:"mcsmanager"`
	LogUpload  mclogs.Config     `yaml:"logupload"`
	Store      store.Config      `yaml:"store"`
	Shortcuts  ShortcutsConfig   `yaml:"shortcuts"`
	Clock      clock.Config      `yaml:"clock"`
}

// IsModerator reports whether any of roleIDs is a configured moderator role.
func (c *AppConfig) IsModerator(roleIDs []string) bool {
	for _, id := range roleIDs {
		for _, mod := range c.Roles.Moderators {
			if id == mod {
				return true
			}
		}
	}
	return false
}

// ActivityText renders the activity with the {Version} placeholder filled in.
func (c *AppConfig) ActivityText() string {
	return strings.ReplaceAll(c.Discord.Activity, "{Version}", Version)
}

// Load reads configuration from the specified YAML files.
// Files are merged in order, with later files overriding earlier ones.
// Missing files are silently ignored. Values are taken literally, so FAQ
// text may contain shell snippets like $JAVA_HOME; secrets come from
// secrets.yaml or the environment overrides in applyEnv.
func Load(files ...string) (*AppConfig, error) {
	opts := make([]config.YAMLOption, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			opts = append(opts, config.File(f))
		}
	}

	if len(opts) == 0 {
		return nil, os.ErrNotExist
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration, applies environment overrides and
// fills in defaults.
func LoadWithDefaults(files ...string) (*AppConfig, error) {
	cfg, err := Load(files...)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)
	cfg.Defaults()
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("DISCORD_TOKEN")); v != "" {
		cfg.Discord.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("DISCORD_GUILD_ID")); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := strings.TrimSpace(os.Getenv("MCSM_API_KEY")); v != "" {
		cfg.MCSManager.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("MCSM_BASE_URL")); v != "" {
		cfg.MCSManager.BaseURL = v
	}
}

// Defaults fills unset fields.
func (c *AppConfig) Defaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if len(c.Logger.OutputPaths) == 0 {
		c.Logger.OutputPaths = []string{"stdout"}
	}
	if c.Discord.Activity == "" {
		c.Discord.Activity = "MCSManager | v{Version}"
	}
	if c.Discord.Status == "" {
		c.Discord.Status = "online"
	}
	if c.Forums.ClosedTag == "" {
		c.Forums.ClosedTag = "closed"
	}
	if c.Forums.BugReportWelcome == "" {
		c.Forums.BugReportWelcome = "Thanks for the report! Please include your MCSManager version, " +
			"your operating system and the steps to reproduce the problem. " +
			"Attach log files and they will be uploaded for you."
	}
	if c.Forums.SupportWelcome == "" {
		c.Forums.SupportWelcome = "Thanks for reaching out! Describe what you tried and attach any logs; " +
			"a helper will be with you soon. Use `/close` once your issue is solved."
	}

	// Inactivity defaults
	if c.Inactivity.ReminderAfterDays <= 0 {
		c.Inactivity.ReminderAfterDays = 7
	}
	if c.Inactivity.CloseAfterDays <= 0 {
		c.Inactivity.CloseAfterDays = 30
	}
	if c.Inactivity.RunHour <= 0 || c.Inactivity.RunHour > 23 {
		c.Inactivity.RunHour = 12
	}
	if c.Inactivity.Timezone == "" {
		c.Inactivity.Timezone = "UTC"
	}
	if c.Inactivity.HistoryLimit <= 0 || c.Inactivity.HistoryLimit > 100 {
		c.Inactivity.HistoryLimit = 100
	}

	if c.MCSManager.UserAgent == "" {
		c.MCSManager.UserAgent = "mcsm-bot/" + Version
	}
	c.MCSManager.Defaults()
	c.LogUpload.Defaults()

	if c.Store.Path == "" {
		c.Store.Path = "data/mcsm_bot.db"
	}
	if c.Clock.NTPInterval <= 0 {
		c.Clock.NTPInterval = 30 * time.Minute
	}
}

// Validate reports configuration that would prevent the bot from starting.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN environment variable or discord.token config required"))
	}
	if c.Discord.GuildID == "" {
		errs = append(errs, errors.New("DISCORD_GUILD_ID environment variable or discord.guild_id config required"))
	}
	if c.MCSManager.BaseURL != "" {
		u, err := url.Parse(c.MCSManager.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("mcsmanager.base_url %q is not an absolute URL", c.MCSManager.BaseURL))
		}
	}
	if c.Inactivity.ReminderAfterDays >= c.Inactivity.CloseAfterDays {
		errs = append(errs, fmt.Errorf("inactivity.reminder_after_days (%d) must be below close_after_days (%d)",
			c.Inactivity.ReminderAfterDays, c.Inactivity.CloseAfterDays))
	}
	seen := make(map[string]struct{}, len(c.MCSManager.Instances))
	for _, inst := range c.MCSManager.Instances {
		key := strings.ToLower(inst.Name)
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("mcsmanager.instances: duplicate name %q", inst.Name))
		}
		seen[key] = struct{}{}
	}
	return errors.Join(errs...)
}
