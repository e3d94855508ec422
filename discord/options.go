package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// splitOptions returns the sub-command name, if any, and the options that
// belong to it.
func splitOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, options) {
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return opts[0].Name, newOptions(opts[0].Options)
	}
	return "", newOptions(opts)
}

func newOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

// String returns a string, user or channel option; user and channel values
// are snowflake ids.
func (o options) String(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	s, _ := opt.Value.(string)
	return strings.TrimSpace(s)
}

// Int returns an integer option or zero when missing.
func (o options) Int(name string) int {
	opt, ok := o[name]
	if !ok {
		return 0
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
