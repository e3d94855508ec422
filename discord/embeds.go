package discord

import "github.com/bwmarrin/discordgo"

// Embed colors.
const (
	ColorDefault = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorError   = 0xED4245
)

// Embed builds an embed in the bot's palette.
func Embed(color int, title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
	}
}

// Field is a non-inline embed field.
func Field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value}
}

// InlineField is an inline embed field.
func InlineField(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func errorEmbed(msg string) *discordgo.MessageEmbed {
	return Embed(ColorError, "", "❌ "+msg)
}

func successEmbed(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return Embed(ColorSuccess, "✅ "+title, description, fields...)
}
