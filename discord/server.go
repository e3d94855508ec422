package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/mcsmanager/mcsm_bot/mcsmanager"
)

var serverActions = map[string]mcsmanager.Action{
	"start":   mcsmanager.ActionStart,
	"stop":    mcsmanager.ActionStop,
	"restart": mcsmanager.ActionRestart,
	"kill":    mcsmanager.ActionKill,
}

func (c *DefaultDiscord) cmdServer(ctx context.Context, inv *invocation) {
	if c.panel == nil || !inv.cfg.MCSManager.Enabled() {
		c.replyEmbed(inv, errorEmbed("The MCSManager panel is not configured."), true)
		return
	}

	switch inv.sub {
	case "list":
		if c.deferReply(inv, false) {
			c.editReply(inv, c.serverList(ctx, inv))
		}
	case "status":
		ref, ok := c.lookupInstance(inv)
		if !ok {
			return
		}
		if c.deferReply(inv, false) {
			c.editReply(inv, c.serverStatus(ctx, inv, ref))
		}
	case "start", "stop", "restart", "kill":
		if !c.requireModerator(inv) {
			return
		}
		ref, ok := c.lookupInstance(inv)
		if !ok {
			return
		}
		if c.deferReply(inv, true) {
			c.editReply(inv, c.serverAction(ctx, inv, ref, serverActions[inv.sub]))
		}
	case "command":
		if !c.requireModerator(inv) {
			return
		}
		ref, ok := c.lookupInstance(inv)
		if !ok {
			return
		}
		command := inv.options.String("command")
		if command == "" {
			c.replyEmbed(inv, errorEmbed("A command is required."), true)
			return
		}
		if c.deferReply(inv, true) {
			c.editReply(inv, c.serverCommand(ctx, inv, ref, command))
		}
	default:
		c.replyEmbed(inv, errorEmbed("Unknown subcommand: "+inv.sub), true)
	}
}

func (c *DefaultDiscord) lookupInstance(inv *invocation) (mcsmanager.InstanceRef, bool) {
	name := inv.options.String("name")
	ref, err := inv.cfg.MCSManager.Lookup(name)
	if err != nil {
		c.replyEmbed(inv, errorEmbed(fmt.Sprintf("Unknown instance `%s`.", name)), true)
		return mcsmanager.InstanceRef{}, false
	}
	return ref, true
}

func (c *DefaultDiscord) serverList(ctx context.Context, inv *invocation) *discordgo.MessageEmbed {
	instances := inv.cfg.MCSManager.Instances
	if len(instances) == 0 {
		return errorEmbed("No instances are configured.")
	}

	embed := Embed(ColorDefault, "Instances", "")
	for i, ref := range instances {
		if i == maxEmbedFields {
			break
		}
		value := "unreachable"
		status, err := c.panel.Instance(ctx, ref)
		if err != nil {
			inv.log.WarnW("instance status failed", "instance", ref.Name, "error", err)
		} else {
			value = fmt.Sprintf("%s · %s players", status.State, status.Players())
		}
		embed.Fields = append(embed.Fields, InlineField(ref.Name, value))
	}
	return embed
}

func (c *DefaultDiscord) serverStatus(ctx context.Context, inv *invocation, ref mcsmanager.InstanceRef) *discordgo.MessageEmbed {
	status, err := c.panel.Instance(ctx, ref)
	if err != nil {
		inv.log.WarnW("instance status failed", "instance", ref.Name, "error", err)
		return panelErrorEmbed(err)
	}

	color := ColorWarning
	switch status.State {
	case mcsmanager.StateRunning:
		color = ColorSuccess
	case mcsmanager.StateStopped:
		color = ColorError
	}

	title := ref.Name
	if status.Nickname != "" && !strings.EqualFold(status.Nickname, ref.Name) {
		title = fmt.Sprintf("%s (%s)", ref.Name, status.Nickname)
	}

	embed := Embed(color, title, "",
		InlineField("State", status.State.String()),
		InlineField("Players", status.Players()),
	)
	if status.GameVersion != "" {
		embed.Fields = append(embed.Fields, InlineField("Version", status.GameVersion))
	}
	if status.Started > 0 {
		embed.Fields = append(embed.Fields, InlineField("Starts", strconv.Itoa(status.Started)))
	}
	if !status.EndTime.IsZero() {
		embed.Fields = append(embed.Fields, InlineField("Expires", humanize.Time(status.EndTime)))
	}
	return embed
}

func (c *DefaultDiscord) serverAction(ctx context.Context, inv *invocation, ref mcsmanager.InstanceRef, action mcsmanager.Action) *discordgo.MessageEmbed {
	if err := c.panel.Do(ctx, ref, action); err != nil {
		inv.log.ErrorW("instance action failed", "instance", ref.Name, "action", string(action), "error", err)
		return panelErrorEmbed(err)
	}
	inv.log.InfoW("instance action sent", "instance", ref.Name, "action", string(action))
	return successEmbed("Request sent", fmt.Sprintf("`%s` requested for **%s**.", inv.sub, ref.Name))
}

func (c *DefaultDiscord) serverCommand(ctx context.Context, inv *invocation, ref mcsmanager.InstanceRef, command string) *discordgo.MessageEmbed {
	if err := c.panel.SendCommand(ctx, ref, command); err != nil {
		inv.log.ErrorW("instance command failed", "instance", ref.Name, "error", err)
		return panelErrorEmbed(err)
	}
	inv.log.InfoW("instance command sent", "instance", ref.Name, "command", command)
	return successEmbed("Command sent", fmt.Sprintf("Sent `%s` to **%s**.", command, ref.Name))
}

func panelErrorEmbed(err error) *discordgo.MessageEmbed {
	var apiErr *mcsmanager.APIError
	if errors.As(err, &apiErr) {
		return errorEmbed(fmt.Sprintf("The panel rejected the request (status %d): %s", apiErr.Status, apiErr.Message))
	}
	return errorEmbed("Could not reach the panel: " + err.Error())
}
