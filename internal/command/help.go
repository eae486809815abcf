package command

import "strings"

var catalog = []struct {
	name  string
	usage string
	help  string
}{
	{"name", "name <new>", "Rename room"},
	{"lock", "lock", "Lock room"},
	{"unlock", "unlock", "Unlock room"},
	{"hide", "hide", "Hide room"},
	{"unhide", "unhide", "Unhide room"},
	{"transfer", "transfer @user", "Transfer ownership"},
	{"addco", "addco @user", "Add co-owner"},
	{"info", "info", "Show room info"},
	{"close", "close", "Close your room"},
	{"claim", "claim", "Claim a room if owner left"},
	{"reject", "reject @user", "Kick a user from your room"},
	{"commands", "commands", "Show this list"},
}

func isKnown(name string) bool {
	for _, c := range catalog {
		if c.name == name {
			return true
		}
	}
	return false
}

func (r *Router) help() Reply {
	embed := &Embed{Title: "📜 All " + strings.TrimSpace(r.prefix()) + " Commands", Color: ColorCommands}
	for _, c := range catalog {
		embed.Fields = append(embed.Fields, Field{Name: r.prefix() + c.usage, Value: c.help})
	}
	return Reply{Embed: embed}
}

