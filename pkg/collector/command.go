package collector

import "strings"

// Command identifies one collection pipeline
type Command int

const (
	CmdCaptions Command = iota
	CmdComments
	CmdFollowers
	CmdFollowersSubset
	CmdFollowings
	CmdFollowingsSubset
	CmdHashtags
	CmdHighlights
	CmdInfo
	CmdInfoList
	CmdLikers
	CmdLikes
	CmdLocations
	CmdPosts
	CmdPostsData
	CmdPostsTagged
	CmdPostsTaggedData
	CmdProfilePic
	CmdStories
	CmdTagged
	CmdTaggedTarget
	CmdTaggedWith
	CmdTarget
	CmdViewcount

	numCommands
)

var commandInfo = [numCommands]struct {
	name string
	desc string
}{
	CmdCaptions:         {"captions", "Get the caption of target's posts"},
	CmdComments:         {"comments", "Get the comments on target's posts"},
	CmdFollowers:        {"followers", "List target's followers"},
	CmdFollowersSubset:  {"followers-subset", "Find common followers between target and target2"},
	CmdFollowings:       {"followings", "List target's followings"},
	CmdFollowingsSubset: {"followings-subset", "Find common followings between target and target2"},
	CmdHashtags:         {"hashtags", "Get hashtags on target's posts"},
	CmdHighlights:       {"highlights", "Download target's highlights"},
	CmdInfo:             {"info", "Get target info"},
	CmdInfoList:         {"info-list", "Get user infos from an exported .json file (JSON only)"},
	CmdLikers:           {"likers", "Get likers on target's posts"},
	CmdLikes:            {"likes", "Get like data on target's posts"},
	CmdLocations:        {"locations", "Get tagged locations on target's posts"},
	CmdPosts:            {"posts", "Download target's posts"},
	CmdPostsData:        {"posts-data", "Save target's posts data (JSON only)"},
	CmdPostsTagged:      {"posts-tagged", "Download posts where the target is tagged"},
	CmdPostsTaggedData:  {"posts-tagged-data", "Save target's tagged posts data (JSON only)"},
	CmdProfilePic:       {"profile-pic", "Download target's profile picture"},
	CmdStories:          {"stories", "Download target's stories"},
	CmdTagged:           {"tagged", "Get tagged users on target's posts"},
	CmdTaggedTarget:     {"tagged-target", "Get users that tagged target"},
	CmdTaggedWith:       {"tagged-with", "Get users who are tagged on the same posts as target"},
	CmdTarget:           {"target", "Change target"},
	CmdViewcount:        {"viewcount", "Get target's viewcount"},
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, numCommands)
	for i := Command(0); i < numCommands; i++ {
		m[commandInfo[i].name] = i
	}
	return m
}()

// String returns the shell name of the command
func (c Command) String() string {
	if c < 0 || c >= numCommands {
		return "unknown"
	}
	return commandInfo[c].name
}

// Description returns the help text of the command
func (c Command) Description() string {
	if c < 0 || c >= numCommands {
		return ""
	}
	return commandInfo[c].desc
}

// ParseCommand looks up a command by name, ignoring case and surrounding
// whitespace
func ParseCommand(s string) (Command, bool) {
	c, ok := commandsByName[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// Commands returns every command in alphabetical order
func Commands() []Command {
	out := make([]Command, numCommands)
	for i := range out {
		out[i] = Command(i)
	}
	return out
}
