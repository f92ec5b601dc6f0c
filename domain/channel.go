package domain

// ChannelID names a broadcast group. Two kinds exist: one channel per
// project and one channel per user.
type ChannelID string

func ProjectChannel(projectID string) ChannelID {
	return ChannelID("project:" + projectID)
}

func UserChannel(userID string) ChannelID {
	return ChannelID("user:" + userID)
}
