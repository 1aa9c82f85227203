package model

type CommandType string

const (
	CommandPause      CommandType = "pause"
	CommandRestart    CommandType = "restart"
	CommandRunAccount CommandType = "run_account"
)

const (
	LockReasonAuthFailed = "authentication_failed"
)

const (
	SettingPublishedVersion = "published_version"
)
