package events

// Started is raised once the plugin is loaded and the snapshot download begins
type Started struct {
	Base
	SnapshotURL string
	Plugin      string
}

func NewStartedEvent(executionId, snapshotURL, plugin string) *Started {
	return &Started{
		Base:        Base{ExecutionId: executionId},
		SnapshotURL: snapshotURL,
		Plugin:      plugin,
	}
}
