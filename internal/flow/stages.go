package flow

// Stage identifiers, in unlock order.
const (
	StageLevel0     = "level-0"
	StageLevel1     = "level-1"
	StagePlayground = "playground"
)

// UnlockThreshold is the number of sent messages in a stage that unlocks the
// next one.
const UnlockThreshold = 8

// Stages lists every stage in unlock order.
func Stages() []string {
	return []string{StageLevel0, StageLevel1, StagePlayground}
}

// Unlocked reports whether stage is playable given the user's highest
// unlocked stage.
func Unlocked(stage, maxUnlocked string) bool {
	switch maxUnlocked {
	case StagePlayground:
		return true
	case StageLevel1:
		return stage == StageLevel0 || stage == StageLevel1
	case StageLevel0:
		return stage == StageLevel0
	}
	return false
}

// NextUnlock returns the stage that should become available after enough
// messages were sent in the current one, or the current stage unchanged.
func NextUnlock(current string, sentMessages int) string {
	if sentMessages < UnlockThreshold {
		return current
	}
	switch current {
	case StageLevel0:
		return StageLevel1
	case StageLevel1:
		return StagePlayground
	}
	return current
}
