package schedule

import "errors"

// Sentinel errors for schedule generation. These are configuration or
// programmer errors: a silently wrong pacing interval could flood or starve
// a campaign, so generation aborts instead of returning a partial plan.
var (
	ErrInvalidDailyCap    = errors.New("daily cap must be positive")
	ErrEmptyActiveWindow  = errors.New("active window must span at least one hour")
	ErrInvalidQuietWindow = errors.New("quiet window hours out of range")
)
