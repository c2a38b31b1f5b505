package models

// RuntimeAnchor is the sole persisted entity of the keep-warm protocol.
// A non-nil StartTS means the protocol was armed at that instant; nil means
// not armed. Persisted schema: {"start_ts": <ISO-8601 UTC string or null>}.
type RuntimeAnchor struct {
	StartTS *string `json:"start_ts"`
}

// Armed reports whether the anchor marks an armed protocol.
func (a RuntimeAnchor) Armed() bool {
	return a.StartTS != nil
}
