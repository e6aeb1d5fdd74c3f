package views

// ViewLoaded is a custom vaxis event posted when a view finishes loading data.
// It is sent from background goroutines via PostEvent to notify the UI.
type ViewLoaded struct {
	Tab int
	Err error
}

// ViewUpdated is posted when a view changed outside a load started by the
// app: a page or sort change finished, a row lookup resolved, a row action
// completed or a bus event was applied.
type ViewUpdated struct{}
