package model

// Centralized icons for the UI components
// Using simple single-width characters for consistent terminal rendering
const (
	IconSelected = "●" // Tool selected for the next run
	IconAllowed  = "○" // Tool permitted but not selected
	IconDisabled = "✗" // Tool not permitted at the current level
	IconFile     = "¶" // Downloadable artifact
	IconBusy     = "…" // Waiting on the backend
)
