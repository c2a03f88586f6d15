package model

import "fmt"

// UsageLevel declares how much generative-AI assistance a submission permits.
type UsageLevel int

const (
	MinLevel UsageLevel = 0
	MaxLevel UsageLevel = 6
)

// LevelInfo is the fixed title/description pair shown for a level.
type LevelInfo struct {
	Level       UsageLevel `json:"level"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
}

var levelCatalog = [...]LevelInfo{
	{0, "Level 0: No use of GenAI",
		"Cadets will create their own, original work without the use of GenAI in any manner."},
	{1, "Level 1: Organizational / Explanatory use",
		"Original work required for submission. GenAI allowed for personal efficiency (summarizing, clarifying) only."},
	{2, "Level 2: Idea generation / Brainstorming",
		"GenAI consulted for initial brainstorming, but cadets must create their own original work. Usage must be acknowledged."},
	{3, "Level 3: Feedback tool on student work",
		"Cadets write independently, then use GenAI for feedback/editing. Revisions must be manual; no AI text in submission."},
	{4, "Level 4: Co-create and/or revise work",
		"GenAI used for drafts/outlines. Cadets must critically evaluate and revise. Submission reflects cadet understanding, not unedited AI."},
	{5, "Level 5: Unrestricted, attributed use",
		"Unedited AI content allowed with clear attribution. Emphasis on transparency."},
	{6, "Level 6: Unrestricted, unattributed use",
		"Freely use GenAI without attribution (unless specified otherwise). Consider ethical/legal implications."},
}

// Valid reports whether l is one of the defined levels.
func (l UsageLevel) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// Info returns the catalog entry for l.
func (l UsageLevel) Info() (LevelInfo, error) {
	if !l.Valid() {
		return LevelInfo{}, fmt.Errorf("usage level %d out of range [%d, %d]", int(l), MinLevel, MaxLevel)
	}
	return levelCatalog[l], nil
}

// Levels returns a copy of the full level catalog in ascending order.
func Levels() []LevelInfo {
	out := make([]LevelInfo, len(levelCatalog))
	copy(out, levelCatalog[:])
	return out
}
