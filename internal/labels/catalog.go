// Package labels provisions the fixed label taxonomy into a repository.
package labels

// Definition is one entry of the label catalog.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Color       string `yaml:"color" json:"color"`
	Description string `yaml:"description" json:"description"`
}

// Names that the issue label derivation refers to directly.
const (
	Baseline         = "hacktoberfest"
	Bug              = "bug"
	GoodFirstIssue   = "good first issue"
	DifficultyPrefix = "difficulty:"
	ComponentPrefix  = "component:"
	PriorityPrefix   = "priority:"
)

var catalog = [...]Definition{
	// Difficulty
	{Name: "difficulty:easy", Color: "0e8a16", Description: "Good for newcomers"},
	{Name: "difficulty:medium", Color: "fbca04", Description: "Moderate complexity"},
	{Name: "difficulty:hard", Color: "d93f0b", Description: "Complex implementation required"},

	// Priority
	{Name: "priority:high", Color: "b60205", Description: "High priority issue"},
	{Name: "priority:medium", Color: "fbca04", Description: "Medium priority issue"},
	{Name: "priority:low", Color: "0e8a16", Description: "Low priority issue"},

	// Component
	{Name: "component:testing", Color: "006b75", Description: "Testing related"},
	{Name: "component:core", Color: "1d76db", Description: "Core functionality"},
	{Name: "component:ui", Color: "e99695", Description: "User interface"},
	{Name: "component:store", Color: "f9d0c4", Description: "State management"},
	{Name: "component:service", Color: "fef2c0", Description: "Service layer"},
	{Name: "component:animation", Color: "c2e0c6", Description: "Animation system"},

	// Type
	{Name: "enhancement", Color: "84b6eb", Description: "New feature or improvement"},
	{Name: Bug, Color: "d73a4a", Description: "Something isn't working"},
	{Name: GoodFirstIssue, Color: "7057ff", Description: "Good for newcomers"},
	{Name: Baseline, Color: "ff6b35", Description: "Hacktoberfest eligible"},

	// Utility
	{Name: "accessibility", Color: "0e8a16", Description: "Accessibility improvements"},
	{Name: "performance", Color: "fbca04", Description: "Performance related"},
	{Name: "documentation", Color: "0075ca", Description: "Documentation improvements"},
}

// Catalog returns a copy of the built-in label catalog in declaration order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog[:])
	return out
}
