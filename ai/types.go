package ai

// EntityTypes defines the valid categories for recognized entities.
// These types are used by entity recognizers to classify mentions.
var EntityTypes = []string{
	"person",
	"organization",
	"place",
	"event",
	"product",
	"work",
	"technology",
	"date",
	"other",
}
