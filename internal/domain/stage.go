package domain

import "fmt"

// Stage is a pipeline stage category.
type Stage string

// Stage categories in pipeline order.
const (
	StageAcquire   Stage = "load"
	StageTransform Stage = "modify"
	StageDecompose Stage = "split"
	StageExtract   Stage = "present"
	StageRefine    Stage = "refine"
	StageAdapt     Stage = "adapt"
)

// Stages lists every stage category in pipeline order.
func Stages() []Stage {
	return []Stage{StageAcquire, StageTransform, StageDecompose, StageExtract, StageRefine, StageAdapt}
}

// ParseStage resolves a stage name. Both the verb namespace ("load") and the
// category name ("acquire") are accepted.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "load", "acquire":
		return StageAcquire, nil
	case "modify", "transform":
		return StageTransform, nil
	case "split", "decompose":
		return StageDecompose, nil
	case "present", "extract":
		return StageExtract, nil
	case "refine":
		return StageRefine, nil
	case "adapt":
		return StageAdapt, nil
	default:
		return "", fmt.Errorf("%w: unknown stage %q", ErrUnknownVerb, s)
	}
}

// FirstMatch reports whether the stage stops at the first matching handler.
func (s Stage) FirstMatch() bool {
	return s == StageAcquire || s == StageAdapt
}

// Filtered reports whether the category filter gates the stage.
func (s Stage) Filtered() bool {
	return s == StageExtract || s == StageRefine
}

// Category is the output category of an extraction or refinement handler.
type Category string

// Output categories.
const (
	CategoryUnset Category = ""
	CategoryText  Category = "text"
	CategoryMedia Category = "media"
	CategoryBoth  Category = "both"
)

// Valid reports whether c is a declared category.
func (c Category) Valid() bool {
	switch c {
	case CategoryText, CategoryMedia, CategoryBoth:
		return true
	}
	return false
}
