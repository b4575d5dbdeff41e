package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used by the annotator.
const (
	// PromptClassifySystem instructs the model to classify conservatively.
	// The template expects %s (the category list with definitions) and
	// %s (the default category name).
	PromptClassifySystem = "classify_system"

	// PromptClassifyUser carries the numbered summaries of a mid cluster.
	// The template expects one %s placeholder.
	PromptClassifyUser = "classify_user"

	// PromptNameMid names a mid cluster. The template expects %s (category)
	// and %s (summaries).
	PromptNameMid = "name_mid"

	// PromptNameFine names a fine cluster. The template expects %s (quality
	// hint) and %s (summaries).
	PromptNameFine = "name_fine"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
