// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the casemap home directory.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable annotator prompts
//   - TaxonomyStore: YAML category set
//   - LoadDotEnv: provider secrets from .env files
package file
