package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptClassifySystem: `You are a precise legal-tech classifier. Assign each CLUSTER (a group of case summaries) to one or more categories from the taxonomy, or '%[2]s' if none apply.
Be conservative: do NOT assign AI-related categories unless AI is CENTRAL to the dispute or decision. Return strict JSON only.

Allowed categories and definitions:
%[1]s

Output (strict JSON only): {"categories": [<=2 categories], "primary": <one category>, "secondary": <category or null>, "confidence": number between 0 and 1, "rationale": short string}.
The 'primary' must be one of 'categories'. If only one category applies, set 'secondary' to null.`,

	driven.PromptClassifyUser: `You will classify a CLUSTER of U.S. case SUMMARIES using the taxonomy above.
- Select one or two categories that best capture the dominant themes across the summaries (AT MOST 2).
- Choose one 'primary' category as the dominant theme and, if needed, a 'secondary' (or null if none).
- Keep the rationale concise and cluster-wide; do not list individual cases.

SUMMARIES (each item is one case in the cluster):
%s`,

	driven.PromptNameMid: `Given these court case summaries from the same cluster, classified as %s, provide a concise cluster name (2-5 words) that captures the common theme.
Reply with the name only, without quotes or the category.

%s

Cluster name:`,

	driven.PromptNameFine: `Given these court case summaries from the same sub-cluster, provide a concise cluster name (2-5 words) that captures the common theme. %s
Reply with the name only, without quotes.

%s

Cluster name:`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to the prompts directory under HomeDir().
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := HomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Casemap Prompts

This directory contains the prompts used to classify and name clusters.

## Files

- ` + "`classify_system.txt`" + ` - Taxonomy and output format for category classification
- ` + "`classify_user.txt`" + ` - Numbered summaries of one mid cluster
- ` + "`name_mid.txt`" + ` - Names a mid cluster given its category
- ` + "`name_fine.txt`" + ` - Names a fine cluster given a quality hint

## Customisation

Edit any file to change annotator behaviour. Changes take effect on the next run.

## Format Placeholders

Prompts use Go fmt placeholders:
- ` + "`classify_system`" + `: ` + "`%[1]s`" + ` category list, ` + "`%[2]s`" + ` default category
- ` + "`classify_user`" + `: ` + "`%s`" + ` summaries
- ` + "`name_mid`" + `: ` + "`%s`" + ` category, then ` + "`%s`" + ` summaries
- ` + "`name_fine`" + `: ` + "`%s`" + ` quality hint, then ` + "`%s`" + ` summaries

Keep the placeholders when editing.
`
	return os.WriteFile(path, []byte(content), 0600)
}
