package annotator

// Fallback prompts used when no prompt store is configured. The file store
// ships richer defaults.
const (
	defaultClassifySystem = `Classify the cluster of court case summaries into at most two of these categories, or '%[2]s' if none apply. Be conservative.

%[1]s

Return strict JSON: {"categories": [...], "primary": "...", "secondary": null, "confidence": 0.0, "rationale": "..."}.`

	defaultClassifyUser = `SUMMARIES:
%s`

	defaultNameMid = `Give a concise name (2-5 words) for this cluster of court cases classified as %s. Reply with the name only.

%s

Cluster name:`

	defaultNameFine = `Give a concise name (2-5 words) for this cluster of court cases. %s Reply with the name only.

%s

Cluster name:`
)
