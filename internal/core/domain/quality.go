package domain

// QualityTier is the qualitative coherence rating of a fine cluster.
type QualityTier string

// Available quality tiers.
const (
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// String returns the string representation.
func (t QualityTier) String() string {
	return string(t)
}

// IsValid returns true if the tier is recognised.
func (t QualityTier) IsValid() bool {
	switch t {
	case QualityHigh, QualityMedium, QualityLow:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the tier.
func (t QualityTier) Description() string {
	switch t {
	case QualityHigh:
		return "High (dense, little noise)"
	case QualityMedium:
		return "Medium (partly dense)"
	case QualityLow:
		return "Low (mostly noise)"
	default:
		return unknownDescription
	}
}

// AllQualityTiers returns the tiers from best to worst.
func AllQualityTiers() []QualityTier {
	return []QualityTier{QualityHigh, QualityMedium, QualityLow}
}

// ClusterQuality is the coherence rating of one fine cluster, derived by
// cross-referencing its points against the density clusterer.
type ClusterQuality struct {
	Tier        QualityTier `json:"tier"`
	Score       float64     `json:"score"`
	NoiseRatio  float64     `json:"noise_ratio"`
	Subclusters int         `json:"n_subclusters"`
	Size        int         `json:"size"`
}

// QualitySettings holds the tier thresholds.
// The defaults reproduce historical results and should only change deliberately.
type QualitySettings struct {
	// HighNoise is the exclusive noise-ratio bound for the high tier.
	HighNoise float64

	// MediumNoise is the exclusive noise-ratio bound for the medium tier.
	MediumNoise float64

	// HighScore, MediumScore and LowScore are the numeric tier scores.
	HighScore   float64
	MediumScore float64
	LowScore    float64

	// StrictNesting selects the canonical fine -> mid nesting. When false,
	// density clusters are additionally mapped onto fine clusters and their
	// empirical nesting purity is reported.
	StrictNesting bool
}

// DefaultQualitySettings returns the historical thresholds.
func DefaultQualitySettings() QualitySettings {
	return QualitySettings{
		HighNoise:     0.3,
		MediumNoise:   0.6,
		HighScore:     1.0,
		MediumScore:   0.5,
		LowScore:      0.2,
		StrictNesting: true,
	}
}

// Validate checks the thresholds are ordered and inside [0, 1].
func (q QualitySettings) Validate() error {
	if q.HighNoise < 0 || q.MediumNoise > 1 || q.HighNoise > q.MediumNoise {
		return ErrInvalidSettings
	}
	return nil
}

// Rate maps a noise ratio and subcluster count to a tier and score.
// It is a pure function of its inputs.
func (q QualitySettings) Rate(noiseRatio float64, subclusters int) (QualityTier, float64) {
	switch {
	case noiseRatio < q.HighNoise && subclusters >= 1:
		return QualityHigh, q.HighScore
	case noiseRatio < q.MediumNoise:
		return QualityMedium, q.MediumScore
	default:
		return QualityLow, q.LowScore
	}
}
