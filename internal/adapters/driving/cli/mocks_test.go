package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

type mockResultService struct {
	result *domain.Result
	err    error
	loaded []string
	latest int
}

func (m *mockResultService) Load(_ context.Context, path string) (*domain.Result, error) {
	m.loaded = append(m.loaded, path)
	return m.result, m.err
}

func (m *mockResultService) Latest(_ context.Context) (*domain.Result, error) {
	m.latest++
	return m.result, m.err
}

type mockRunHistoryService struct {
	records []domain.RunRecord
	err     error
	limit   int
	deleted []string
}

func (m *mockRunHistoryService) List(_ context.Context, limit int) ([]domain.RunRecord, error) {
	m.limit = limit
	return m.records, m.err
}

func (m *mockRunHistoryService) Get(_ context.Context, id string) (*domain.RunRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunHistoryService) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

type mockSettingsService struct {
	settings domain.AppSettings
	keys     []string
	values   map[string]string
	setErr   error
	set      map[string]string

	embedding []string
	llm       []string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		keys:     []string{"reducer.neighbors", "reducer.seed", "llm.api_key"},
		values: map[string]string{
			"reducer.neighbors": "15",
			"reducer.seed":      "42",
			"llm.api_key":       "",
		},
		set: map[string]string{},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string { return m.keys }

func (m *mockSettingsService) Value(_ *domain.AppSettings, key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	m.settings.Embedding = domain.EmbeddingSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	m.settings.LLM = domain.LLMSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error                 { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error        { return nil }

type mockPipeline struct {
	result *domain.Result
	err    error
	reqs   []driving.RunRequest
}

func (m *mockPipeline) Run(_ context.Context, req driving.RunRequest) (*domain.Result, error) {
	m.reqs = append(m.reqs, req)
	return m.result, m.err
}

type mockEmbed struct {
	n     int
	err   error
	force bool
}

func (m *mockEmbed) Fill(_ context.Context, force bool) (int, error) {
	m.force = force
	return m.n, m.err
}

func testResult() *domain.Result {
	fine, mid := 0.41, 0.38
	return &domain.Result{
		Documents: []domain.ResultDocument{
			{Index: 0, ID: "a", FineCluster: 0, MidCluster: 0},
			{Index: 1, ID: "b", FineCluster: 1, MidCluster: 0},
		},
		Meta: domain.ResultMeta{
			RunID:          "run-1",
			CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			TotalDocuments: 2,
			NFine:          2,
			NMid:           1,
			Density:        domain.DensityStats{Clusters: 1, NoisePoints: 1, NoisePercent: 50},
			Silhouettes:    domain.Silhouettes{Fine: &fine, Mid: &mid},
			Hierarchy: &domain.Hierarchy{
				Mid: []domain.MidCluster{{
					ID: 0, Name: "Product liability", Size: 2,
					Category: domain.Category{ID: 3, Name: "Tort"},
					Fine: []domain.FineCluster{
						{ID: 0, Name: "Airbag defects", Size: 1, Quality: domain.ClusterQuality{Tier: domain.QualityHigh}},
						{ID: 1, Name: "Brake failures", Size: 1, Quality: domain.ClusterQuality{Tier: domain.QualityLow}},
					},
				}},
				Distribution: domain.Distribution{
					ByCategory: map[string]int{"Tort": 2},
					ByTier:     map[domain.QualityTier]int{domain.QualityHigh: 1, domain.QualityLow: 1},
				},
			},
		},
	}
}

// execute runs the root command with args and returns its output. Flags are
// reset afterwards so that tests do not leak values into each other.
func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func useServices(t *testing.T, s Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(Services{}) })
}

func requireContains(t *testing.T, s string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		require.Contains(t, s, p)
	}
}
