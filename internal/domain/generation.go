package domain

const (
	// DefaultModel is the generative model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// DefaultTemperature is the sampling temperature used when none is configured.
	DefaultTemperature = 0.7
	// DefaultMaxOutputTokens bounds answer length.
	DefaultMaxOutputTokens = 512
)

// GenerationConfig carries per-call model parameters. A nil Temperature
// means unset; zero is a valid, deterministic setting.
type GenerationConfig struct {
	Model           string
	Temperature     *float64
	MaxOutputTokens int
}

// DefaultGenerationConfig returns the stock generation settings.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:           DefaultModel,
		Temperature:     Float64(DefaultTemperature),
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// WithDefaults fills zero fields from DefaultGenerationConfig.
func (c GenerationConfig) WithDefaults() GenerationConfig {
	d := DefaultGenerationConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Temperature == nil {
		c.Temperature = d.Temperature
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	return c
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// TemperatureValue returns the configured temperature, or DefaultTemperature
// when unset.
func (c GenerationConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}
