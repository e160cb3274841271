package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for inversion tuning
// parameters. All fields are pointers so a partial JSON file overrides
// only the values it names; the Get* accessors supply defaults for the
// rest.
type TuningConfig struct {
	// Data uncertainty params
	UncertaintyFloor    *float64 `json:"uncertainty_floor,omitempty"`
	UncertaintyRelative *float64 `json:"uncertainty_relative,omitempty"`

	// Layer mesh params
	LayerCount        *int     `json:"layer_count,omitempty"`
	MinThickness      *float64 `json:"min_thickness,omitempty"`
	MaxThickness      *float64 `json:"max_thickness,omitempty"`
	StartConductivity *float64 `json:"start_conductivity,omitempty"` // S/m

	// Survey geometry params
	SourceHeight   *float64 `json:"source_height,omitempty"`   // metres above ground
	ReceiverOffset *float64 `json:"receiver_offset,omitempty"` // metres from source

	// Regularization params
	AlphaS *float64 `json:"alpha_s,omitempty"`
	AlphaX *float64 `json:"alpha_x,omitempty"`
	NormP  *float64 `json:"norm_p,omitempty"` // smallness norm, 0..2
	NormQ  *float64 `json:"norm_q,omitempty"` // smoothness norm, 0..2

	// Beta schedule params
	BetaRatio     *float64 `json:"beta_ratio,omitempty"`
	CoolingFactor *float64 `json:"cooling_factor,omitempty"`
	CoolingRate   *int     `json:"cooling_rate,omitempty"`

	// Optimizer params
	MaxIterations   *int     `json:"max_iterations,omitempty"`
	MaxLineSearch   *int     `json:"max_line_search,omitempty"`
	MaxCGIterations *int     `json:"max_cg_iterations,omitempty"`
	CGTolerance     *float64 `json:"cg_tolerance,omitempty"`

	// IRLS params
	ChiFactor         *float64 `json:"chi_factor,omitempty"`
	MaxIRLSIterations *int     `json:"max_irls_iterations,omitempty"`
	EpsilonFactor     *float64 `json:"epsilon_factor,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.UncertaintyRelative != nil {
		if *c.UncertaintyRelative < 0 || *c.UncertaintyRelative > 1 {
			return fmt.Errorf("uncertainty_relative must be between 0 and 1, got %f", *c.UncertaintyRelative)
		}
	}

	if c.UncertaintyFloor != nil && *c.UncertaintyFloor < 0 {
		return fmt.Errorf("uncertainty_floor must be non-negative, got %f", *c.UncertaintyFloor)
	}

	if c.LayerCount != nil && *c.LayerCount < 1 {
		return fmt.Errorf("layer_count must be at least 1, got %d", *c.LayerCount)
	}

	if c.MinThickness != nil && c.MaxThickness != nil {
		if !(*c.MinThickness > 0) || *c.MaxThickness < *c.MinThickness {
			return fmt.Errorf("thickness range [%f, %f] must satisfy 0 < min <= max", *c.MinThickness, *c.MaxThickness)
		}
	}

	if c.StartConductivity != nil && !(*c.StartConductivity > 0) {
		return fmt.Errorf("start_conductivity must be positive, got %f", *c.StartConductivity)
	}

	if c.NormP != nil {
		if *c.NormP < 0 || *c.NormP > 2 {
			return fmt.Errorf("norm_p must be between 0 and 2, got %f", *c.NormP)
		}
	}
	if c.NormQ != nil {
		if *c.NormQ < 0 || *c.NormQ > 2 {
			return fmt.Errorf("norm_q must be between 0 and 2, got %f", *c.NormQ)
		}
	}

	if c.ChiFactor != nil && !(*c.ChiFactor > 0) {
		return fmt.Errorf("chi_factor must be positive, got %f", *c.ChiFactor)
	}

	if c.CoolingFactor != nil && !(*c.CoolingFactor >= 1) {
		return fmt.Errorf("cooling_factor must be at least 1, got %f", *c.CoolingFactor)
	}

	if c.CoolingRate != nil && *c.CoolingRate < 1 {
		return fmt.Errorf("cooling_rate must be at least 1, got %d", *c.CoolingRate)
	}

	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}

	if c.MaxLineSearch != nil && *c.MaxLineSearch < 1 {
		return fmt.Errorf("max_line_search must be at least 1, got %d", *c.MaxLineSearch)
	}

	if c.MaxCGIterations != nil && *c.MaxCGIterations < 1 {
		return fmt.Errorf("max_cg_iterations must be at least 1, got %d", *c.MaxCGIterations)
	}

	if c.CGTolerance != nil && !(*c.CGTolerance > 0) {
		return fmt.Errorf("cg_tolerance must be positive, got %f", *c.CGTolerance)
	}

	if c.MaxIRLSIterations != nil && *c.MaxIRLSIterations < 1 {
		return fmt.Errorf("max_irls_iterations must be at least 1, got %d", *c.MaxIRLSIterations)
	}

	if c.EpsilonFactor != nil && !(*c.EpsilonFactor > 0) {
		return fmt.Errorf("epsilon_factor must be positive, got %f", *c.EpsilonFactor)
	}

	return nil
}

// GetUncertaintyFloor returns the uncertainty_floor value or the default.
func (c *TuningConfig) GetUncertaintyFloor() float64 {
	if c.UncertaintyFloor == nil {
		return 0
	}
	return *c.UncertaintyFloor
}

// GetUncertaintyRelative returns the uncertainty_relative value or the default.
func (c *TuningConfig) GetUncertaintyRelative() float64 {
	if c.UncertaintyRelative == nil {
		return 0.05 // default: 5% of amplitude
	}
	return *c.UncertaintyRelative
}

// GetLayerCount returns the layer_count value or the default.
func (c *TuningConfig) GetLayerCount() int {
	if c.LayerCount == nil {
		return 25
	}
	return *c.LayerCount
}

// GetMinThickness returns the min_thickness value or the default.
func (c *TuningConfig) GetMinThickness() float64 {
	if c.MinThickness == nil {
		return 1.0
	}
	return *c.MinThickness
}

// GetMaxThickness returns the max_thickness value or the default.
func (c *TuningConfig) GetMaxThickness() float64 {
	if c.MaxThickness == nil {
		return 30.0
	}
	return *c.MaxThickness
}

// GetStartConductivity returns the start_conductivity value or the default.
func (c *TuningConfig) GetStartConductivity() float64 {
	if c.StartConductivity == nil {
		return 0.1 // S/m
	}
	return *c.StartConductivity
}

// GetSourceHeight returns the source_height value or the default.
func (c *TuningConfig) GetSourceHeight() float64 {
	if c.SourceHeight == nil {
		return 30.0
	}
	return *c.SourceHeight
}

// GetReceiverOffset returns the receiver_offset value or the default.
func (c *TuningConfig) GetReceiverOffset() float64 {
	if c.ReceiverOffset == nil {
		return 8.0
	}
	return *c.ReceiverOffset
}

// GetAlphaS returns the alpha_s value or the default.
func (c *TuningConfig) GetAlphaS() float64 {
	if c.AlphaS == nil {
		return 0.01
	}
	return *c.AlphaS
}

// GetAlphaX returns the alpha_x value or the default.
func (c *TuningConfig) GetAlphaX() float64 {
	if c.AlphaX == nil {
		return 1.0
	}
	return *c.AlphaX
}

// GetNormP returns the norm_p value or the default.
func (c *TuningConfig) GetNormP() float64 {
	if c.NormP == nil {
		return 0
	}
	return *c.NormP
}

// GetNormQ returns the norm_q value or the default.
func (c *TuningConfig) GetNormQ() float64 {
	if c.NormQ == nil {
		return 0
	}
	return *c.NormQ
}

// GetBetaRatio returns the beta_ratio value or the default.
func (c *TuningConfig) GetBetaRatio() float64 {
	if c.BetaRatio == nil {
		return 10.0
	}
	return *c.BetaRatio
}

// GetCoolingFactor returns the cooling_factor value or the default.
func (c *TuningConfig) GetCoolingFactor() float64 {
	if c.CoolingFactor == nil {
		return 2.0
	}
	return *c.CoolingFactor
}

// GetCoolingRate returns the cooling_rate value or the default.
func (c *TuningConfig) GetCoolingRate() int {
	if c.CoolingRate == nil {
		return 1
	}
	return *c.CoolingRate
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *TuningConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 40
	}
	return *c.MaxIterations
}

// GetMaxLineSearch returns the max_line_search value or the default.
func (c *TuningConfig) GetMaxLineSearch() int {
	if c.MaxLineSearch == nil {
		return 20
	}
	return *c.MaxLineSearch
}

// GetMaxCGIterations returns the max_cg_iterations value or the default.
func (c *TuningConfig) GetMaxCGIterations() int {
	if c.MaxCGIterations == nil {
		return 30
	}
	return *c.MaxCGIterations
}

// GetCGTolerance returns the cg_tolerance value or the default.
func (c *TuningConfig) GetCGTolerance() float64 {
	if c.CGTolerance == nil {
		return 1e-3
	}
	return *c.CGTolerance
}

// GetChiFactor returns the chi_factor value or the default.
func (c *TuningConfig) GetChiFactor() float64 {
	if c.ChiFactor == nil {
		return 1.0
	}
	return *c.ChiFactor
}

// GetMaxIRLSIterations returns the max_irls_iterations value or the default.
func (c *TuningConfig) GetMaxIRLSIterations() int {
	if c.MaxIRLSIterations == nil {
		return 15
	}
	return *c.MaxIRLSIterations
}

// GetEpsilonFactor returns the epsilon_factor value or the default.
func (c *TuningConfig) GetEpsilonFactor() float64 {
	if c.EpsilonFactor == nil {
		return 0.05
	}
	return *c.EpsilonFactor
}
