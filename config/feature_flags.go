package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the wellness engine. The app
// serves a single profile, so there is no per-user targeting; flags are
// plain on/off switches with optional time windows, overridable from the
// environment.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	// === Notification Features ===
	FeatureNotifyMorningScore    = "notify.morning_score"    // Daily 05:00 score notification
	FeatureNotifyGoalCelebration = "notify.goal_celebration" // Step goal celebration

	// === Reward Features ===
	FeatureRewardStepGate = "reward.step_gate" // Daily step reward

	// === Wellness Features ===
	FeatureWellnessCatchUp     = "wellness.catch_up"     // Periodic missed-rollover check
	FeatureWellnessWeeklyChart = "wellness.weekly_chart" // Monday-anchored step chart

	// === Subscription Features ===
	FeatureSubscriptionRefresh = "subscription.refresh" // Periodic entitlement replay

	// === Experimental Features ===
	FeatureExperimentalWeeklyReport = "experimental.weekly_report" // Weekly score summary
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureNotifyMorningScore] = &Feature{
		Name:        FeatureNotifyMorningScore,
		Description: "Schedule the daily morning score notification",
		Enabled:     true,
	}

	ff.features[FeatureNotifyGoalCelebration] = &Feature{
		Name:        FeatureNotifyGoalCelebration,
		Description: "Flag the step goal celebration for the UI",
		Enabled:     true,
	}

	ff.features[FeatureRewardStepGate] = &Feature{
		Name:        FeatureRewardStepGate,
		Description: "Grant one treat on reaching the daily step goal",
		Enabled:     true,
	}

	ff.features[FeatureWellnessCatchUp] = &Feature{
		Name:        FeatureWellnessCatchUp,
		Description: "Run the rollover when the stored day falls behind",
		Enabled:     true,
	}

	ff.features[FeatureWellnessWeeklyChart] = &Feature{
		Name:        FeatureWellnessWeeklyChart,
		Description: "Serve the Monday-anchored weekly step chart",
		Enabled:     true,
	}

	ff.features[FeatureSubscriptionRefresh] = &Feature{
		Name:        FeatureSubscriptionRefresh,
		Description: "Replay store entitlements on an interval",
		Enabled:     true,
	}

	ff.features[FeatureExperimentalWeeklyReport] = &Feature{
		Name:        FeatureExperimentalWeeklyReport,
		Description: "Weekly score summary notification",
		Enabled:     false,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_NOTIFY_MORNING_SCORE=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "notify.morning_score" -> "FEATURE_NOTIFY_MORNING_SCORE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is currently enabled.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	return true
}

// EnableFeature enables a feature.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature disables a feature.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
