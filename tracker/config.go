package tracker

// PerClassParameters holds the tunable thresholds looked up by className
// (§3). Config.classParams starts from Config.ClassDefaults and applies any
// per-class Settings overrides; zero-value fields are not replaced with
// defaults.
type PerClassParameters struct {
	MinScore              float64
	MinConfirmationFrames int
	IoUThreshold          float64
	MovementThreshold     float64
}

// defaultClassParameters returns the §3 defaults.
func defaultClassParameters() PerClassParameters {
	return PerClassParameters{
		MinScore:              0.7,
		MinConfirmationFrames: 3,
		IoUThreshold:          0.5,
		MovementThreshold:     10,
	}
}

// Settings is the free-form per-class override table described in §6:
// keys of the shape "{className}-{key}" plus the two bare keys
// "enabledClasses" and "basicDetectionsOnly".
type Settings map[string]any

// Config is the tracker construction config (§6).
type Config struct {
	MaxMisses      int
	MaxEmptyFrames int
	MaxLostFrames  int
	UseMatrix      bool
	// HungarianReacquire opts the Hungarian strategy into the greedy
	// strategy's lost-track re-acquisition semantics. Default false
	// preserves the spec's documented default ("the source silently
	// skips it", §4.3/§9).
	HungarianReacquire bool
	ClassDefaults      PerClassParameters
	EnabledClasses     map[string]struct{}
	Settings           Settings
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{
		MaxMisses:      5,
		MaxEmptyFrames: 3,
		MaxLostFrames:  30,
		UseMatrix:      false,
		EnabledClasses: nil,
		ClassDefaults:  defaultClassParameters(),
		Settings:       Settings{},
	}
}

// isEnabled reports whether className is allowed to be tracked. An
// explicit "enabledClasses" list in the settings table takes precedence
// over EnabledClasses. A nil EnabledClasses set with no such list means
// "all classes enabled"; an empty non-nil set, or an empty list, enables
// none.
func (c Config) isEnabled(className string) bool {
	enabled := c.enabledClassSet()
	if enabled == nil {
		return true
	}
	_, ok := enabled[className]
	return ok
}

func (c Config) enabledClassSet() map[string]struct{} {
	if raw, ok := c.Settings["enabledClasses"]; ok {
		list, ok := raw.([]string)
		if !ok {
			return c.EnabledClasses
		}
		set := make(map[string]struct{}, len(list))
		for _, name := range list {
			set[name] = struct{}{}
		}
		return set
	}
	return c.EnabledClasses
}

// basicOnly reports whether the "basicDetectionsOnly" settings key is set.
func (c Config) basicOnly() bool {
	raw, ok := c.Settings["basicDetectionsOnly"]
	if !ok {
		return false
	}
	v, _ := raw.(bool)
	return v
}

// classParams resolves the effective PerClassParameters for className,
// applying any "{className}-{key}" overrides in Settings on top of
// ClassDefaults.
func (c Config) classParams(className string) PerClassParameters {
	params := c.ClassDefaults

	if v, ok := c.settingsFloat(className, "minScore"); ok {
		params.MinScore = v
	}
	if v, ok := c.settingsInt(className, "minConfirmationFrames"); ok {
		params.MinConfirmationFrames = v
	}
	if v, ok := c.settingsFloat(className, "iouThreshold"); ok {
		params.IoUThreshold = v
	}
	if v, ok := c.settingsFloat(className, "movementThreshold"); ok {
		params.MovementThreshold = v
	}
	return params
}

func (c Config) settingsFloat(className, key string) (float64, bool) {
	raw, ok := c.Settings[className+"-"+key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (c Config) settingsInt(className, key string) (int, bool) {
	raw, ok := c.Settings[className+"-"+key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// withOverlay returns a copy of c with overlay's keys merged into
// Settings, overlay taking precedence. Per §5, a settings overlay is
// applied per-call and never mutates the Config the session was
// constructed with.
func (c Config) withOverlay(overlay Settings) Config {
	if len(overlay) == 0 {
		return c
	}
	merged := make(Settings, len(c.Settings)+len(overlay))
	for k, v := range c.Settings {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	c.Settings = merged
	return c
}
