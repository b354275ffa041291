package catalog

// ThemeMode selects the UI theme preference.
type ThemeMode int

const (
	ThemeSystem ThemeMode = iota
	ThemeLight
	ThemeDark
)

// String returns the theme mode name.
func (m ThemeMode) String() string {
	switch m {
	case ThemeSystem:
		return "System"
	case ThemeLight:
		return "Light"
	case ThemeDark:
		return "Dark"
	default:
		return "Unknown"
	}
}

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatOne:
		return "One"
	case RepeatAll:
		return "All"
	default:
		return "Unknown"
	}
}

// Cycle returns the next mode in the Off -> All -> One -> Off sequence.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// AppSettings is the single-row app configuration. The shuffle and repeat
// fields are the persisted preference; the live transport state is owned by
// the playback coordinator.
type AppSettings struct {
	ThemeMode       ThemeMode
	UseDynamicColor bool
	ShuffleEnabled  bool
	RepeatMode      RepeatMode
}

// Settings returns the settings row. The bootstrap guarantees it exists.
func (s *Store) Settings() (AppSettings, error) {
	var settings AppSettings
	err := s.db.QueryRow(`
		SELECT theme_mode, use_dynamic_color, shuffle_enabled, repeat_mode
		FROM app_settings WHERE id = 1
	`).Scan(&settings.ThemeMode, &settings.UseDynamicColor, &settings.ShuffleEnabled, &settings.RepeatMode)
	return settings, err
}

func (s *Store) updateSetting(column string, value any) error {
	_, err := s.db.Exec(`UPDATE app_settings SET `+column+` = ? WHERE id = 1`, value)
	if err != nil {
		return err
	}
	s.notifier.Publish(TopicSettings)
	return nil
}

// SetThemeMode updates the theme preference.
func (s *Store) SetThemeMode(mode ThemeMode) error {
	return s.updateSetting("theme_mode", mode)
}

// SetDynamicColor updates the dynamic color preference.
func (s *Store) SetDynamicColor(enabled bool) error {
	return s.updateSetting("use_dynamic_color", enabled)
}

// SetShuffleEnabled persists the shuffle preference.
func (s *Store) SetShuffleEnabled(enabled bool) error {
	return s.updateSetting("shuffle_enabled", enabled)
}

// SetRepeatMode persists the repeat preference.
func (s *Store) SetRepeatMode(mode RepeatMode) error {
	return s.updateSetting("repeat_mode", mode)
}
