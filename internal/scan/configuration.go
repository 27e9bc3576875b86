package scan

import "strings"

const (
	defaultTimeoutSecondsConstant             = 10
	configurationTimeoutSecondsKeyConstant    = "timeout_seconds"
	configurationConcurrencyKeyConstant       = "concurrency"
	configurationEmojiKeyConstant             = "emoji"
	configurationOfflineKeyConstant           = "offline"
	configurationIgnoreDirectoriesKeyConstant = "ignore_directories"
)

// CommandConfiguration captures persistent settings for the report command.
type CommandConfiguration struct {
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"`
	Concurrency       int      `mapstructure:"concurrency"`
	Emoji             bool     `mapstructure:"emoji"`
	Offline           bool     `mapstructure:"offline"`
	IgnoreDirectories []string `mapstructure:"ignore_directories"`
}

// DefaultIgnoreDirectoryNames returns the directory names pruned from discovery by default.
func DefaultIgnoreDirectoryNames() []string {
	return []string{"node_modules", "vendor", ".terraform", ".idea", ".vscode", "__pycache__"}
}

// DefaultCommandConfiguration returns baseline configuration values for the report command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		TimeoutSeconds:    defaultTimeoutSecondsConstant,
		Concurrency:       0,
		Emoji:             true,
		Offline:           false,
		IgnoreDirectories: DefaultIgnoreDirectoryNames(),
	}
}

// DefaultConfigurationValues produces Viper defaults for the report command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationTimeoutSecondsKeyConstant:    defaults.TimeoutSeconds,
		rootKey + "." + configurationConcurrencyKeyConstant:       defaults.Concurrency,
		rootKey + "." + configurationEmojiKeyConstant:             defaults.Emoji,
		rootKey + "." + configurationOfflineKeyConstant:           defaults.Offline,
		rootKey + "." + configurationIgnoreDirectoriesKeyConstant: defaults.IgnoreDirectories,
	}
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultTimeoutSecondsConstant
	}
	if sanitized.Concurrency < 0 {
		sanitized.Concurrency = 0
	}
	sanitized.IgnoreDirectories = sanitizeDirectoryNames(configuration.IgnoreDirectories)

	return sanitized
}

func sanitizeDirectoryNames(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for index := range raw {
		trimmed := strings.TrimSpace(raw[index])
		if len(trimmed) == 0 {
			continue
		}
		if _, alreadyListed := seen[trimmed]; alreadyListed {
			continue
		}
		seen[trimmed] = struct{}{}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
