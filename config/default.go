package config

const (
	DefaultWrapWidth = 80
	DefaultJobs      = 8
	DefaultPoDir     = "po"
)

func GetDefault() Config {
	return Config{
		Path:      ".",
		PoDir:     DefaultPoDir,
		WrapWidth: DefaultWrapWidth,
		Jobs:      DefaultJobs,
	}
}
