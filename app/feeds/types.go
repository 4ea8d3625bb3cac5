package feeds

// Feed is one configured RSS/Atom source.
type Feed struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`

	// MaxItems caps how many of the most recent entries are taken per run.
	// 0 falls back to the process-wide default.
	MaxItems int `yaml:"max_items" validate:"gte=0"`
}

type feedsFile struct {
	Feeds []Feed `yaml:"feeds" validate:"required,min=1,dive"`
}
