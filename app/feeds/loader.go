package feeds

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load reads the feed source list from a YAML file. defaultMaxItems is
// applied to feeds that don't set their own cap.
func Load(path string, defaultMaxItems int) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}

	var file feedsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feeds file: %w", err)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid feeds file %s: %w", path, err)
	}

	for i := range file.Feeds {
		if file.Feeds[i].MaxItems == 0 {
			file.Feeds[i].MaxItems = defaultMaxItems
		}
	}

	return file.Feeds, nil
}
