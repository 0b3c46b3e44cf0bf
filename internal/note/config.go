package note

import (
	"errors"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Default strftime formats used when the config file leaves them empty.
const (
	DefaultNoteIDTimestampFormat = "%Y%m%d%H%M%S"
	DefaultDateFormat            = "%Y-%m-%d"
	DefaultTimeFormat            = "%H:%M:%S"
)

var errHomeNotAbsolute = errors.New("must be an absolute path")

// Config is the wiki configuration shared read-only by every note operation.
type Config struct {
	HomePath              string `yaml:"home_path"`
	NoteIDTimestampFormat string `yaml:"note_id_timestamp_format"`
	DateFormat            string `yaml:"date_format"`
	TimeFormat            string `yaml:"time_format"`
}

// Validate validates the wiki configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HomePath, validation.Required, validation.By(absolutePath)),
		validation.Field(&c.NoteIDTimestampFormat, validation.Required),
		validation.Field(&c.DateFormat, validation.Required),
		validation.Field(&c.TimeFormat, validation.Required),
	)
}

func absolutePath(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !filepath.IsAbs(s) {
		return errHomeNotAbsolute
	}
	return nil
}
