package config

import "codebinder/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return invalid("workers must be >= 0, got %d", c.Workers)
	}
	if c.OutputDir == "" {
		return invalid("output_dir cannot be empty")
	}

	seen := map[string]string{}
	for key, tc := range c.Targets {
		name, err := canonical(key)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "targets.%s", key), errors.ErrInvalidConfig)
		}
		// "ts" and "typescript" would silently shadow each other
		if prev, ok := seen[name]; ok {
			return invalid("targets.%s and targets.%s both configure %s", prev, key, name)
		}
		seen[name] = key

		if _, err := capabilities(tc.Enable); err != nil {
			return errors.Wrapf(err, "targets.%s.enable", key)
		}
		if _, err := capabilities(tc.Disable); err != nil {
			return errors.Wrapf(err, "targets.%s.disable", key)
		}
		for _, name := range []string{tc.Methods, tc.Properties, tc.Types} {
			if _, err := casing(name); err != nil {
				return errors.Wrapf(err, "targets.%s", key)
			}
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), errors.ErrInvalidConfig)
}
