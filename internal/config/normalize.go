package config

import "strings"

func (c *Config) normalize() error {
	for i, root := range c.Paths.LibraryRoots {
		expanded, err := expandPath(strings.TrimSpace(root))
		if err != nil {
			return err
		}
		c.Paths.LibraryRoots[i] = expanded
	}
	for _, field := range []*string{&c.Paths.DatabaseDir, &c.Paths.LogDir, &c.Paths.LockDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
