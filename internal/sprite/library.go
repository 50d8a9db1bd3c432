package sprite

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nidhogg/deskpet/internal/geom"
	"go.uber.org/zap"
)

var extensions = map[string]bool{".gif": true, ".png": true, ".jpg": true, ".jpeg": true}

// LoadDir loads every sprite file in dir in name order. Files that fail to
// load are logged and skipped. When nothing loads, the result is a single
// placeholder set, so it is never empty.
func LoadDir(dir string, fallback geom.Size, logger *zap.Logger) []Set {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("sprite directory unreadable, using placeholder",
			zap.String("dir", dir), zap.Error(err))
		return []Set{NewPlaceholder(fallback)}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sets := make([]Set, 0, len(names))
	for _, name := range names {
		l, err := Load(filepath.Join(dir, name))
		if err != nil {
			var ae *AssetError
			if errors.As(err, &ae) {
				logger.Warn("skipping sprite", zap.String("path", ae.Path), zap.Error(ae.Err))
			}
			continue
		}
		logger.Info("loaded sprite", zap.String("set", l.ID()), zap.Int("frames", l.Len()))
		sets = append(sets, l)
	}
	if len(sets) == 0 {
		logger.Warn("no usable sprites, using placeholder", zap.String("dir", dir))
		return []Set{NewPlaceholder(fallback)}
	}
	return sets
}
