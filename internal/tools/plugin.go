package tools

import (
	"os"
	"path/filepath"
	"plugin"
	"sort"

	"go.uber.org/zap"
)

// PluginSymbol is the exported symbol a tool plugin must provide. It must be
// a variable of a type implementing Tool, or a pointer to one.
const PluginSymbol = "Tool"

// LoadPlugins scans dir for shared objects and registers the tool each one
// exports. A plugin that fails to open, lacks the symbol, or collides with a
// registered ID is logged and skipped; one bad plugin never blocks the rest.
func LoadPlugins(reg *Registry, dir string, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("read plugin directory", zap.String("dir", dir), zap.Error(err))
		}
		return 0
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	loaded := 0
	for _, path := range paths {
		p, err := plugin.Open(path)
		if err != nil {
			logger.Warn("open plugin", zap.String("path", path), zap.Error(err))
			continue
		}
		sym, err := p.Lookup(PluginSymbol)
		if err != nil {
			logger.Warn("plugin lacks Tool symbol", zap.String("path", path), zap.Error(err))
			continue
		}
		tool, ok := sym.(Tool)
		if !ok {
			if tp, ok2 := sym.(*Tool); ok2 && tp != nil {
				tool, ok = *tp, true
			}
		}
		if !ok {
			logger.Warn("plugin Tool symbol has wrong type", zap.String("path", path))
			continue
		}
		if err := reg.Register(tool); err != nil {
			logger.Warn("register plugin tool", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("loaded plugin tool",
			zap.String("path", path),
			zap.String("tool", tool.Definition().ID))
		loaded++
	}
	return loaded
}
