package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.starlark.net/starlark"

	"github.com/zwiftdocs/zwobuild/fs"
	"github.com/zwiftdocs/zwobuild/target"
)

// DefaultConfigName is the target declaration file looked up in the
// working directory.
const DefaultConfigName = "zwobuild.star"

// DefaultConfig reproduces the original documentation pipeline, so the
// tool works with zero setup in a checkout that has no zwobuild.star:
// analyse the workouts directory into a JSON usage report, then render
// the markdown tag reference from that report plus the hand-authored
// descriptions file.
const DefaultConfig = `config = {
    "zwift_workout_file_tag_reference.md": {
        "cmd": "zwift-zwo-docs-render tag_attr_usage.json descriptions.yaml",
        "dependencies": ["zwift_zwo_docs/*.py", "descriptions.yaml"],
        "target_deps": ["tag_attr_usage.json"],
    },
    "tag_attr_usage.json": {
        "cmd": "zwift-zwo-docs-analyse --json $<",
        "optional_dependencies": ["workouts"],
    },
    "clean-md": {
        "phony": True,
        "removes": ["zwift_workout_file_tag_reference.md"],
    },
    "clean-json": {
        "phony": True,
        "removes": ["tag_attr_usage.json"],
    },
    "clean-all": {
        "phony": True,
        "target_deps": ["clean-md", "clean-json"],
    },
}
`

// Config holds the declared targets. Order preserves declaration order;
// the first declared target is the default.
type Config struct {
	Targets map[string]*target.Target
	Order   []string
}

// DefaultTarget returns the first declared target name.
func (c *Config) DefaultTarget() string {
	if len(c.Order) == 0 {
		return ""
	}
	return c.Order[0]
}

// ModuleCache is used to store loaded Starlark modules
type ModuleCache struct {
	modules map[string]starlark.StringDict
	mutex   sync.RWMutex
}

// NewModuleCache creates a new ModuleCache
func NewModuleCache() *ModuleCache {
	return &ModuleCache{
		modules: make(map[string]starlark.StringDict),
	}
}

// Get retrieves a module from the cache
func (mc *ModuleCache) Get(key string) (starlark.StringDict, bool) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	module, ok := mc.modules[key]
	return module, ok
}

// Set stores a module in the cache
func (mc *ModuleCache) Set(key string, module starlark.StringDict) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.modules[key] = module
}

// LoadModule is a custom load function for Starlark that implements caching
func LoadModule(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	cache := thread.Local("moduleCache").(*ModuleCache)

	if cachedModule, ok := cache.Get(module); ok {
		return cachedModule, nil
	}

	filename := module
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(filepath.Dir(thread.Name), filename)
	}

	globals, err := starlark.ExecFile(thread, filename, nil, nil)
	if err != nil {
		return nil, err
	}

	cache.Set(module, globals)

	return globals, nil
}

// Load reads the target declarations from path, falling back to the
// built-in default pipeline when no config file exists on disk.
func Load(fsys fs.FileSystem, path string) (*Config, error) {
	src, err := fsys.ReadFile(path)
	if err != nil {
		// Only the default name falls back to the built-in pipeline;
		// an explicitly requested file must exist.
		if os.IsNotExist(err) && path == DefaultConfigName {
			return Parse("<builtin>", DefaultConfig)
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return Parse(path, string(src))
}

// Parse evaluates Starlark target declarations and validates the
// resulting target table.
func Parse(filename, src string) (*Config, error) {
	cache := NewModuleCache()
	thread := &starlark.Thread{
		Name: filename,
		Load: LoadModule,
	}
	thread.SetLocal("moduleCache", cache)

	globals, err := starlark.ExecFile(thread, filename, src, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Starlark script")
	}

	configValue, ok := globals["config"]
	if !ok {
		return nil, errors.New("global 'config' object not found in Starlark config")
	}

	configDict, ok := configValue.(*starlark.Dict)
	if !ok {
		return nil, errors.New("global 'config' object is not a dictionary")
	}

	cfg := &Config{Targets: make(map[string]*target.Target)}

	for _, item := range configDict.Items() {
		key, ok := item.Index(0).(starlark.String)
		if !ok {
			return nil, errors.Errorf("config keys must be strings, got %s", item.Index(0).Type())
		}
		name := key.GoString()
		value := item.Index(1)
		if dict, ok := value.(*starlark.Dict); ok {
			tgt, err := parseTarget(name, dict)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse target %s", name)
			}

			cfg.Targets[name] = tgt
			cfg.Order = append(cfg.Order, name)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Order) == 0 {
		return errors.New("config declares no targets")
	}
	for _, name := range c.Order {
		tgt := c.Targets[name]
		for _, dep := range tgt.TargetDeps {
			if _, ok := c.Targets[dep]; !ok {
				return errors.Errorf("target %s depends on undeclared target %s", name, dep)
			}
		}
		// Phony targets have no artifact, so they can never satisfy a
		// file dependency; catch that at load time.
		patterns := append(append([]string{}, tgt.Dependencies...), tgt.OptionalDependencies...)
		for _, pattern := range patterns {
			if dep, ok := c.Targets[pattern]; ok && dep.Phony {
				return errors.Errorf("target %s lists phony target %s as a file dependency", name, pattern)
			}
		}
	}
	return nil
}

func parseTarget(name string, dict *starlark.Dict) (*target.Target, error) {
	tgt := &target.Target{Name: name}

	if cmd, ok, err := getStringValue(dict, "cmd"); err != nil {
		return nil, err
	} else if ok {
		tgt.Cmd = cmd
	}

	if deps, ok, err := getStringList(dict, "dependencies"); err != nil {
		return nil, err
	} else if ok {
		tgt.Dependencies = deps
	}

	if optDeps, ok, err := getStringList(dict, "optional_dependencies"); err != nil {
		return nil, err
	} else if ok {
		tgt.OptionalDependencies = optDeps
	}

	if targetDeps, ok, err := getStringList(dict, "target_deps"); err != nil {
		return nil, err
	} else if ok {
		tgt.TargetDeps = targetDeps
	}

	if phony, ok, err := getBooleanValue(dict, "phony"); err != nil {
		return nil, err
	} else if ok {
		tgt.Phony = phony
	}

	if removes, ok, err := getStringList(dict, "removes"); err != nil {
		return nil, err
	} else if ok {
		tgt.Removes = removes
	}

	return tgt, nil
}

func getBooleanValue(dict *starlark.Dict, key string) (bool, bool, error) {
	value, found, err := dict.Get(starlark.String(key))
	if err != nil || !found {
		return false, false, err
	}

	boolValue, ok := value.(starlark.Bool)
	if !ok {
		return false, false, fmt.Errorf("expected bool for key %s, got %T", key, value)
	}

	return bool(boolValue), true, nil
}

func getStringValue(dict *starlark.Dict, key string) (string, bool, error) {
	value, found, err := dict.Get(starlark.String(key))
	if err != nil || !found {
		return "", false, err
	}

	strValue, ok := value.(starlark.String)
	if !ok {
		return "", false, fmt.Errorf("expected string for key %s, got %T", key, value)
	}

	return strValue.GoString(), true, nil
}

func getStringList(dict *starlark.Dict, key string) ([]string, bool, error) {
	value, found, err := dict.Get(starlark.String(key))
	if err != nil || !found {
		return nil, false, err
	}

	list, ok := value.(*starlark.List)
	if !ok {
		return nil, false, fmt.Errorf("expected list for key %s, got %T", key, value)
	}

	var result []string
	iter := list.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		str, ok := x.(starlark.String)
		if !ok {
			return nil, false, fmt.Errorf("expected string in list for key %s, got %T", key, x)
		}
		result = append(result, str.GoString())
	}

	return result, true, nil
}
