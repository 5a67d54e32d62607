package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/Octogonapus/BenchLab/benchmark/cpu"
	"github.com/Octogonapus/BenchLab/benchmark/disk"
	"github.com/Octogonapus/BenchLab/benchmark/gpu"
	"github.com/Octogonapus/BenchLab/benchmark/memory"
	benchmarkorchestrator "github.com/Octogonapus/BenchLab/benchmark_orchestrator"
	"github.com/Octogonapus/BenchLab/profile"
	"github.com/Octogonapus/BenchLab/util"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "BENCHLAB"
	configFileName = "benchlab.yaml"
)

// Parameter records of each family. Their mapstructure tags are the keys accepted in the family's config section.
var familyParams = map[benchmark.Category]any{
	benchmark.Disk:   disk.DefaultParams(),
	benchmark.CPU:    cpu.DefaultParams(),
	benchmark.Memory: memory.DefaultParams(),
	benchmark.GPU:    gpu.DefaultParams(),
}

// Flags that override a key of a family section.
var paramFlags = []struct {
	flag string
	key  string
}{
	{"size", "disk.file_size_mb"},
	{"block", "disk.block_size_kb"},
	{"dir", "disk.dir"},
	{"cpu-duration", "cpu.duration_seconds"},
	{"cpu-multi-duration", "cpu.multi_duration_seconds"},
	{"mem-size", "memory.size_mb"},
	{"gpu-iterations", "gpu.iterations"},
	{"gpu-allow-host", "gpu.allow_host"},
}

func addSessionFlags(fs *pflag.FlagSet) {
	fs.StringSlice("categories", nil, "Categories to run: disk, cpu, memory, gpu. All by default.")
	fs.StringSlice("tests", nil, "Test ids to run, e.g. disk.seq-write. Overrides --categories.")
	fs.Int("size", 100, "Disk backing file size in MB.")
	fs.Int("block", 4, "Disk block size in KB.")
	fs.String("dir", "", "Directory for the disk backing file. The system temp dir by default.")
	fs.Float64("cpu-duration", 5, "Duration of the single-core and crypto tests in seconds.")
	fs.Float64("cpu-multi-duration", 10, "Duration of the multi-core and compression tests in seconds.")
	fs.Int("mem-size", 100, "Memory buffer size in MB.")
	fs.Int("gpu-iterations", 100, "Timed iterations of the GPU tests.")
	fs.Bool("gpu-allow-host", false, "Run the GPU tests on the host engine when no accelerator is available.")
	fs.Bool("monitor", false, "Sample CPU, memory and disk utilization during each test.")
	fs.String("profiler", string(profile.None), fmt.Sprintf("The profiler to wrap each test in. Must be one of: %s.", profile.ExplainProfilers()))
	fs.String("profile-dir", ".", "Save profiling results into this directory.")
	fs.String("report", "", "Write the session report to this path (.json or .yaml).")
	fs.Bool("progress", true, "Show progress bars when writing to a terminal.")
}

// newViper merges the config file, the environment and the flags of fs.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"categories", "tests", "monitor", "profiler", "profile-dir", "report", "progress", "log-level"} {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f); err != nil {
				return nil, err
			}
		}
	}
	for _, pf := range paramFlags {
		if f := fs.Lookup(pf.flag); f != nil {
			if err := v.BindPFlag(pf.key, f); err != nil {
				return nil, err
			}
		}
	}

	path, _ := fs.GetString("config")
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path == "" {
		path = defaultConfigFile()
	}
	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config failed: %w", err)
	}
	slog.Debug("loaded config", slog.String("path", v.ConfigFileUsed()))
	return v, nil
}

// defaultConfigFile returns the first of ./benchlab.yaml and ~/.benchlab/benchlab.yaml that exists, or "".
func defaultConfigFile() string {
	candidates := []string{configFileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".benchlab", configFileName))
	}
	path, _ := lo.Find(candidates, func(p string) bool {
		info, err := os.Stat(p)
		return err == nil && info.Mode().IsRegular()
	})
	return path
}

// familySection collects the keys of one family section that were set anywhere. Unset keys are left out so the
// family applies its own defaults; unknown keys from the config file are kept so they are rejected.
func familySection(v *viper.Viper, c benchmark.Category) map[string]any {
	section := string(c)
	keys := util.StructTags(familyParams[c], "mapstructure")
	keys = lo.Uniq(append(keys, lo.Keys(v.GetStringMap(section))...))

	out := map[string]any{}
	for _, key := range keys {
		if full := section + "." + key; v.IsSet(full) {
			out[key] = v.Get(full)
		}
	}
	return out
}

func familySections(v *viper.Viper) map[benchmark.Category]map[string]any {
	out := map[benchmark.Category]map[string]any{}
	for _, c := range benchmark.AllCategories {
		out[c] = familySection(v, c)
	}
	return out
}

func sessionConfig(v *viper.Viper) (*benchmarkorchestrator.SessionConfig, error) {
	categories, err := benchmark.ParseCategories(util.SplitList(v.GetStringSlice("categories")...))
	if err != nil {
		return nil, err
	}
	return &benchmarkorchestrator.SessionConfig{
		Categories:     categories,
		TestIDs:        util.SplitList(v.GetStringSlice("tests")...),
		Params:         familySections(v),
		Monitor:        v.GetBool("monitor"),
		ProfilerKind:   profile.ProfilerKind(v.GetString("profiler")),
		ProfileSaveDir: v.GetString("profile_dir"),
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
