package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Supported engine and format identifiers, in benchmark order.
var (
	KnownEngines = []string{"arrow", "duckdb", "frame"}
	KnownFormats = []string{"csv", "parquet", "arrow"}
)

// Config holds all configuration for formatbench
type Config struct {
	Log      LogConfig
	Data     DataConfig
	Bench    BenchConfig
	Database DatabaseConfig
	Parquet  ParquetConfig
}

type LogConfig struct {
	Level  string
	Format string // text, console or json
}

type DataConfig struct {
	NumRecords  int    // Rows generated per record shape (NUM_RECORDS)
	Dir         string // Directory holding the generated input files
	CSVFile     string
	ParquetFile string
	ArrowFile   string
	Seed        int64 // 0 seeds from the clock
}

type BenchConfig struct {
	OutputDir    string
	OutputPrefix string   // Output files are <prefix>_<engine>.<ext>
	Engines      []string // Engine order is benchmark order
	Formats      []string
}

type DatabaseConfig struct {
	MemoryLimit string
	ThreadCount int
}

type ParquetConfig struct {
	Compression     string // snappy, gzip, zstd, none
	UseDictionary   bool
	WriteStatistics bool
	DataPageVersion string // 1.0 or 2.0
}

// Load loads configuration from defaults, an optional config file and the environment
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FORMATBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// NUM_RECORDS is the historical knob for dataset size
	if err := v.BindEnv("data.num_records", "NUM_RECORDS", "FORMATBENCH_DATA_NUM_RECORDS"); err != nil {
		return nil, fmt.Errorf("failed to bind NUM_RECORDS: %w", err)
	}

	v.SetConfigName("formatbench")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.formatbench/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Data: DataConfig{
			NumRecords:  v.GetInt("data.num_records"),
			Dir:         v.GetString("data.dir"),
			CSVFile:     v.GetString("data.csv_file"),
			ParquetFile: v.GetString("data.parquet_file"),
			ArrowFile:   v.GetString("data.arrow_file"),
			Seed:        v.GetInt64("data.seed"),
		},
		Bench: BenchConfig{
			OutputDir:    v.GetString("bench.output_dir"),
			OutputPrefix: v.GetString("bench.output_prefix"),
			Engines:      normalizeList(v.GetStringSlice("bench.engines")),
			Formats:      normalizeList(v.GetStringSlice("bench.formats")),
		},
		Database: DatabaseConfig{
			MemoryLimit: v.GetString("database.memory_limit"),
			ThreadCount: v.GetInt("database.thread_count"),
		},
		Parquet: ParquetConfig{
			Compression:     strings.ToLower(v.GetString("parquet.compression")),
			UseDictionary:   v.GetBool("parquet.use_dictionary"),
			WriteStatistics: v.GetBool("parquet.write_statistics"),
			DataPageVersion: v.GetString("parquet.data_page_version"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Data defaults
	v.SetDefault("data.num_records", 10000)
	v.SetDefault("data.dir", ".")
	v.SetDefault("data.csv_file", "data.csv")
	v.SetDefault("data.parquet_file", "data.parquet")
	v.SetDefault("data.arrow_file", "data.arrow")
	v.SetDefault("data.seed", 0)

	// Bench defaults
	v.SetDefault("bench.output_dir", ".")
	v.SetDefault("bench.output_prefix", "data_output")
	v.SetDefault("bench.engines", KnownEngines)
	v.SetDefault("bench.formats", KnownFormats)

	// Database defaults - dynamically calculated based on system resources
	v.SetDefault("database.memory_limit", getDefaultMemoryLimit())
	v.SetDefault("database.thread_count", getDefaultThreadCount())

	// Parquet defaults
	v.SetDefault("parquet.compression", "snappy")
	v.SetDefault("parquet.use_dictionary", true)
	v.SetDefault("parquet.write_statistics", true)
	v.SetDefault("parquet.data_page_version", "2.0")
}

// normalizeList lowercases entries and splits comma-joined env values
func normalizeList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func getDefaultThreadCount() int {
	return runtime.NumCPU()
}

func getDefaultMemoryLimit() string {
	// Heuristic: assume ~2GB per core, give DuckDB half of it
	targetMemGB := runtime.NumCPU()
	if targetMemGB < 1 {
		return "1GB"
	}
	if targetMemGB > 16 {
		return "16GB"
	}
	return fmt.Sprintf("%dGB", targetMemGB)
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Data.NumRecords <= 0 {
		return fmt.Errorf("data.num_records must be positive, got %d", c.Data.NumRecords)
	}
	if len(c.Bench.Engines) == 0 {
		return fmt.Errorf("bench.engines is empty")
	}
	for _, e := range c.Bench.Engines {
		if !contains(KnownEngines, e) {
			return fmt.Errorf("unknown engine %q (known: %s)", e, strings.Join(KnownEngines, ", "))
		}
	}
	if len(c.Bench.Formats) == 0 {
		return fmt.Errorf("bench.formats is empty")
	}
	for _, f := range c.Bench.Formats {
		if !contains(KnownFormats, f) {
			return fmt.Errorf("unknown format %q (known: %s)", f, strings.Join(KnownFormats, ", "))
		}
	}
	switch c.Parquet.Compression {
	case "snappy", "gzip", "zstd", "none":
	default:
		return fmt.Errorf("unsupported parquet.compression %q", c.Parquet.Compression)
	}
	switch c.Parquet.DataPageVersion {
	case "1.0", "2.0":
	default:
		return fmt.Errorf("unsupported parquet.data_page_version %q", c.Parquet.DataPageVersion)
	}
	return nil
}

// FileName returns the input file name for a format (csv, parquet, arrow),
// relative to Dir
func (d *DataConfig) FileName(format string) (string, error) {
	var name string
	switch format {
	case "csv":
		name = d.CSVFile
	case "parquet":
		name = d.ParquetFile
	case "arrow":
		name = d.ArrowFile
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
	return name, nil
}

// OutputPath returns the write target for one engine/format cell
func (b *BenchConfig) OutputPath(engine, ext string) string {
	return filepath.Join(b.OutputDir, fmt.Sprintf("%s_%s.%s", b.OutputPrefix, strings.ToLower(engine), ext))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
