// Package config loads the service's INI-style startup configuration
// (spec.md §6), adapted from the teacher's Config/Default/Validate shape
// but with the teacher's worker/codec/S3 fields replaced by the zimg INI
// schema. Loaded via gopkg.in/ini.v1, grounded on its pervasive use across
// the retrieved example pack (DataDog-datadog-agent, canonical-lxd,
// crossplane-crossplane, minio-mc, kubernetes-sigs-promo-tools) — the
// teacher itself has no config-file format of its own, so this is
// enrichment from the rest of the pack rather than a teacher carry-over.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	ini "gopkg.in/ini.v1"
)

// Mode selects the storage backend.
type Mode int

const (
	// ModeFilesystem stores originals and variants under ImgPath.
	ModeFilesystem Mode = 1
	// ModeKV stores them in the external KV backend.
	ModeKV Mode = 2
)

// Header is one configured extra response header, in parse order
// (spec.md §9 "ordered sequence" redesign of the source's linked list).
type Header struct {
	Key   string
	Value string
}

// Config is the immutable, fully-resolved startup configuration. It is
// constructed once at startup and passed by value into the dispatcher and
// worker pool — never a mutable package-level singleton (spec.md §9
// "explicit configuration value" redesign).
type Config struct {
	LogPath  string // zlog.log-path
	Port     int    // zhttpd.port
	RootPath string // zhttpd.root-path
	ImgPath  string // zimg.img-path

	MemcachedHost string // memcached.mip
	MemcachedPort int    // memcached.mport

	Mode    Mode // zimg.mode
	Headers []Header

	WorkerCount int // not a zimg INI key; operational tuning, default NumCPU

	UploadRules   []string // access rule lines, upload direction
	DownloadRules []string // access rule lines, download direction
}

// Default returns the documented zimg defaults (spec.md §6).
func Default() Config {
	return Config{
		LogPath:       "./log",
		Port:          4869,
		RootPath:      "./www",
		ImgPath:       "./img",
		MemcachedHost: "127.0.0.1",
		MemcachedPort: 11211,
		Mode:          ModeFilesystem,
		WorkerCount:   0,
	}
}

// Load reads an INI file at path and overlays it on Default(). Missing
// keys keep their default; the file itself must exist (startup config
// error is the one fatal condition spec.md §7 names).
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	if s := f.Section("zlog").Key("log-path").String(); s != "" {
		cfg.LogPath = s
	}
	if s := f.Section("zhttpd").Key("port").String(); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.Port = n
		}
	}
	if s := f.Section("zhttpd").Key("root-path").String(); s != "" {
		cfg.RootPath = s
	}
	if s := f.Section("zimg").Key("img-path").String(); s != "" {
		cfg.ImgPath = s
	}
	if s := f.Section("memcached").Key("mip").String(); s != "" {
		cfg.MemcachedHost = s
	}
	if s := f.Section("memcached").Key("mport").String(); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.MemcachedPort = n
		}
	}
	if s := f.Section("zimg").Key("mode").String(); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n == 1 {
			cfg.Mode = ModeFilesystem
		} else {
			cfg.Mode = ModeKV
		}
	}
	if s := f.Section("zimg").Key("headers").String(); s != "" {
		cfg.Headers = parseHeaders(s)
	}
	if s := f.Section("access").Key("upload").String(); s != "" {
		cfg.UploadRules = parseRuleList(s)
	}
	if s := f.Section("access").Key("download").String(); s != "" {
		cfg.DownloadRules = parseRuleList(s)
	}

	return cfg, nil
}

// parseHeaders parses zimg.headers's "k1:v1;k2:v2" format into an ordered
// sequence (spec.md §9): insertion order equals parse order.
func parseHeaders(s string) []Header {
	var out []Header
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		out = append(out, Header{Key: strings.TrimSpace(kv[0]), Value: strings.TrimSpace(kv[1])})
	}
	return out
}

// parseRuleList parses a ';'-separated list of "allow <ip>" / "deny <ip>"
// rules — the format left unspecified by spec.md §6 ("format not specified
// here; opaque to the core").
func parseRuleList(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ";") {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// MemcachedAddr returns the "host:port" dial address for the KV backend.
func (c Config) MemcachedAddr() string {
	return fmt.Sprintf("%s:%d", c.MemcachedHost, c.MemcachedPort)
}

// Validate checks the resolved configuration is internally consistent.
// Failure here is the one fatal startup condition spec.md §7 names.
func Validate(c Config) error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("config: zhttpd.port out of range")
	}
	if c.ImgPath == "" {
		return errors.New("config: zimg.img-path must not be empty")
	}
	if c.Mode == ModeKV && c.MemcachedHost == "" {
		return errors.New("config: memcached.mip must not be empty in KV mode")
	}
	return nil
}

// EnsurePaths creates LogPath, RootPath, and (in filesystem mode) ImgPath
// if absent — the original's isDir/mkDir startup sequence
// (original_source/main.c), mode 0777 subject to process umask per
// spec.md §4.5a.
func EnsurePaths(c Config) error {
	for _, dir := range []string{c.LogPath, c.RootPath} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if c.Mode == ModeFilesystem && c.ImgPath != "" {
		if err := os.MkdirAll(c.ImgPath, 0o777); err != nil {
			return fmt.Errorf("config: create %s: %w", c.ImgPath, err)
		}
	}
	return nil
}
