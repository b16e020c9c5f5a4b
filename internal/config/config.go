// Package config loads the grillo.toml file over built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fisadev/grillo/internal/reliability"
)

// App is the resolved application configuration.
type App struct {
	Reliability reliability.Config
	// OutputDir receives files saved from incoming messages.
	OutputDir string
	// MetricsAddr exposes the prometheus endpoint when non-empty.
	MetricsAddr string
	// BindAddr and PeerAddr configure the UDP transport. Each side binds
	// locally and points at the other machine.
	BindAddr string
	PeerAddr string
}

func Default() App {
	return App{
		Reliability: reliability.DefaultConfig(),
		OutputDir:   ".",
		BindAddr:    ":7447",
		PeerAddr:    "127.0.0.1:7447",
	}
}

type fileConfig struct {
	PacketSendTime string  `toml:"packet_send_time"`
	AckWaitFactor  float64 `toml:"ack_wait_factor"`
	EvalInterval   string  `toml:"eval_interval"`
	AttemptTimeout string  `toml:"attempt_timeout"`
	ReceiveTimeout string  `toml:"receive_timeout"`
	OutputDir      string  `toml:"output_dir"`
	MetricsAddr    string  `toml:"metrics_addr"`
	BindAddr       string  `toml:"bind_addr"`
	PeerAddr       string  `toml:"peer_addr"`
}

// Load layers the file at path over Default. Only keys present in the
// file override.
func Load(path string) (App, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return App{}, fmt.Errorf("load config: %w", err)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"packet_send_time", raw.PacketSendTime, &cfg.Reliability.PacketSendTime},
		{"eval_interval", raw.EvalInterval, &cfg.Reliability.EvalInterval},
		{"attempt_timeout", raw.AttemptTimeout, &cfg.Reliability.AttemptTimeout},
		{"receive_timeout", raw.ReceiveTimeout, &cfg.Reliability.ReceiveTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return App{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("ack_wait_factor") {
		cfg.Reliability.AckWaitFactor = raw.AckWaitFactor
	}
	if meta.IsDefined("output_dir") {
		if dir := strings.TrimSpace(raw.OutputDir); dir != "" {
			cfg.OutputDir = dir
		}
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("bind_addr") {
		if addr := strings.TrimSpace(raw.BindAddr); addr != "" {
			cfg.BindAddr = addr
		}
	}
	if meta.IsDefined("peer_addr") {
		if addr := strings.TrimSpace(raw.PeerAddr); addr != "" {
			cfg.PeerAddr = addr
		}
	}

	return cfg, nil
}
